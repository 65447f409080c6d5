// Package fld computes Future Line of Demarcation reference lines and the
// per-cycle state derived from them.
//
// The FLD for a cycle is an EMA of the close with window floor(cycle/2)+1.
// Price crossing its FLD is the primary timing event of the system: the
// crossing list feeds chart markers and the recent-crossing flags feed
// signal generation.
package fld

import (
	"math"

	"fib-scannerv1/internal/indicator"
	"fib-scannerv1/internal/model"
)

// DefaultRecentBars is the window scanned for recent crossings.
const DefaultRecentBars = 5

// CalculateFLD returns the reference line for cycleLength over closes.
// Pure function of its inputs — same series and cycle always yield the
// same line (EMA seeded with the first value, no lookahead).
func CalculateFLD(closes []float64, cycleLength int) []float64 {
	window := cycleLength/2 + 1
	return indicator.EMA(closes, window)
}

// CrossingType labels the polarity of a price/FLD crossing.
type CrossingType string

const (
	CrossingBullish CrossingType = "bullish"
	CrossingBearish CrossingType = "bearish"
)

// Crossing is one strict price/FLD transition.
type Crossing struct {
	Index int // index into the full price slice
	Type  CrossingType
	Price float64
}

// DetectCrossings returns the strict state-change points of price against
// the reference line, in chronological order. A bullish crossing at i means
// price[i-1] <= ref[i-1] and price[i] > ref[i]; bearish is the mirror.
// lookback limits the scan to the trailing window (0 scans everything);
// returned indices are always relative to the full slice.
func DetectCrossings(price, ref []float64, lookback int) []Crossing {
	n := len(price)
	if len(ref) < n {
		n = len(ref)
	}
	start := 1
	if lookback > 0 && n-lookback+1 > start {
		start = n - lookback + 1
	}

	var out []Crossing
	for i := start; i < n; i++ {
		if price[i-1] <= ref[i-1] && price[i] > ref[i] {
			out = append(out, Crossing{Index: i, Type: CrossingBullish, Price: price[i]})
		} else if price[i-1] >= ref[i-1] && price[i] < ref[i] {
			out = append(out, Crossing{Index: i, Type: CrossingBearish, Price: price[i]})
		}
	}
	return out
}

// CalculateCycleState summarizes one cycle's posture: direction, recent
// crossing flags over the last recentBars bars, and a deviation-based
// power. A window holding both an up-cross and a down-cross sets both
// flags — the flags are independent observations, not a single state, and
// downstream scoring counts them separately.
//
// Power here is min(|close-fld|/fld*100, 1.0); the orchestrator overwrites
// it with the spectral power when cycle ranking is available.
func CalculateCycleState(closes, ref []float64, cycleLength, recentBars int) model.CycleState {
	state := model.CycleState{Cycle: cycleLength}
	if len(closes) == 0 || len(ref) == 0 {
		return state
	}

	latestClose := closes[len(closes)-1]
	latestFLD := ref[len(ref)-1]
	state.FLDValue = latestFLD
	state.Bullish = latestClose > latestFLD

	if recentBars < 2 {
		recentBars = DefaultRecentBars
	}
	for _, c := range DetectCrossings(closes, ref, recentBars) {
		switch c.Type {
		case CrossingBullish:
			state.RecentCrossover = true
		case CrossingBearish:
			state.RecentCrossunder = true
		}
	}

	power := math.Abs(latestClose-latestFLD) / latestFLD * 100
	state.Power = math.Min(power, 1.0)
	return state
}
