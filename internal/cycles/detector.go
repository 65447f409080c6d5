// Package cycles detects dominant price cycles via spectral analysis.
//
// The detector detrends the series with a long EMA, takes the FFT
// magnitude spectrum, converts frequency bins back to bar periods and
// keeps the strongest distinct periods inside the configured range.
// Detection never fails hard: any internal error degrades to a fixed
// Fibonacci fallback so a single bad series cannot abort a batch scan.
package cycles

import (
	"fmt"
	"log"
	"math"
	"sort"

	"fib-scannerv1/internal/indicator"
	"fib-scannerv1/internal/model"
)

// fibPadding is appended (in order, skipping periods already detected)
// when the spectrum yields fewer than the requested number of cycles.
var fibPadding = []int{21, 34, 55, 89, 144, 233}

// paddedPower ranks padded cycles below genuinely detected ones.
const paddedPower = 0.5

// minSeriesLen is the shortest series the spectral path accepts. Below
// this the detrend window degenerates and bins are meaningless.
const minSeriesLen = 8

// Detector finds dominant cycles with a configured spectrum backend.
type Detector struct {
	Spectrum Spectrum

	// OnFallback is called when detection degrades to the Fibonacci
	// fallback. Optional metric hook.
	OnFallback func()
}

// NewDetector creates a detector using the given spectrum backend.
func NewDetector(spectrum Spectrum) *Detector {
	return &Detector{Spectrum: spectrum}
}

// Detect finds up to params.NumCycles dominant cycle lengths in series,
// returning parallel period and normalized-power slices ordered by
// descending power. Powers are in [0,1]. On any internal failure it logs
// and returns the fixed fallback triple — callers get a degraded but valid
// result, never an error.
func (d *Detector) Detect(series []float64, params model.ScanParameters) ([]int, []float64) {
	periods, powers, err := detect(series, params, d.Spectrum)
	if err != nil {
		log.Printf("[cycles] detection failed, using Fibonacci fallback: %v", err)
		if d.OnFallback != nil {
			d.OnFallback()
		}
		return []int{21, 34, 55}, []float64{0.8, 0.9, 0.7}
	}
	return periods, powers
}

func detect(series []float64, params model.ScanParameters, spectrum Spectrum) ([]int, []float64, error) {
	clean := model.DropNaN(series)
	if len(clean) < minSeriesLen {
		return nil, nil, fmt.Errorf("series too short after NaN drop: %d bars", len(clean))
	}
	if params.MinPeriod < 2 || params.MinPeriod >= params.MaxPeriod {
		return nil, nil, fmt.Errorf("invalid period range [%d, %d]", params.MinPeriod, params.MaxPeriod)
	}

	detrended := indicator.Detrend(clean)
	mags := spectrum.Magnitudes(detrended)

	// Positive-frequency bins whose implied period lies strictly inside
	// (MinPeriod, MaxPeriod). Bin i of an n-sample series has frequency
	// i/n and period n/i.
	n := float64(len(detrended))
	type candidate struct {
		period float64
		mag    float64
	}
	var cands []candidate
	for i := 1; i < len(mags); i++ {
		freq := float64(i) / n
		if freq > 1/float64(params.MaxPeriod) && freq < 1/float64(params.MinPeriod) {
			cands = append(cands, candidate{period: n / float64(i), mag: mags[i]})
		}
	}

	sort.SliceStable(cands, func(a, b int) bool { return cands[a].mag > cands[b].mag })
	if len(cands) > 2*params.NumCycles {
		cands = cands[:2*params.NumCycles]
	}

	// Normalize magnitudes by the maximum observed candidate.
	maxMag := 0.0
	for _, c := range cands {
		if c.mag > maxMag {
			maxMag = c.mag
		}
	}

	periods := make([]int, 0, params.NumCycles)
	powers := make([]float64, 0, params.NumCycles)
	seen := make(map[int]bool)
	for _, c := range cands {
		p := int(math.Round(c.period))
		if p < params.MinPeriod || p > params.MaxPeriod || seen[p] {
			continue
		}
		power := 0.0
		if maxMag > 0 {
			power = c.mag / maxMag
		}
		periods = append(periods, p)
		powers = append(powers, power)
		seen[p] = true
	}

	// Pad with Fibonacci-derived periods when the spectrum was thin.
	for _, p := range fibPadding {
		if len(periods) >= params.NumCycles {
			break
		}
		if seen[p] {
			continue
		}
		periods = append(periods, p)
		powers = append(powers, paddedPower)
		seen[p] = true
	}

	if len(periods) > params.NumCycles {
		periods = periods[:params.NumCycles]
		powers = powers[:params.NumCycles]
	}
	return periods, powers, nil
}
