package model

import (
	"math"
	"time"
)

// Bar represents one OHLCV bar for a single symbol.
// Prices are float64 — the upstream feeds quote decimals directly and the
// cycle math is all floating point anyway.
type Bar struct {
	TS     time.Time `json:"ts"` // bar open time (UTC, chronologically ascending)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a chronologically ascending run of bars for one symbol.
type Series []Bar

// Closes returns the close price of every bar.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Typical returns the typical price (H+L+C)/3 of every bar. This is the
// working series for cycle detection — it smooths single-print wicks that
// would otherwise leak into the spectrum.
func (s Series) Typical() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = (b.High + b.Low + b.Close) / 3
	}
	return out
}

// Last returns the most recent bar. Callers must check len(s) > 0 first.
func (s Series) Last() Bar {
	return s[len(s)-1]
}

// DropNaN returns values with NaN entries removed, preserving order.
// Feed gaps occasionally surface as NaN closes after upstream joins.
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
