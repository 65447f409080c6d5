// Package indicator provides the smoothing primitives used by cycle
// detection and FLD construction. Everything operates on full series —
// the scanner analyzes a fixed history per call rather than streaming.
package indicator

// EMA computes an exponential moving average over values with the given
// window. The first output is seeded with the first input value and there
// is no lookahead, so the result is reproducible bit-for-bit for the same
// input. Returns nil for an empty input or window < 1.
func EMA(values []float64, window int) []float64 {
	if len(values) == 0 || window < 1 {
		return nil
	}
	alpha := 2.0 / float64(window+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Detrend subtracts a long EMA (window = len/4) from values, removing the
// non-cyclical trend component before spectral analysis.
func Detrend(values []float64) []float64 {
	window := len(values) / 4
	if window < 1 {
		window = 1
	}
	ema := EMA(values, window)
	out := make([]float64, len(values))
	for i := range values {
		out[i] = values[i] - ema[i]
	}
	return out
}
