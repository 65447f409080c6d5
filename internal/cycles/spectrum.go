package cycles

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum computes the magnitude spectrum of a real series. Magnitudes
// returns len(x)/2+1 values, one per non-negative frequency bin i/len(x).
//
// The two implementations must produce identical output for the same
// input — the parallel backend only changes how the work is scheduled,
// never the arithmetic. Which one runs is a configuration choice
// (ScanParameters.AcceleratedFFT), not a runtime probe.
type Spectrum interface {
	Name() string
	Magnitudes(x []float64) []float64
}

// NewSpectrum returns the configured spectrum backend.
func NewSpectrum(accelerated bool) Spectrum {
	if accelerated {
		return &parallelSpectrum{}
	}
	return &serialSpectrum{}
}

// serialSpectrum is the plain single-goroutine FFT backend.
type serialSpectrum struct{}

func (s *serialSpectrum) Name() string { return "fft" }

func (s *serialSpectrum) Magnitudes(x []float64) []float64 {
	coeffs := realCoefficients(x)
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = magnitude(c)
	}
	return out
}

// parallelSpectrum computes the same FFT, then fans the magnitude pass out
// across GOMAXPROCS goroutines. Per-element arithmetic is identical to the
// serial backend, so the output is bit-compatible.
type parallelSpectrum struct{}

func (s *parallelSpectrum) Name() string { return "fft-parallel" }

func (s *parallelSpectrum) Magnitudes(x []float64) []float64 {
	coeffs := realCoefficients(x)
	out := make([]float64, len(coeffs))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(coeffs) {
		workers = len(coeffs)
	}
	if workers <= 1 {
		for i, c := range coeffs {
			out[i] = magnitude(c)
		}
		return out
	}

	var wg sync.WaitGroup
	chunk := (len(coeffs) + workers - 1) / workers
	for start := 0; start < len(coeffs); start += chunk {
		end := start + chunk
		if end > len(coeffs) {
			end = len(coeffs)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = magnitude(coeffs[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

func realCoefficients(x []float64) []complex128 {
	fft := fourier.NewFFT(len(x))
	return fft.Coefficients(nil, x)
}

func magnitude(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
