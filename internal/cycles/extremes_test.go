package cycles

import (
	"math"
	"testing"
)

func TestDetectCycleExtremes_SineSpacing(t *testing.T) {
	series := sineSeries(200, 34, 100, 10)
	peaks, troughs := DetectCycleExtremes(series, 34)

	if len(peaks) < 4 {
		t.Fatalf("found %d peaks, want at least 4 over ~6 cycles", len(peaks))
	}
	if len(troughs) < 4 {
		t.Fatalf("found %d troughs, want at least 4", len(troughs))
	}
	for i := 1; i < len(peaks); i++ {
		gap := peaks[i] - peaks[i-1]
		if gap < 20 || gap > 48 {
			t.Errorf("peak spacing %d bars, want near the 34-bar cycle", gap)
		}
	}
	// Troughs sit roughly half a cycle from peaks.
	if len(peaks) > 0 && len(troughs) > 0 {
		off := abs(peaks[0] - troughs[0])
		if off < 10 || off > 24 {
			t.Errorf("peak/trough offset %d bars, want near half a cycle", off)
		}
	}
}

func TestDetectCycleExtremes_QuietSeries(t *testing.T) {
	// Flat series: no strict local maxima at all.
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 50
	}
	peaks, troughs := DetectCycleExtremes(flat, 34)
	if len(peaks) != 0 || len(troughs) != 0 {
		t.Fatalf("flat series produced extremes: peaks=%v troughs=%v", peaks, troughs)
	}
}

func TestDetectCycleExtremes_Degenerate(t *testing.T) {
	if p, tr := DetectCycleExtremes([]float64{1, 2}, 34); p != nil || tr != nil {
		t.Error("short series should yield no extremes")
	}
	if p, tr := DetectCycleExtremes(sineSeries(100, 34, 0, 1), 1); p != nil || tr != nil {
		t.Error("cycle < 2 should yield no extremes")
	}
}

func TestFindPeaks_DistanceKeepsTaller(t *testing.T) {
	// Two close local maxima: thinning must keep the taller one.
	x := []float64{0, 5, 0, 8, 0, 0, 0, 0, 0, 0, 0, 6, 0}
	got := findPeaks(x, 5, 1)

	for _, p := range got {
		if p == 1 {
			t.Fatalf("peak at 1 (height 5) survived next to taller peak at 3: %v", got)
		}
	}
	has3, has11 := false, false
	for _, p := range got {
		if p == 3 {
			has3 = true
		}
		if p == 11 {
			has11 = true
		}
	}
	if !has3 || !has11 {
		t.Fatalf("peaks = %v, want {3, 11}", got)
	}
}

func TestGenerateCycleWave(t *testing.T) {
	wave := GenerateCycleWave(34, 100, 0)
	if len(wave) != 100 {
		t.Fatalf("len = %d, want 100", len(wave))
	}
	if wave[0] != 0 {
		t.Errorf("wave[0] = %v, want 0 with zero phase", wave[0])
	}
	for i, v := range wave {
		if v < -1 || v > 1 {
			t.Errorf("wave[%d] = %v outside [-1, 1]", i, v)
		}
	}

	// Half-cycle phase shift flips the sign.
	shifted := GenerateCycleWave(34, 100, math.Pi)
	for i := range wave {
		if math.Abs(wave[i]+shifted[i]) > 1e-9 {
			t.Fatalf("phase-shifted wave not mirrored at %d: %v vs %v", i, wave[i], shifted[i])
		}
	}

	if GenerateCycleWave(0, 100, 0) != nil {
		t.Error("zero-length cycle should yield nil")
	}
	if got := GenerateCycleWave(34, 1, math.Pi/2); len(got) != 1 || math.Abs(got[0]-1) > 1e-12 {
		t.Errorf("single-point wave = %v, want [1]", got)
	}
}
