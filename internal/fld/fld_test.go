package fld

import (
	"math"
	"testing"

	"fib-scannerv1/internal/indicator"
)

func TestCalculateFLD_WindowRule(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/5)
	}

	// cycle 34 → EMA window 18, cycle 21 → window 11
	for _, tc := range []struct {
		cycle  int
		window int
	}{
		{34, 18},
		{21, 11},
		{20, 11},
		{55, 28},
	} {
		got := CalculateFLD(closes, tc.cycle)
		want := indicator.EMA(closes, tc.window)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("cycle %d: fld[%d] = %v, want EMA(%d) = %v",
					tc.cycle, i, got[i], tc.window, want[i])
			}
		}
	}
}

func TestCalculateFLD_Deterministic(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13}
	a := CalculateFLD(closes, 21)
	b := CalculateFLD(closes, 21)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fld not reproducible at %d", i)
		}
	}
}

func TestDetectCrossings_SingleBullish(t *testing.T) {
	price := []float64{1, 1, 3, 3}
	ref := []float64{2, 2, 2, 2}

	got := DetectCrossings(price, ref, 0)
	if len(got) != 1 {
		t.Fatalf("got %d crossings, want 1: %v", len(got), got)
	}
	c := got[0]
	if c.Index != 2 || c.Type != CrossingBullish || c.Price != 3 {
		t.Errorf("crossing = %+v, want index 2, bullish, price 3", c)
	}
}

func TestDetectCrossings_RoundTrip(t *testing.T) {
	// Up through the line, then back down.
	price := []float64{1, 3, 3, 1}
	ref := []float64{2, 2, 2, 2}

	got := DetectCrossings(price, ref, 0)
	if len(got) != 2 {
		t.Fatalf("got %d crossings, want 2: %v", len(got), got)
	}
	if got[0].Type != CrossingBullish || got[0].Index != 1 {
		t.Errorf("first crossing = %+v, want bullish at 1", got[0])
	}
	if got[1].Type != CrossingBearish || got[1].Index != 3 {
		t.Errorf("second crossing = %+v, want bearish at 3", got[1])
	}
}

func TestDetectCrossings_TouchIsNotACross(t *testing.T) {
	// Equality counts as "at or below"; only a strict move through the
	// line on the next bar is a crossing.
	price := []float64{2, 2, 2}
	ref := []float64{2, 2, 2}
	if got := DetectCrossings(price, ref, 0); len(got) != 0 {
		t.Fatalf("touching the line produced crossings: %v", got)
	}
}

func TestDetectCrossings_LookbackWindow(t *testing.T) {
	// Crossing at index 2 sits outside a 5-bar lookback over 10 bars
	// (window starts at index 6); crossing at index 7 sits inside it.
	price := []float64{1, 1, 3, 3, 3, 3, 3, 1, 1, 1}
	ref := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

	got := DetectCrossings(price, ref, 5)
	if len(got) != 1 {
		t.Fatalf("got %d crossings, want 1: %v", len(got), got)
	}
	if got[0].Index != 7 || got[0].Type != CrossingBearish {
		t.Errorf("crossing = %+v, want bearish at index 7 (full-slice index)", got[0])
	}
}

func TestCalculateCycleState_Bullish(t *testing.T) {
	closes := []float64{1, 1, 1, 1, 3}
	ref := []float64{2, 2, 2, 2, 2}

	state := CalculateCycleState(closes, ref, 34, 5)
	if state.Cycle != 34 {
		t.Errorf("cycle = %d, want 34", state.Cycle)
	}
	if !state.Bullish {
		t.Error("close above FLD should be bullish")
	}
	if !state.RecentCrossover {
		t.Error("crossover in the window should set RecentCrossover")
	}
	if state.RecentCrossunder {
		t.Error("no crossunder happened")
	}
	if state.FLDValue != 2 {
		t.Errorf("FLDValue = %v, want 2", state.FLDValue)
	}
	// |3-2|/2*100 = 50 → capped at 1.0
	if state.Power != 1.0 {
		t.Errorf("power = %v, want capped 1.0", state.Power)
	}
}

func TestCalculateCycleState_BothFlags(t *testing.T) {
	// One window holding an up-cross and a down-cross sets both flags;
	// they are independent observations, not a single state.
	closes := []float64{1, 3, 1, 1, 1}
	ref := []float64{2, 2, 2, 2, 2}

	state := CalculateCycleState(closes, ref, 21, 5)
	if !state.RecentCrossover || !state.RecentCrossunder {
		t.Fatalf("want both flags set, got crossover=%v crossunder=%v",
			state.RecentCrossover, state.RecentCrossunder)
	}
	if state.Bullish {
		t.Error("latest close below FLD should not be bullish")
	}
}

func TestCalculateCycleState_SmallDeviationPower(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100.5}
	ref := []float64{100, 100, 100, 100, 100}

	state := CalculateCycleState(closes, ref, 34, 5)
	// |100.5-100|/100*100 = 0.5, below the cap
	if math.Abs(state.Power-0.5) > 1e-9 {
		t.Errorf("power = %v, want 0.5", state.Power)
	}
}

func TestCalculateCycleState_Empty(t *testing.T) {
	state := CalculateCycleState(nil, nil, 34, 5)
	if state.Cycle != 34 || state.Bullish || state.Power != 0 {
		t.Errorf("empty input state = %+v, want zero-valued", state)
	}
}
