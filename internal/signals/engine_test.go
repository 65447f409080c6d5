package signals

import (
	"math"
	"testing"

	"fib-scannerv1/internal/model"
)

func state(cycle int, bullish bool, power float64) model.CycleState {
	return model.CycleState{Cycle: cycle, Bullish: bullish, Power: power}
}

func TestCombinedStrength_Empty(t *testing.T) {
	if got := CombinedStrength(nil); got != 0 {
		t.Fatalf("empty states = %v, want 0", got)
	}
}

func TestCombinedStrength_Weighting(t *testing.T) {
	tests := []struct {
		name   string
		states map[int]model.CycleState
		want   float64
	}{
		{
			name:   "short cycle weight 1.0",
			states: map[int]model.CycleState{20: state(20, true, 1.0)},
			want:   1.0,
		},
		{
			name:   "34 cycle weight 1.5",
			states: map[int]model.CycleState{34: state(34, true, 1.0)},
			want:   1.5,
		},
		{
			name:   "long cycle weight 2.0",
			states: map[int]model.CycleState{55: state(55, true, 1.0)},
			want:   2.0,
		},
		{
			name:   "bearish flips the sign",
			states: map[int]model.CycleState{55: state(55, false, 1.0)},
			want:   -2.0,
		},
		{
			name: "averaged over state count",
			states: map[int]model.CycleState{
				20: state(20, true, 1.0),
				55: state(55, false, 1.0),
			},
			want: (1.0 - 2.0) / 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CombinedStrength(tc.states)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("strength = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCombinedStrength_CrossingBonus(t *testing.T) {
	s := state(34, true, 1.0)
	s.RecentCrossover = true
	got := CombinedStrength(map[int]model.CycleState{34: s})
	// 1.0*1.5 + 0.5*1.5
	if math.Abs(got-2.25) > 1e-12 {
		t.Fatalf("strength with crossover = %v, want 2.25", got)
	}

	s = state(34, true, 1.0)
	s.RecentCrossunder = true
	got = CombinedStrength(map[int]model.CycleState{34: s})
	// 1.0*1.5 - 0.5*1.5
	if math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("strength with crossunder = %v, want 0.75", got)
	}
}

func TestDetermineSignal_Thresholds(t *testing.T) {
	// A single bearish state without crossings triggers neither alignment
	// override (no recent crossings) nor the 34 rule (cycle 20).
	states := map[int]model.CycleState{20: state(20, false, 0.1)}

	tests := []struct {
		strength float64
		signal   model.Signal
		conf     model.Confidence
	}{
		{1.6, model.SignalStrongBuy, model.ConfidenceHigh},
		{1.0, model.SignalBuy, model.ConfidenceMedium},
		{0.5, model.SignalWeakBuy, model.ConfidenceLow},
		{0.0, model.SignalNeutral, model.ConfidenceLow},
		{0.3, model.SignalNeutral, model.ConfidenceLow},
		{-0.3, model.SignalNeutral, model.ConfidenceLow},
		{-0.5, model.SignalWeakSell, model.ConfidenceLow},
		{-1.0, model.SignalSell, model.ConfidenceMedium},
		{-1.6, model.SignalStrongSell, model.ConfidenceHigh},
	}
	for _, tc := range tests {
		signal, conf := DetermineSignal(states, tc.strength)
		if signal != tc.signal || conf != tc.conf {
			t.Errorf("strength %v: got (%s, %s), want (%s, %s)",
				tc.strength, signal, conf, tc.signal, tc.conf)
		}
	}
}

func TestDetermineSignal_EmptyStates(t *testing.T) {
	signal, conf := DetermineSignal(nil, 2.0)
	if signal != model.SignalNeutral || conf != model.ConfidenceLow {
		t.Fatalf("empty states = (%s, %s), want (Neutral, Low)", signal, conf)
	}
}

func TestDetermineSignal_AlignmentOverride(t *testing.T) {
	// All cycles bullish with a fresh crossover: Strong Buy at High
	// confidence regardless of the raw strength.
	crossed := state(20, true, 0.1)
	crossed.RecentCrossover = true
	states := map[int]model.CycleState{
		20: crossed,
		55: state(55, true, 0.1),
	}
	signal, conf := DetermineSignal(states, 0.1)
	if signal != model.SignalStrongBuy || conf != model.ConfidenceHigh {
		t.Fatalf("aligned bullish = (%s, %s), want (Strong Buy, High)", signal, conf)
	}

	// Mirror for the bearish side.
	under := state(20, false, 0.1)
	under.RecentCrossunder = true
	states = map[int]model.CycleState{
		20: under,
		55: state(55, false, 0.1),
	}
	signal, conf = DetermineSignal(states, -0.1)
	if signal != model.SignalStrongSell || conf != model.ConfidenceHigh {
		t.Fatalf("aligned bearish = (%s, %s), want (Strong Sell, High)", signal, conf)
	}
}

func TestDetermineSignal_34RaisesConfidence(t *testing.T) {
	// Weak Buy at Low confidence, but the 34 cycle agrees → Medium.
	states := map[int]model.CycleState{
		20: state(20, false, 0.1), // blocks the alignment override
		34: state(34, true, 0.1),
	}
	signal, conf := DetermineSignal(states, 0.5)
	if signal != model.SignalWeakBuy {
		t.Fatalf("signal = %s, want Weak Buy", signal)
	}
	if conf != model.ConfidenceMedium {
		t.Fatalf("confidence = %s, want Medium (raised by 34 agreement)", conf)
	}
}

func TestDetermineSignal_34NeverLowersConfidence(t *testing.T) {
	states := map[int]model.CycleState{
		20: state(20, false, 0.1),
		34: state(34, true, 0.1),
	}
	signal, conf := DetermineSignal(states, 1.6)
	if signal != model.SignalStrongBuy || conf != model.ConfidenceHigh {
		t.Fatalf("got (%s, %s), want (Strong Buy, High) untouched", signal, conf)
	}
}

func TestGenerateGuidance_Buy(t *testing.T) {
	states := map[int]model.CycleState{34: state(34, true, 0.9)}
	g := GenerateGuidance(model.SignalBuy, model.ConfidenceHigh, 100, states)

	if g.Action != model.ActionBuy {
		t.Errorf("action = %s, want Buy", g.Action)
	}
	if !g.HasLevels {
		t.Fatal("buy guidance should carry levels")
	}
	if g.StopLoss != 98 {
		t.Errorf("stop = %v, want 98 (2%% below entry)", g.StopLoss)
	}
	if g.Target != 104 {
		t.Errorf("target = %v, want 104 (2:1 reward)", g.Target)
	}
	if g.PositionSize != 1.0 {
		t.Errorf("position size = %v, want 1.0 at High", g.PositionSize)
	}
	want := "Enter long on a pullback to the 21-period FLD. Confirmed by 34-period cycle."
	if g.EntryStrategy != want {
		t.Errorf("entry = %q, want %q", g.EntryStrategy, want)
	}
}

func TestGenerateGuidance_Sell(t *testing.T) {
	states := map[int]model.CycleState{20: state(20, false, 0.9)}
	g := GenerateGuidance(model.SignalStrongSell, model.ConfidenceMedium, 200, states)

	if g.Action != model.ActionSell {
		t.Errorf("action = %s, want Sell", g.Action)
	}
	if g.StopLoss != 204 {
		t.Errorf("stop = %v, want 204", g.StopLoss)
	}
	if g.Target != 192 {
		t.Errorf("target = %v, want 192", g.Target)
	}
	if g.PositionSize != 0.5 {
		t.Errorf("position size = %v, want 0.5 at Medium", g.PositionSize)
	}
	// No 34 cycle agreeing: no confirmation sentence.
	want := "Enter short on a rally to the 21-period FLD."
	if g.EntryStrategy != want {
		t.Errorf("entry = %q, want %q", g.EntryStrategy, want)
	}
}

func TestGenerateGuidance_NeutralHold(t *testing.T) {
	states := map[int]model.CycleState{20: state(20, true, 0.2)}
	g := GenerateGuidance(model.SignalNeutral, model.ConfidenceLow, 100, states)

	if g.Action != model.ActionHold {
		t.Errorf("action = %s, want Hold", g.Action)
	}
	if g.HasLevels {
		t.Error("hold guidance must not carry levels")
	}
	if g.PositionSize != 0.25 {
		t.Errorf("position size = %v, want 0.25 at Low", g.PositionSize)
	}
}

func TestGenerateGuidance_Timeframe(t *testing.T) {
	tests := []struct {
		cycles []int
		want   model.Timeframe
	}{
		{[]int{55, 21}, model.TimeframeLong},
		{[]int{34, 21}, model.TimeframeMedium},
		{[]int{20}, model.TimeframeShort},
	}
	for _, tc := range tests {
		states := map[int]model.CycleState{}
		for _, c := range tc.cycles {
			states[c] = state(c, true, 0.5)
		}
		g := GenerateGuidance(model.SignalBuy, model.ConfidenceLow, 100, states)
		if g.Timeframe != tc.want {
			t.Errorf("cycles %v: timeframe = %s, want %s", tc.cycles, g.Timeframe, tc.want)
		}
	}
}
