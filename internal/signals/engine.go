// Package signals turns per-cycle states into one discrete trading signal
// with confidence and position guidance.
//
// Scoring favors the longer Hurst-style cycles: the 34-bar cycle carries a
// 1.5x weight and anything longer 2.0x, so a flip of the long cycles moves
// the combined strength much further than short-cycle chop.
package signals

import (
	"math"
	"strings"

	"fib-scannerv1/internal/model"
)

// CombinedStrength aggregates cycle states into one signed score: each
// state contributes power*direction*weight plus ±0.5*weight for a recent
// crossing, and the sum is averaged over the number of states (not the
// weighted mass). Returns 0 for no states.
func CombinedStrength(states map[int]model.CycleState) float64 {
	if len(states) == 0 {
		return 0
	}
	total := 0.0
	for cycle, state := range states {
		weight := 1.0
		if cycle == 34 {
			weight = 1.5
		} else if cycle > 34 {
			weight = 2.0
		}

		direction := -1.0
		if state.Bullish {
			direction = 1.0
		}
		total += state.Power * direction * weight

		if state.RecentCrossover {
			total += 0.5 * weight
		}
		if state.RecentCrossunder {
			total -= 0.5 * weight
		}
	}
	return total / float64(len(states))
}

// DetermineSignal maps the combined strength onto the seven signal labels
// and a confidence grade. Two adjustments run after the threshold match:
//
//   - full alignment with a fresh crossing forces Strong Buy/Sell at High
//     confidence;
//   - a 34-bar cycle agreeing with the signal's polarity raises confidence
//     to at least Medium (never lowers it).
func DetermineSignal(states map[int]model.CycleState, strength float64) (model.Signal, model.Confidence) {
	if len(states) == 0 {
		return model.SignalNeutral, model.ConfidenceLow
	}

	bullish := 0
	recentBullish := 0
	recentBearish := 0
	for _, state := range states {
		if state.Bullish {
			bullish++
		}
		if state.RecentCrossover {
			recentBullish++
		}
		if state.RecentCrossunder {
			recentBearish++
		}
	}
	bearish := len(states) - bullish

	var signal model.Signal
	switch {
	case strength > 1.5:
		signal = model.SignalStrongBuy
	case strength > 0.8:
		signal = model.SignalBuy
	case strength > 0.3:
		signal = model.SignalWeakBuy
	case strength < -1.5:
		signal = model.SignalStrongSell
	case strength < -0.8:
		signal = model.SignalSell
	case strength < -0.3:
		signal = model.SignalWeakSell
	default:
		signal = model.SignalNeutral
	}

	var confidence model.Confidence
	switch {
	case math.Abs(strength) > 1.5:
		confidence = model.ConfidenceHigh
	case math.Abs(strength) > 0.8:
		confidence = model.ConfidenceMedium
	default:
		confidence = model.ConfidenceLow
	}

	if bullish == len(states) && recentBullish > 0 {
		signal = model.SignalStrongBuy
		confidence = model.ConfidenceHigh
	} else if bearish == len(states) && recentBearish > 0 {
		signal = model.SignalStrongSell
		confidence = model.ConfidenceHigh
	}

	if state34, ok := states[34]; ok {
		if state34.Bullish && isBuy(signal) {
			confidence = confidence.Max(model.ConfidenceMedium)
		} else if !state34.Bullish && isSell(signal) {
			confidence = confidence.Max(model.ConfidenceMedium)
		}
	}

	return signal, confidence
}

// volatilityFactor is the fixed 2% stop distance assumption; targets are
// placed at 2:1 reward to risk.
const volatilityFactor = 0.02

// GenerateGuidance derives position guidance from a signal. The entry and
// exit text references the 21-period FLD by convention regardless of which
// cycles were detected — it is the system's standard timing line.
func GenerateGuidance(signal model.Signal, confidence model.Confidence, lastPrice float64, states map[int]model.CycleState) model.Guidance {
	g := model.Guidance{
		Action:    model.ActionHold,
		Timeframe: model.TimeframeMedium,
	}

	buy := isBuy(signal)
	sell := isSell(signal)
	if buy {
		g.Action = model.ActionBuy
	} else if sell {
		g.Action = model.ActionSell
	}

	switch confidence {
	case model.ConfidenceHigh:
		g.PositionSize = 1.0
	case model.ConfidenceMedium:
		g.PositionSize = 0.5
	case model.ConfidenceLow:
		g.PositionSize = 0.25
	}

	state34, has34 := states[34]
	if buy {
		g.EntryStrategy = "Enter long on a pullback to the 21-period FLD."
		if has34 && state34.Bullish {
			g.EntryStrategy += " Confirmed by 34-period cycle."
		}
		g.ExitStrategy = "Exit when price crosses below the 21-period FLD or at the projected cycle top."
		g.StopLoss = round2(lastPrice * (1 - volatilityFactor))
		g.Target = round2(lastPrice * (1 + volatilityFactor*2))
		g.HasLevels = true
	} else if sell {
		g.EntryStrategy = "Enter short on a rally to the 21-period FLD."
		if has34 && !state34.Bullish {
			g.EntryStrategy += " Confirmed by 34-period cycle."
		}
		g.ExitStrategy = "Exit when price crosses above the 21-period FLD or at the projected cycle bottom."
		g.StopLoss = round2(lastPrice * (1 + volatilityFactor))
		g.Target = round2(lastPrice * (1 - volatilityFactor*2))
		g.HasLevels = true
	}

	g.Timeframe = classifyTimeframe(states)
	return g
}

// classifyTimeframe picks the holding horizon from the longest detected
// cycle: >50 bars is long-term, >20 medium, else short.
func classifyTimeframe(states map[int]model.CycleState) model.Timeframe {
	longTerm := false
	mediumTerm := false
	for cycle := range states {
		if cycle > 50 {
			longTerm = true
		}
		if cycle > 20 {
			mediumTerm = true
		}
	}
	if longTerm {
		return model.TimeframeLong
	}
	if mediumTerm {
		return model.TimeframeMedium
	}
	return model.TimeframeShort
}

func isBuy(s model.Signal) bool  { return strings.Contains(string(s), "Buy") }
func isSell(s model.Signal) bool { return strings.Contains(string(s), "Sell") }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
