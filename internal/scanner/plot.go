package scanner

import (
	"math"

	"fib-scannerv1/internal/cycles"
	"fib-scannerv1/internal/fld"
	"fib-scannerv1/internal/model"
)

const (
	dateFormat = "2006-01-02 15:04"

	// visibleBars caps the rendering window; waveBars is the span of the
	// synthetic cycle overlay inside it.
	visibleBars = 250
	waveBars    = 100
)

// cycleColors matches chart colors to the canonical Fibonacci lengths so
// the same cycle is always drawn the same way across symbols.
var cycleColors = map[int]string{
	20:  "#1f77b4", // blue
	21:  "#1f77b4", // blue (same as 20)
	34:  "#ff7f0e", // orange
	55:  "#2ca02c", // green
	89:  "#d62728", // red
	144: "#9467bd", // purple
	233: "#8c564b", // brown
}

const defaultCycleColor = "#7f7f7f" // gray

// buildPlotData assembles the rendering payload for one result: the
// trailing price window, each cycle's FLD tail, a phase-fit synthetic wave
// and crossing markers. It never fails — a degenerate window just yields a
// sparser payload.
func buildPlotData(symbol string, series model.Series, detected []int, states map[int]model.CycleState, flds map[int][]float64) *model.PlotData {
	visible := len(series)
	if visible > visibleBars {
		visible = visibleBars
	}
	window := series[len(series)-visible:]

	pd := &model.PlotData{
		Symbol:    symbol,
		Dates:     make([]string, visible),
		Open:      make([]float64, visible),
		High:      make([]float64, visible),
		Low:       make([]float64, visible),
		Close:     make([]float64, visible),
		Volume:    make([]float64, visible),
		Cycles:    make(map[int]model.CycleBand, len(detected)),
		Crossings: nil,
	}
	for i, bar := range window {
		pd.Dates[i] = bar.TS.Format(dateFormat)
		pd.Open[i] = bar.Open
		pd.High[i] = bar.High
		pd.Low[i] = bar.Low
		pd.Close[i] = bar.Close
		pd.Volume[i] = bar.Volume
	}

	typical := window.Typical()

	for _, cycle := range detected {
		line, ok := flds[cycle]
		if !ok || len(line) < visible {
			continue
		}
		tail := line[len(line)-visible:]

		color, ok := cycleColors[cycle]
		if !ok {
			color = defaultCycleColor
		}
		band := model.CycleBand{
			FLD:     tail,
			Bullish: states[cycle].Bullish,
			Color:   color,
			Wave:    buildWave(typical, cycle),
		}
		pd.Cycles[cycle] = band

		for _, c := range fld.DetectCrossings(pd.Close, tail, 0) {
			pd.Crossings = append(pd.Crossings, model.CrossingMark{
				Index: c.Index,
				Date:  pd.Dates[c.Index],
				Price: c.Price,
				Type:  string(c.Type),
				Cycle: cycle,
			})
		}
	}

	return pd
}

// buildWave reconstructs a synthetic cycle wave phase-aligned to the most
// recent detected peak (or trough, shifted half a cycle) and scaled into
// the visible price range. Returns nil when the window is too short.
func buildWave(typical []float64, cycle int) []float64 {
	if len(typical) < waveBars {
		return nil
	}

	peaks, troughs := cycles.DetectCycleExtremes(typical, cycle)
	phase := 0.0
	if len(peaks) > 0 {
		phase = 2 * math.Pi * float64(peaks[len(peaks)-1]) / float64(cycle)
	} else if len(troughs) > 0 {
		phase = 2*math.Pi*float64(troughs[len(troughs)-1])/float64(cycle) + math.Pi
	}

	wave := cycles.GenerateCycleWave(cycle, waveBars, -phase)

	priceMin, priceMax := typical[0], typical[0]
	for _, v := range typical {
		if v < priceMin {
			priceMin = v
		}
		if v > priceMax {
			priceMax = v
		}
	}
	priceRange := priceMax - priceMin
	priceMid := (priceMax + priceMin) / 2
	for i := range wave {
		wave[i] = wave[i]*(priceRange*0.25) + priceMid
	}
	return wave
}
