package model

// PlotData is the rendering payload attached to a ScanResult. It is built
// once per result so chart and export consumers never recompute FLDs or
// crossings; the window is capped at the most recent 250 bars.
type PlotData struct {
	Symbol    string            `json:"symbol"`
	Dates     []string          `json:"dates"`
	Open      []float64         `json:"open"`
	High      []float64         `json:"high"`
	Low       []float64         `json:"low"`
	Close     []float64         `json:"close"`
	Volume    []float64         `json:"volume"`
	Cycles    map[int]CycleBand `json:"cycles"`
	Crossings []CrossingMark    `json:"crossings"`
}

// CycleBand holds the drawable series for one detected cycle.
type CycleBand struct {
	FLD     []float64 `json:"fld"`
	Bullish bool      `json:"bullish"`
	Color   string    `json:"color"`
	// Wave is the synthetic cycle overlay for the last 100 bars, phase-fit
	// to the latest detected peak or trough. Empty when the visible window
	// is too short.
	Wave []float64 `json:"wave,omitempty"`
}

// CrossingMark is a price/FLD crossing marker inside the visible window.
type CrossingMark struct {
	Index int     `json:"index"` // offset into Dates/Close
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	Type  string  `json:"type"` // "bullish" or "bearish"
	Cycle int     `json:"cycle"`
}
