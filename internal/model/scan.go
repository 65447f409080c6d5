// Package model defines the value objects shared across the scanner:
// OHLCV bars, scan parameters, per-cycle states and per-symbol results.
// Everything here is produced fresh per analysis call and read-only after
// construction — no cross-call mutable state.
package model

// ScanParameters is the immutable configuration for one scan.
// MinPeriod must be >= 2 and strictly less than MaxPeriod; MaxPeriod must
// not exceed the series length or the detector falls back (see cycles).
type ScanParameters struct {
	MinPeriod int `json:"min_period"` // shortest cycle length to detect
	MaxPeriod int `json:"max_period"` // longest cycle length to detect
	NumCycles int `json:"num_cycles"` // cycles to report per symbol
	Lookback  int `json:"lookback"`   // bars to request from the data source

	// AcceleratedFFT selects the parallel spectrum backend. Both backends
	// produce identical output for the same input; this is purely a speed
	// knob for wide batch scans.
	AcceleratedFFT bool `json:"accelerated_fft"`

	// FibCycles are the Fibonacci-adjacent lengths used as fallback and
	// weighting hints when the spectrum is inconclusive.
	FibCycles []int `json:"fib_cycles"`
}

// DefaultScanParameters returns the standard daily-scan configuration.
func DefaultScanParameters() ScanParameters {
	return ScanParameters{
		MinPeriod: 20,
		MaxPeriod: 250,
		NumCycles: 3,
		Lookback:  5000,
		FibCycles: []int{20, 21, 34, 55, 89},
	}
}

// CycleState summarizes where price sits relative to one cycle's FLD.
type CycleState struct {
	Cycle            int     `json:"cycle"`     // period length in bars
	FLDValue         float64 `json:"fld_value"` // latest reference-line value
	Bullish          bool    `json:"bullish"`   // latest close above the FLD
	RecentCrossover  bool    `json:"recent_crossover"`
	RecentCrossunder bool    `json:"recent_crossunder"`

	// Power starts as the capped relative deviation |close-fld|/fld*100 and
	// is overwritten with the normalized spectral magnitude when the
	// orchestrator has one for this cycle. Spectral power supersedes
	// deviation power — both formulas are intentional.
	Power float64 `json:"power"`
}

// Signal is the discrete trading signal label.
type Signal string

const (
	SignalStrongBuy  Signal = "Strong Buy"
	SignalBuy        Signal = "Buy"
	SignalWeakBuy    Signal = "Weak Buy"
	SignalNeutral    Signal = "Neutral"
	SignalWeakSell   Signal = "Weak Sell"
	SignalSell       Signal = "Sell"
	SignalStrongSell Signal = "Strong Sell"
)

// Confidence is an ordered qualitative label: Low < Medium < High.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Rank returns the ordering of the confidence label (Low=0, Medium=1, High=2).
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceMedium:
		return 1
	case ConfidenceHigh:
		return 2
	}
	return 0
}

// Max returns the higher of two confidence labels.
func (c Confidence) Max(other Confidence) Confidence {
	if other.Rank() > c.Rank() {
		return other
	}
	return c
}

// Action is the position action derived from a signal.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// Timeframe classifies the expected holding horizon from the detected cycles.
type Timeframe string

const (
	TimeframeShort  Timeframe = "Short-term"
	TimeframeMedium Timeframe = "Medium-term"
	TimeframeLong   Timeframe = "Long-term"
)

// Guidance is the position guidance attached to a scan result.
// StopLoss and Target are only meaningful when HasLevels is true (Hold
// signals carry no levels); consumers read the flag instead of probing.
type Guidance struct {
	Action        Action    `json:"action"`
	EntryStrategy string    `json:"entry_strategy"`
	ExitStrategy  string    `json:"exit_strategy"`
	StopLoss      float64   `json:"stop_loss"`
	Target        float64   `json:"target"`
	HasLevels     bool      `json:"has_levels"`
	PositionSize  float64   `json:"position_size"` // fraction of full size in [0,1]
	Timeframe     Timeframe `json:"timeframe"`
}

// ScanResult is the per-symbol outcome of one analysis call. Cycles and
// Powers are parallel slices ordered by descending spectral power.
type ScanResult struct {
	Symbol           string             `json:"symbol"`
	Interval         string             `json:"interval"`
	LastPrice        float64            `json:"last_price"`
	LastDate         string             `json:"last_date"`
	Cycles           []int              `json:"cycles"`
	Powers           []float64          `json:"powers"`
	CycleStates      map[int]CycleState `json:"cycle_states"`
	CombinedStrength float64            `json:"combined_strength"`
	HasKeyCycles     bool               `json:"has_key_cycles"`
	Signal           Signal             `json:"signal"`
	Confidence       Confidence         `json:"confidence"`
	Guidance         Guidance           `json:"guidance"`
	PlotData         *PlotData          `json:"plot_data,omitempty"`
}
