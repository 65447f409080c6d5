// Package scanner orchestrates the per-symbol analysis pipeline and fans
// it out over symbol batches with bounded concurrency.
//
// Per symbol: fetch bars → detect cycles on the typical price → FLD and
// cycle state per cycle → combined strength, signal, guidance → rendering
// payload. A symbol failing anywhere yields nil, never an error or panic —
// batch scans must survive any single bad symbol.
package scanner

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"fib-scannerv1/internal/cycles"
	"fib-scannerv1/internal/fld"
	"fib-scannerv1/internal/marketdata"
	"fib-scannerv1/internal/metrics"
	"fib-scannerv1/internal/model"
	"fib-scannerv1/internal/signals"
)

const (
	// minBars is the minimum history for a meaningful spectrum.
	minBars = 100

	// defaultChunkSize and defaultChunkDelay pace batch scans against the
	// data source's rate limits: chunks of 10 with a 2s gap between them.
	defaultChunkSize  = 10
	defaultChunkDelay = 2 * time.Second

	defaultMaxWorkers = 5
)

// Config configures a Scanner. Provider is required; everything else has
// defaults.
type Config struct {
	Provider   marketdata.Provider
	Exchange   string
	Params     model.ScanParameters
	ChunkSize  int
	ChunkDelay time.Duration
	Metrics    *metrics.Metrics // optional
}

// Scanner runs cycle analysis per symbol and over batches. Safe for
// concurrent use; all per-scan state lives on the stack.
type Scanner struct {
	provider   marketdata.Provider
	exchange   string
	params     model.ScanParameters
	detector   *cycles.Detector
	chunkSize  int
	chunkDelay time.Duration
	prom       *metrics.Metrics

	// sleep is swappable so batch-pacing tests don't take wall-clock time.
	sleep func(time.Duration)
}

// New creates a Scanner from cfg, applying defaults for zero fields.
func New(cfg Config) *Scanner {
	params := cfg.Params
	if params.NumCycles == 0 {
		params = model.DefaultScanParameters()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunkDelay := cfg.ChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = defaultChunkDelay
	}

	detector := cycles.NewDetector(cycles.NewSpectrum(params.AcceleratedFFT))
	if cfg.Metrics != nil {
		detector.OnFallback = cfg.Metrics.DetectorFallbacks.Inc
	}

	return &Scanner{
		provider:   cfg.Provider,
		exchange:   cfg.Exchange,
		params:     params,
		detector:   detector,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
		prom:       cfg.Metrics,
		sleep:      time.Sleep,
	}
}

// AnalyzeSymbol runs the full pipeline for one symbol. Returns nil when the
// symbol has insufficient data, no detectable cycles, or anything in the
// pipeline fails — failures are logged here and never escape.
func (s *Scanner) AnalyzeSymbol(ctx context.Context, symbol, interval string) (result *model.ScanResult) {
	start := time.Now()
	if s.prom != nil {
		s.prom.ScansTotal.Inc()
		defer func() {
			s.prom.ScanDur.Observe(time.Since(start).Seconds())
			if result == nil {
				s.prom.ScanSkipped.Inc()
			} else {
				s.prom.SignalsTotal.WithLabelValues(string(result.Signal)).Inc()
			}
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[scanner] panic analyzing %s on %s: %v", symbol, interval, r)
			if s.prom != nil {
				s.prom.ScanFailures.Inc()
			}
			result = nil
		}
	}()

	series, err := s.provider.GetData(ctx, symbol, s.exchange, interval, s.params.Lookback)
	if err != nil {
		log.Printf("[scanner] fetch failed for %s on %s: %v", symbol, interval, err)
		if s.prom != nil {
			s.prom.ScanFailures.Inc()
		}
		return nil
	}
	if len(series) < minBars {
		log.Printf("[scanner] insufficient data for %s on %s: %d bars", symbol, interval, len(series))
		return nil
	}

	detected, powers := s.detector.Detect(series.Typical(), s.params)
	if len(detected) == 0 {
		log.Printf("[scanner] no significant cycles for %s on %s", symbol, interval)
		return nil
	}

	closes := series.Closes()
	flds := make(map[int][]float64, len(detected))
	states := make(map[int]model.CycleState, len(detected))
	for i, cycle := range detected {
		line := fld.CalculateFLD(closes, cycle)
		flds[cycle] = line

		state := fld.CalculateCycleState(closes, line, cycle, fld.DefaultRecentBars)
		// Spectral power supersedes the deviation-based power: the
		// detector already ranked this cycle against the whole spectrum.
		if i < len(powers) {
			state.Power = powers[i]
		}
		states[cycle] = state
	}

	hasKey := hasKeyCycles(detected)
	strength := signals.CombinedStrength(states)
	signal, confidence := signals.DetermineSignal(states, strength)
	lastBar := series.Last()
	guidance := signals.GenerateGuidance(signal, confidence, lastBar.Close, states)

	result = &model.ScanResult{
		Symbol:           symbol,
		Interval:         interval,
		LastPrice:        lastBar.Close,
		LastDate:         lastBar.TS.Format(dateFormat),
		Cycles:           detected,
		Powers:           powers,
		CycleStates:      states,
		CombinedStrength: strength,
		HasKeyCycles:     hasKey,
		Signal:           signal,
		Confidence:       confidence,
		Guidance:         guidance,
		PlotData:         buildPlotData(symbol, series, detected, states, flds),
	}

	log.Printf("[scanner] %s on %s: %s (%s), strength %.2f", symbol, interval, signal, confidence, strength)
	return result
}

// hasKeyCycles reports the stronger-trust combination: a 20/21 cycle
// together with the 34 cycle.
func hasKeyCycles(detected []int) bool {
	short := false
	mid := false
	for _, c := range detected {
		if c == 20 || c == 21 {
			short = true
		}
		if c == 34 {
			mid = true
		}
	}
	return short && mid
}

// ScanBatch analyzes symbols in chunks with up to maxWorkers concurrent
// analyses per chunk, pausing between chunks (not after the last) to stay
// under the data source's rate limits. Failed or absent symbols contribute
// nothing; the returned results are sorted by descending |combined
// strength|. An empty symbol list returns immediately with no pacing.
func (s *Scanner) ScanBatch(ctx context.Context, symbols []string, interval string, maxWorkers int) []*model.ScanResult {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	batchStart := time.Now()

	totalChunks := (len(symbols) + s.chunkSize - 1) / s.chunkSize
	log.Printf("[scanner] scanning %d symbols on %s in %d chunks", len(symbols), interval, totalChunks)

	var (
		mu      sync.Mutex
		results []*model.ScanResult
	)

	for chunk := 0; chunk < totalChunks; chunk++ {
		lo := chunk * s.chunkSize
		hi := lo + s.chunkSize
		if hi > len(symbols) {
			hi = len(symbols)
		}
		log.Printf("[scanner] chunk %d/%d (%d symbols)", chunk+1, totalChunks, hi-lo)

		var wg sync.WaitGroup
		sem := make(chan struct{}, maxWorkers)
		for _, symbol := range symbols[lo:hi] {
			symbol := symbol
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				// AnalyzeSymbol absorbs its own failures; this guard only
				// protects the batch from a bug in the collection path.
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[scanner] task panic for %s: %v", symbol, r)
					}
				}()
				if res := s.AnalyzeSymbol(ctx, symbol, interval); res != nil {
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if chunk < totalChunks-1 {
			s.sleep(s.chunkDelay)
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return math.Abs(results[a].CombinedStrength) > math.Abs(results[b].CombinedStrength)
	})

	if s.prom != nil {
		s.prom.BatchDur.Observe(time.Since(batchStart).Seconds())
	}
	log.Printf("[scanner] scan completed with %d results in %v", len(results), time.Since(batchStart).Round(time.Millisecond))
	return results
}
