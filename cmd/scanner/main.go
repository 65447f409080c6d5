package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fib-scannerv1/config"
	"fib-scannerv1/internal/export"
	"fib-scannerv1/internal/logger"
	"fib-scannerv1/internal/marketdata"
	"fib-scannerv1/internal/metrics"
	"fib-scannerv1/internal/model"
	"fib-scannerv1/internal/notification"
	"fib-scannerv1/internal/scanner"
	redisstore "fib-scannerv1/internal/store/redis"
	sqlitestore "fib-scannerv1/internal/store/sqlite"
	"fib-scannerv1/pkg/datafeed"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	var (
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols to scan")
		fileFlag    = flag.String("file", "", "symbols file (one per line, # comments)")
		interval    = flag.String("interval", "daily", "bar interval: 1min, 5min, 15min, 30min, hourly, 4h, daily, weekly")
		lookback    = flag.Int("lookback", 0, "bars of history to request (0 = config default)")
		workers     = flag.Int("workers", 0, "max concurrent analyses per chunk (0 = config default)")
		parallelFFT = flag.Bool("parallel-fft", false, "use the parallel spectrum backend")
		csvPath     = flag.String("csv", "", "write results to this CSV file")
		htmlPath    = flag.String("html", "", "write an HTML report to this file")
		telegram    = flag.Bool("telegram", false, "send a scan report via Telegram")
		watch       = flag.Bool("watch", false, "after the scan, stream live prices for top signals and alert on stop/target hits")
		history     = flag.Int("history", 0, "print the N most recent stored results and exit")
	)
	flag.Parse()

	log.Println("[scanner] starting...")
	cfg := config.Load()
	logger.Init("cycle-scanner", slog.LevelInfo)

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[scanner] shutdown signal received")
		cancel()
	}()

	// ---- SQLite results store ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[scanner] sqlite init failed: %v", err)
	}
	defer store.Close()

	if *history > 0 {
		printHistory(ctx, store, *history)
		return
	}

	// ---- Symbol list ----
	symbols := parseSymbols(*symbolsFlag)
	if *fileFlag != "" {
		fromFile, err := marketdata.LoadSymbols(*fileFlag)
		if err != nil {
			log.Fatalf("[scanner] load symbols: %v", err)
		}
		symbols = append(symbols, fromFile...)
	}
	if len(symbols) == 0 {
		log.Fatal("[scanner] no symbols: pass -symbols or -file")
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Data feed login ----
	if !cfg.HasFeedCredentials() {
		log.Fatal("[scanner] missing data feed credentials (FEED_API_KEY, FEED_CLIENT_CODE, FEED_PASSWORD, FEED_TOTP_SECRET)")
	}
	feed := datafeed.NewClient(datafeed.Config{
		APIKey:     cfg.FeedAPIKey,
		ClientCode: cfg.FeedClientCode,
		Password:   cfg.FeedPassword,
		TOTPSecret: cfg.FeedTOTPSecret,
	})
	if err := feed.Login(ctx); err != nil {
		log.Fatalf("[scanner] data feed login failed: %v", err)
	}
	log.Println("[scanner] data feed session ready")

	// ---- Provider chain: feed → fetch timing → Redis cache ----
	var provider marketdata.Provider = marketdata.ProviderFunc(
		func(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error) {
			start := time.Now()
			series, err := feed.GetData(ctx, symbol, exchange, interval, nBars)
			prom.FetchDur.Observe(time.Since(start).Seconds())
			return series, err
		})

	cache, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		log.Printf("[scanner] WARNING: redis init failed: %v (continuing without cache)", err)
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		defer cache.Close()
		cached := marketdata.NewCachedProvider(provider, cache, cfg.CacheTTL)
		cached.OnHit = prom.CacheHits.Inc
		cached.OnMiss = prom.CacheMisses.Inc
		provider = cached
	}

	// ---- Periodic liveness checks ----
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Run the batch scan ----
	maxWorkers := *workers
	if maxWorkers <= 0 {
		maxWorkers = cfg.MaxWorkers
	}
	params := cfg.ScanParams(*parallelFFT)
	if *lookback > 0 {
		params.Lookback = *lookback
	}
	sc := scanner.New(scanner.Config{
		Provider: provider,
		Exchange: cfg.Exchange,
		Params:   params,
		Metrics:  prom,
	})

	results := sc.ScanBatch(ctx, symbols, *interval, maxWorkers)
	health.RecordScan(len(symbols))
	printSummary(symbols, *interval, results)

	// ---- Persist & export ----
	if runID, err := store.SaveRun(ctx, *interval, results); err != nil {
		log.Printf("[scanner] save run failed: %v", err)
	} else {
		log.Printf("[scanner] results saved as run %s", runID)
	}
	if *csvPath != "" {
		if err := export.WriteCSV(*csvPath, results); err != nil {
			log.Printf("[scanner] csv export failed: %v", err)
		}
	}
	if *htmlPath != "" {
		if err := export.WriteHTMLReport(*htmlPath, *interval, results); err != nil {
			log.Printf("[scanner] html export failed: %v", err)
		}
	}

	// ---- Notify ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if *telegram {
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
			log.Println("[scanner] WARNING: -telegram set but TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID missing")
		} else {
			tg := notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
			notifier = tg
			if err := tg.SendScanReport(ctx, *interval, len(symbols), results); err != nil {
				log.Printf("[scanner] telegram report failed: %v", err)
			}
		}
	}

	// ---- Optional live watch on top signals ----
	if *watch {
		watchTopSignals(ctx, cfg, feed, notifier, results)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	log.Println("[scanner] done.")
}

// maxWatch caps how many symbols the live watch subscribes to.
const maxWatch = 10

// watchTopSignals streams last-traded prices for the strongest actionable
// results and raises an alert the first time a stop or target level trades.
// Blocks until ctx is cancelled.
func watchTopSignals(ctx context.Context, cfg *config.Config, feed *datafeed.Client, notifier notification.Notifier, results []*model.ScanResult) {
	type levels struct {
		action model.Action
		stop   float64
		target float64
		fired  bool
	}
	watched := make(map[string]*levels)
	var symbols []string
	for _, r := range results {
		if !r.Guidance.HasLevels || len(symbols) >= maxWatch {
			continue
		}
		watched[r.Symbol] = &levels{
			action: r.Guidance.Action,
			stop:   r.Guidance.StopLoss,
			target: r.Guidance.Target,
		}
		symbols = append(symbols, r.Symbol)
	}
	if len(symbols) == 0 {
		log.Println("[scanner] nothing to watch: no actionable signals")
		return
	}
	log.Printf("[scanner] watching %d symbols: %s", len(symbols), strings.Join(symbols, ", "))

	stream := datafeed.NewQuoteStream(cfg.FeedAPIKey, cfg.FeedClientCode, feed.FeedToken())
	stream.OnQuote = func(q datafeed.Quote) {
		lv, ok := watched[q.Symbol]
		if !ok || lv.fired {
			return
		}
		var hit string
		switch lv.action {
		case model.ActionBuy:
			if q.LTP >= lv.target {
				hit = fmt.Sprintf("target %.2f reached (LTP %.2f)", lv.target, q.LTP)
			} else if q.LTP <= lv.stop {
				hit = fmt.Sprintf("stop %.2f hit (LTP %.2f)", lv.stop, q.LTP)
			}
		case model.ActionSell:
			if q.LTP <= lv.target {
				hit = fmt.Sprintf("target %.2f reached (LTP %.2f)", lv.target, q.LTP)
			} else if q.LTP >= lv.stop {
				hit = fmt.Sprintf("stop %.2f hit (LTP %.2f)", lv.stop, q.LTP)
			}
		}
		if hit == "" {
			return
		}
		lv.fired = true
		alert := notification.Alert{
			Level:   notification.AlertWarning,
			Title:   fmt.Sprintf("%s level hit", q.Symbol),
			Message: hit,
		}
		if err := notifier.Send(ctx, alert); err != nil {
			log.Printf("[scanner] alert failed for %s: %v", q.Symbol, err)
		}
	}
	if err := stream.Subscribe(symbols); err != nil {
		log.Printf("[scanner] subscribe failed: %v", err)
	}
	if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[scanner] quote stream ended: %v", err)
	}
}

// printSummary writes the ranked scan outcome to the console.
func printSummary(symbols []string, interval string, results []*model.ScanResult) {
	fmt.Printf("\nScanned %d symbols on %s — %d results\n\n", len(symbols), interval, len(results))
	for i, r := range results {
		line := fmt.Sprintf("%2d. %-12s %-16s %-6s strength %+.2f", i+1, r.Symbol, r.Signal, r.Confidence, r.CombinedStrength)
		if r.HasKeyCycles {
			line += "  [key cycles]"
		}
		if r.Guidance.HasLevels {
			line += fmt.Sprintf("  stop %.2f / target %.2f (%s)", r.Guidance.StopLoss, r.Guidance.Target, r.Guidance.Timeframe)
		}
		fmt.Println(line)
	}
	fmt.Println()
}

// printHistory dumps recent stored results for -history.
func printHistory(ctx context.Context, store *sqlitestore.Store, limit int) {
	rows, err := store.RecentResults(ctx, limit)
	if err != nil {
		log.Fatalf("[scanner] history query failed: %v", err)
	}
	fmt.Printf("%-24s %-20s %-12s %-8s %-16s %-6s %9s\n",
		"RUN", "SCANNED", "SYMBOL", "INTVL", "SIGNAL", "CONF", "STRENGTH")
	for _, r := range rows {
		fmt.Printf("%-24s %-20s %-12s %-8s %-16s %-6s %+9.2f\n",
			r.RunID, r.ScannedAt.Format("2006-01-02 15:04:05"),
			r.Symbol, r.Interval, r.Signal, r.Confidence, r.CombinedStrength)
	}
}

func parseSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
