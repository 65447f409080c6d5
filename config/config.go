package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"fib-scannerv1/internal/model"
)

// Config holds all application configuration loaded from environment
// variables. It is built once per process and threaded through explicitly —
// nothing reads the environment after startup.
type Config struct {
	// Data feed credentials (broker candle API)
	FeedAPIKey     string
	FeedClientCode string
	FeedPassword   string
	FeedTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Notification
	TelegramBotToken string
	TelegramChatID   string

	// Scanning
	Exchange   string
	CacheTTL   time.Duration
	MinPeriod  int
	MaxPeriod  int
	NumCycles  int
	Lookback   int
	MaxWorkers int
}

// Load reads configuration from environment variables with sensible defaults.
// Feed credentials are optional here; the entry point validates them only
// when a live data source is actually required.
func Load() *Config {
	return &Config{
		FeedAPIKey:     getEnv("FEED_API_KEY", ""),
		FeedClientCode: getEnv("FEED_CLIENT_CODE", ""),
		FeedPassword:   getEnv("FEED_PASSWORD", ""),
		FeedTOTPSecret: getEnv("FEED_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/scans.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		Exchange:   getEnv("EXCHANGE", "NSE"),
		CacheTTL:   getEnvDuration("CACHE_TTL", 15*time.Minute),
		MinPeriod:  getEnvInt("SCAN_MIN_PERIOD", 20),
		MaxPeriod:  getEnvInt("SCAN_MAX_PERIOD", 250),
		NumCycles:  getEnvInt("SCAN_NUM_CYCLES", 3),
		Lookback:   getEnvInt("SCAN_LOOKBACK", 5000),
		MaxWorkers: getEnvInt("SCAN_MAX_WORKERS", 5),
	}
}

// ScanParams builds the immutable scan parameters from the loaded config.
func (c *Config) ScanParams(accelerated bool) model.ScanParameters {
	p := model.DefaultScanParameters()
	p.MinPeriod = c.MinPeriod
	p.MaxPeriod = c.MaxPeriod
	p.NumCycles = c.NumCycles
	p.Lookback = c.Lookback
	p.AcceleratedFFT = accelerated
	return p
}

// HasFeedCredentials reports whether a live data-feed login is configured.
func (c *Config) HasFeedCredentials() bool {
	return c.FeedAPIKey != "" && c.FeedClientCode != "" &&
		c.FeedPassword != "" && c.FeedTOTPSecret != ""
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
