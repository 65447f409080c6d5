// Package sqlite persists scan-run history so past signals can be
// reviewed and exported without re-scanning.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"fib-scannerv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the results store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/scans.db"
}

// Store is a single-writer SQLite store for scan results.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (creating if needed) the results database with WAL mode.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; the scanner saves one run at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened results database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT    NOT NULL,
			scanned_at        INTEGER NOT NULL,
			symbol            TEXT    NOT NULL,
			interval          TEXT    NOT NULL,
			last_price        REAL    NOT NULL,
			last_date         TEXT    NOT NULL,
			signal            TEXT    NOT NULL,
			confidence        TEXT    NOT NULL,
			combined_strength REAL    NOT NULL,
			has_key_cycles    INTEGER NOT NULL,
			cycles            TEXT    NOT NULL,
			detail            TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scan_results_run    ON scan_results (run_id);
		CREATE INDEX IF NOT EXISTS idx_scan_results_symbol ON scan_results (symbol, scanned_at);
	`)
	return err
}

// SaveRun inserts all results of one batch scan in a single transaction and
// returns the run ID.
func (s *Store) SaveRun(ctx context.Context, interval string, results []*model.ScanResult) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s-%s", interval, now.UTC().Format("20060102T150405"))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_results
			(run_id, scanned_at, symbol, interval, last_price, last_date,
			 signal, confidence, combined_strength, has_key_cycles, cycles, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		// Full result minus the rendering payload; the plot window is
		// large and reproducible from the detail columns.
		slim := *r
		slim.PlotData = nil
		detail, err := json.Marshal(&slim)
		if err != nil {
			return "", fmt.Errorf("marshal result %s: %w", r.Symbol, err)
		}

		if _, err := stmt.ExecContext(ctx,
			runID, now.Unix(), r.Symbol, r.Interval, r.LastPrice, r.LastDate,
			string(r.Signal), string(r.Confidence), r.CombinedStrength,
			boolToInt(r.HasKeyCycles), joinCycles(r.Cycles), string(detail),
		); err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	log.Printf("[sqlite] saved run %s with %d results", runID, len(results))
	return runID, nil
}

// RunSummary is one stored result row without the full detail blob.
type RunSummary struct {
	RunID            string
	ScannedAt        time.Time
	Symbol           string
	Interval         string
	LastPrice        float64
	Signal           string
	Confidence       string
	CombinedStrength float64
	HasKeyCycles     bool
}

// RecentResults returns the most recent stored results, newest first.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, scanned_at, symbol, interval, last_price,
		       signal, confidence, combined_strength, has_key_cycles
		FROM scan_results
		ORDER BY scanned_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var ts int64
		var key int
		if err := rows.Scan(&r.RunID, &ts, &r.Symbol, &r.Interval, &r.LastPrice,
			&r.Signal, &r.Confidence, &r.CombinedStrength, &key); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.ScannedAt = time.Unix(ts, 0)
		r.HasKeyCycles = key != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinCycles(cycles []int) string {
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, ",")
}
