package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fib-scannerv1/internal/model"
)

func sampleResults() []*model.ScanResult {
	return []*model.ScanResult{
		{
			Symbol:           "INFY",
			Interval:         "daily",
			LastPrice:        1520.5,
			LastDate:         "2024-06-03 15:30",
			Cycles:           []int{34, 21, 55},
			Powers:           []float64{1.0, 0.8, 0.5},
			CombinedStrength: 1.72,
			HasKeyCycles:     true,
			Signal:           model.SignalStrongBuy,
			Confidence:       model.ConfidenceHigh,
			Guidance: model.Guidance{
				Action:       model.ActionBuy,
				StopLoss:     1490.09,
				Target:       1581.32,
				HasLevels:    true,
				PositionSize: 1.0,
				Timeframe:    model.TimeframeLong,
			},
		},
		{
			Symbol:           "TCS",
			Interval:         "daily",
			LastPrice:        3800,
			Cycles:           []int{21},
			Powers:           []float64{0.6},
			CombinedStrength: 0.1,
			Signal:           model.SignalNeutral,
			Confidence:       model.ConfidenceLow,
			Guidance: model.Guidance{
				Action:       model.ActionHold,
				PositionSize: 0.25,
				Timeframe:    model.TimeframeMedium,
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.csv")
	if err := WriteCSV(path, sampleResults()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 results", len(rows))
	}
	if rows[0][0] != "symbol" || rows[0][4] != "signal" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	infy := rows[1]
	if infy[0] != "INFY" || infy[4] != "Strong Buy" {
		t.Errorf("first row = %v", infy)
	}
	if infy[8] != "34,21,55" {
		t.Errorf("cycles column = %q, want %q", infy[8], "34,21,55")
	}
	if infy[12] != "1490.09" || infy[13] != "1581.32" {
		t.Errorf("levels = %q / %q, want 1490.09 / 1581.32", infy[12], infy[13])
	}

	// Hold rows carry empty level columns.
	tcs := rows[2]
	if tcs[12] != "" || tcs[13] != "" {
		t.Errorf("hold row has levels: %q / %q", tcs[12], tcs[13])
	}
}

func TestWriteHTMLReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTMLReport(path, "daily", sampleResults()); err != nil {
		t.Fatalf("WriteHTMLReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"Cycle Scan Report — daily",
		"INFY",
		"Strong Buy",
		`<tr class="buy">`,
		"2 results",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
