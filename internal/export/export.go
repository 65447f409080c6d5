// Package export writes batch-scan results to CSV and HTML for offline
// review. Both writers take the already-ranked result slice and preserve
// its order.
package export

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"log"
	"os"
	"strconv"
	"strings"

	"fib-scannerv1/internal/model"
)

var csvHeader = []string{
	"symbol", "interval", "last_price", "last_date",
	"signal", "confidence", "combined_strength", "has_key_cycles",
	"cycles", "powers", "action", "position_size",
	"stop_loss", "target", "timeframe",
}

// WriteCSV writes results to path, one row per symbol.
func WriteCSV(path string, results []*model.ScanResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		stop, target := "", ""
		if r.Guidance.HasLevels {
			stop = formatFloat(r.Guidance.StopLoss)
			target = formatFloat(r.Guidance.Target)
		}
		row := []string{
			r.Symbol,
			r.Interval,
			formatFloat(r.LastPrice),
			r.LastDate,
			string(r.Signal),
			string(r.Confidence),
			formatFloat(r.CombinedStrength),
			strconv.FormatBool(r.HasKeyCycles),
			joinInts(r.Cycles),
			joinFloats(r.Powers),
			string(r.Guidance.Action),
			formatFloat(r.Guidance.PositionSize),
			stop,
			target,
			string(r.Guidance.Timeframe),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Symbol, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	log.Printf("[export] wrote %d results to %s", len(results), path)
	return nil
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Cycle Scan Report — {{.Interval}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
th { background: #f0f0f0; }
tr.buy { background: #eaffea; }
tr.sell { background: #ffeaea; }
</style>
</head>
<body>
<h1>Cycle Scan Report — {{.Interval}}</h1>
<p>{{.Count}} results, ranked by signal strength.</p>
<table>
<tr>
<th>#</th><th>Symbol</th><th>Last Price</th><th>Signal</th><th>Confidence</th>
<th>Strength</th><th>Cycles</th><th>Key Cycles</th><th>Stop</th><th>Target</th><th>Timeframe</th>
</tr>
{{range .Rows}}
<tr class="{{.Class}}">
<td>{{.Rank}}</td><td>{{.Symbol}}</td><td>{{.LastPrice}}</td><td>{{.Signal}}</td>
<td>{{.Confidence}}</td><td>{{.Strength}}</td><td>{{.Cycles}}</td><td>{{.KeyCycles}}</td>
<td>{{.Stop}}</td><td>{{.Target}}</td><td>{{.Timeframe}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

type reportRow struct {
	Rank       int
	Class      string
	Symbol     string
	LastPrice  string
	Signal     string
	Confidence string
	Strength   string
	Cycles     string
	KeyCycles  string
	Stop       string
	Target     string
	Timeframe  string
}

// WriteHTMLReport renders a ranked HTML table of results to path.
func WriteHTMLReport(path, interval string, results []*model.ScanResult) error {
	rows := make([]reportRow, len(results))
	for i, r := range results {
		class := ""
		switch r.Guidance.Action {
		case model.ActionBuy:
			class = "buy"
		case model.ActionSell:
			class = "sell"
		}
		stop, target := "—", "—"
		if r.Guidance.HasLevels {
			stop = formatFloat(r.Guidance.StopLoss)
			target = formatFloat(r.Guidance.Target)
		}
		rows[i] = reportRow{
			Rank:       i + 1,
			Class:      class,
			Symbol:     r.Symbol,
			LastPrice:  formatFloat(r.LastPrice),
			Signal:     string(r.Signal),
			Confidence: string(r.Confidence),
			Strength:   fmt.Sprintf("%.2f", r.CombinedStrength),
			Cycles:     joinInts(r.Cycles),
			KeyCycles:  strconv.FormatBool(r.HasKeyCycles),
			Stop:       stop,
			Target:     target,
			Timeframe:  string(r.Guidance.Timeframe),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	data := struct {
		Interval string
		Count    int
		Rows     []reportRow
	}{interval, len(results), rows}

	if err := reportTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	log.Printf("[export] wrote HTML report to %s", path)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return strings.Join(parts, ",")
}
