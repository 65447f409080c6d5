package marketdata

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSymbols reads a symbols file (one symbol per line, '#' comments and
// blank lines skipped) and returns the symbols uppercased. Duplicates are
// kept — the scanner tolerates them and deduplication is a list-curation
// concern, not ours.
func LoadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Allow CSV-ish lines; only the first field is the symbol.
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			symbols = append(symbols, strings.ToUpper(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return symbols, nil
}
