package marketdata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSymbolsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadSymbols(t *testing.T) {
	path := writeSymbolsFile(t, `# NSE watchlist
infy
TCS

  reliance
# comment mid-file
HDFCBANK,token123,extra
`)

	got, err := LoadSymbols(path)
	if err != nil {
		t.Fatalf("LoadSymbols: %v", err)
	}
	want := []string{"INFY", "TCS", "RELIANCE", "HDFCBANK"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadSymbols_KeepsDuplicates(t *testing.T) {
	path := writeSymbolsFile(t, "INFY\ninfy\n")
	got, err := LoadSymbols(path)
	if err != nil {
		t.Fatalf("LoadSymbols: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, duplicates should be kept", got)
	}
}

func TestLoadSymbols_MissingFile(t *testing.T) {
	if _, err := LoadSymbols(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
