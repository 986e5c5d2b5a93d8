package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mandipulse/mandipulse/internal/config"
)

func csvRunnerConfig(t *testing.T, sourcesCSV string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "sources.csv")
	if err := os.WriteFile(inputPath, []byte(sourcesCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		DBName:       "mandi_insights",
		LLMProvider:  "google",
		AgentMode:    config.ModeScrape,
		InputMode:    config.InputCSV,
		LogMode:      config.LogTxt,
		CSVInputPath: inputPath,
		CSVOutputDir: filepath.Join(dir, "out"),
	}
}

// --- Runner Tests ---

func TestRunScrapeModeOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"commodity": "Wheat", "modal": "2250"},
			{"commodity": "Onion", "modal": "1500"},
		})
	}))
	defer srv.Close()

	cfg := csvRunnerConfig(t,
		"entryUrl,name,extractionType,endpoint\n"+
			srv.URL+",Test Portal,api,"+srv.URL+"\n")

	r := New(cfg)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	prices, _ := filepath.Glob(filepath.Join(cfg.CSVOutputDir, "prices_*.csv"))
	runs, _ := filepath.Glob(filepath.Join(cfg.CSVOutputDir, "run_*.json"))
	if len(prices) != 1 {
		t.Errorf("price files = %v, want one", prices)
	}
	if len(runs) != 1 {
		t.Errorf("run files = %v, want one", runs)
	}
}

func TestRunScrapeModeNoSources(t *testing.T) {
	cfg := csvRunnerConfig(t, "entryUrl,name\n")

	if err := New(cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run with empty sources: %v", err)
	}
}

func TestRunUnknownMode(t *testing.T) {
	cfg := csvRunnerConfig(t, "entryUrl\n")
	cfg.AgentMode = "replay"

	if err := New(cfg).Run(context.Background()); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestResolveSingleURLBuildsBareSource(t *testing.T) {
	cfg := csvRunnerConfig(t, "entryUrl\n")
	r := New(cfg)

	src, err := r.resolveSingleURL(context.Background(), "HTTPS://Agmarknet.gov.in/prices/")
	if err != nil {
		t.Fatalf("resolveSingleURL: %v", err)
	}
	if !src.NeedsDiscovery {
		t.Error("bare source should need discovery")
	}
	if src.EntryURL != "https://agmarknet.gov.in/prices" {
		t.Errorf("entryUrl = %q, want normalized", src.EntryURL)
	}
	if src.BaseURL != "https://agmarknet.gov.in" {
		t.Errorf("baseUrl = %q", src.BaseURL)
	}
}
