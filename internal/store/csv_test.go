package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mandipulse/mandipulse/internal/model"
)

// --- CSV Input Tests ---

func TestCSVInputLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.csv")
	data := strings.Join([]string{
		"entryUrl,baseUrl,name,extractionType,endpoint",
		"https://agmarknet.gov.in,https://agmarknet.gov.in,Agmarknet,api,https://agmarknet.gov.in/api/prices",
		"https://enam.gov.in,,eNAM,,",
		",,,,",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := NewCSVInput(path).LoadSources(context.Background())
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2 (blank entryUrl skipped)", len(sources))
	}
	if sources[0].ExtractionType != "api" || sources[0].Endpoint == "" {
		t.Errorf("first source = %+v", sources[0])
	}
	if sources[1].BaseURL != "https://enam.gov.in" {
		t.Errorf("baseUrl should default to entryUrl, got %q", sources[1].BaseURL)
	}
}

func TestCSVInputMissingFile(t *testing.T) {
	if _, err := NewCSVInput("/nonexistent/sources.csv").LoadSources(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- CSV Output Tests ---

func TestCSVOutputSavePrices(t *testing.T) {
	dir := t.TempDir()
	out, err := NewCSVOutput(dir)
	if err != nil {
		t.Fatal(err)
	}

	records := []model.PriceRecord{
		{
			"cropName": "Wheat", "cropId": "wheat",
			"mandiName": "Vashi", "mandiId": "vashi",
			"stateName": "Maharashtra", "stateId": "maharashtra",
			"date": "2024-01-15", "modalPrice": 2250.0,
			"unit": "quintal", "source": "agmarknet",
			"sourceId": "abc123",
		},
	}

	n, err := out.SavePrices(context.Background(), records)
	if err != nil {
		t.Fatalf("SavePrices: %v", err)
	}
	if n != 1 {
		t.Errorf("saved = %d, want 1", n)
	}

	csvFiles, _ := filepath.Glob(filepath.Join(dir, "prices_*.csv"))
	jsonFiles, _ := filepath.Glob(filepath.Join(dir, "prices_*.json"))
	if len(csvFiles) != 1 || len(jsonFiles) != 1 {
		t.Fatalf("files = %v %v, want one CSV and one JSON", csvFiles, jsonFiles)
	}

	f, err := os.Open(csvFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 record", len(rows))
	}
	for i, want := range model.UnifiedFields {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], want)
		}
	}
	// Extra fields beyond the unified set are appended.
	last := rows[0][len(rows[0])-1]
	if last != "sourceId" {
		t.Errorf("extra column = %q, want sourceId", last)
	}
	if rows[1][1] != "Wheat" {
		t.Errorf("cropName cell = %q", rows[1][1])
	}
}

func TestCSVOutputEmptyRecords(t *testing.T) {
	dir := t.TempDir()
	out, _ := NewCSVOutput(dir)

	n, err := out.SavePrices(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("SavePrices(nil) = %d, %v, want 0, nil", n, err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestCSVOutputSourceConfigArtifact(t *testing.T) {
	dir := t.TempDir()
	out, _ := NewCSVOutput(dir)

	src := &model.Source{
		EntryURL:       "https://agmarknet.gov.in/prices",
		Name:           "Agmarknet Portal",
		ExtractionType: model.ExtractionAPI,
	}
	if err := out.SaveSourceConfig(context.Background(), src); err != nil {
		t.Fatalf("SaveSourceConfig: %v", err)
	}

	path := filepath.Join(dir, "source_Agmarknet_Portal.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	var decoded model.Source
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if decoded.EntryURL != src.EntryURL || decoded.ExtractionType != model.ExtractionAPI {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestCSVOutputRunArtifact(t *testing.T) {
	dir := t.TempDir()
	out, _ := NewCSVOutput(dir)

	runLog := model.RunLog{
		SourceURL:    "https://a.in",
		RecordsSaved: 42,
		Success:      true,
	}
	if err := out.SaveRun(context.Background(), runLog); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "run_*.json"))
	if len(files) != 1 {
		t.Fatalf("files = %v, want one run artifact", files)
	}
	data, _ := os.ReadFile(files[0])
	var decoded model.RunLog
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RecordsSaved != 42 || !decoded.Success {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestSafeFilename(t *testing.T) {
	if got := safeFilename("https://a.in/path?x=1"); strings.ContainsAny(got, ":/?=") {
		t.Errorf("safeFilename = %q, want only safe characters", got)
	}
}
