package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
)

// CSVInput loads source configurations from a CSV file for offline runs.
type CSVInput struct {
	path string
}

// NewCSVInput points the adapter at a sources CSV file.
func NewCSVInput(path string) *CSVInput {
	return &CSVInput{path: path}
}

// LoadSources reads source configs from the CSV. Expected columns:
// entryUrl (required), baseUrl, name, extractionType, endpoint.
func (c *CSVInput) LoadSources(_ context.Context) ([]model.Source, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening sources CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing sources CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var sources []model.Source
	for _, row := range rows[1:] {
		entryURL := field(row, "entryUrl")
		if entryURL == "" {
			continue
		}

		src := model.Source{
			EntryURL: entryURL,
			BaseURL:  field(row, "baseUrl"),
			Name:     field(row, "name"),
		}
		if src.BaseURL == "" {
			src.BaseURL = entryURL
		}
		if t := field(row, "extractionType"); t != "" {
			src.ExtractionType = t
		}
		if e := field(row, "endpoint"); e != "" {
			src.Endpoint = e
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// CSVOutput saves scrape results to local CSV and JSON files.
type CSVOutput struct {
	dir string
}

// NewCSVOutput creates the output directory if needed.
func NewCSVOutput(dir string) (*CSVOutput, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &CSVOutput{dir: dir}, nil
}

// SavePrices writes the records as both CSV and JSON, returning the record
// count.
func (c *CSVOutput) SavePrices(_ context.Context, records []model.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stamp := time.Now().UTC().Format("20060102_150405")

	csvPath := filepath.Join(c.dir, "prices_"+stamp+".csv")
	if err := writePriceCSV(csvPath, records); err != nil {
		return 0, err
	}
	logger.Info("wrote price CSV", "path", csvPath, "records", len(records))

	jsonPath := filepath.Join(c.dir, "prices_"+stamp+".json")
	if err := writeJSON(jsonPath, records); err != nil {
		return 0, err
	}
	logger.Info("wrote price JSON", "path", jsonPath, "records", len(records))

	return len(records), nil
}

// SaveSourceConfig writes a source config JSON artifact.
func (c *CSVOutput) SaveSourceConfig(_ context.Context, src *model.Source) error {
	name := src.Name
	if name == "" {
		name = src.EntryURL
	}
	path := filepath.Join(c.dir, "source_"+safeFilename(name)+".json")
	if err := writeJSON(path, src); err != nil {
		return err
	}
	logger.Info("wrote source config", "path", path)
	return nil
}

// SaveRun writes a run log JSON artifact.
func (c *CSVOutput) SaveRun(_ context.Context, runLog model.RunLog) error {
	stamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(c.dir, "run_"+stamp+".json")
	if err := writeJSON(path, runLog); err != nil {
		return err
	}
	logger.Info("wrote run log", "path", path)
	return nil
}

// writePriceCSV writes records in the unified column order, with any extra
// fields appended alphabetically.
func writePriceCSV(path string, records []model.PriceRecord) error {
	fields := append([]string{}, model.UnifiedFields...)
	known := map[string]bool{}
	for _, f := range fields {
		known[f] = true
	}
	var extra []string
	for key := range records[0] {
		if !known[key] && !strings.HasPrefix(key, "_") {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	fields = append(fields, extra...)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, len(fields))
		for i, field := range fields {
			row[i] = cellString(rec[field])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating JSON: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func safeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
