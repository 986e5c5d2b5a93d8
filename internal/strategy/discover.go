package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mandipulse/mandipulse/internal/discovery"
	"github.com/mandipulse/mandipulse/internal/llm"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
)

// ErrNoCandidates means discovery surfaced nothing for the oracle to
// analyze.
var ErrNoCandidates = errors.New("no extraction candidates found")

// ErrLowConfidence means the oracle's recommendation fell below the
// acceptance threshold.
var ErrLowConfidence = errors.New("oracle confidence below threshold")

// Discover asks the oracle to pick an extraction strategy from the
// discovery result. The raw recommendation is normalized (type aliases,
// generic selectors) before the confidence gate is applied.
func Discover(ctx context.Context, provider llm.Provider, result *discovery.Result) (*ExtractionConfig, error) {
	if !result.HasCandidates() {
		return nil, ErrNoCandidates
	}

	contextJSON, err := json.MarshalIndent(result.ToOracleContext(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing discovery context: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: discoverySystemPrompt},
		{Role: llm.RoleUser, Content: discoveryUserPrompt(string(contextJSON))},
	}

	var cfg ExtractionConfig
	if err := llm.CompleteJSON(ctx, provider, messages, extractionConfigSchema, &cfg); err != nil {
		return nil, fmt.Errorf("discovery analysis: %w", err)
	}

	cfg.ExtractionType = normalizeExtractionType(cfg.ExtractionType)
	cfg.HTMLSelector = sanitizeSelector(cfg.HTMLSelector)

	logger.Info("oracle recommendation",
		"type", cfg.ExtractionType,
		"confidence", cfg.Confidence,
		"reasoning", cfg.Reasoning)

	if cfg.Confidence < model.MinDiscoveryConfidence {
		return nil, fmt.Errorf("%w: %.2f < %.2f",
			ErrLowConfidence, cfg.Confidence, model.MinDiscoveryConfidence)
	}

	return &cfg, nil
}

// normalizeExtractionType folds the aliases models emit for the three
// canonical types.
func normalizeExtractionType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "api", "json", "endpoint":
		return model.ExtractionAPI
	case "html_table", "html", "table", "htmltable", "html-table":
		return model.ExtractionHTMLTable
	case "pdf_excel", "pdf", "excel", "file", "pdf-excel":
		return model.ExtractionPDFExcel
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// sanitizeSelector blanks selectors that are HTML fragments or too generic
// to target a single table.
func sanitizeSelector(sel string) string {
	sel = strings.TrimSpace(sel)
	if strings.HasPrefix(sel, "<") || sel == "table" {
		return ""
	}
	return sel
}
