package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mandipulse/mandipulse/internal/llm"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
)

// ErrNoRawFields means no field names were available to map.
var ErrNoRawFields = errors.New("no raw fields to map")

// MapSchema asks the oracle to map raw source fields to the unified price
// schema. Missing required fields are reported through the validator but do
// not fail the mapping.
func MapSchema(ctx context.Context, provider llm.Provider, rawFields []string, samples []model.PriceRecord, sourceURL, extractionType string) (*SchemaMapping, error) {
	if len(rawFields) == 0 {
		return nil, ErrNoRawFields
	}

	if len(samples) > 3 {
		samples = samples[:3]
	}

	fieldsJSON, err := json.Marshal(rawFields)
	if err != nil {
		return nil, fmt.Errorf("serializing raw fields: %w", err)
	}
	sampleJSON, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing sample data: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: mappingSystemPrompt},
		{Role: llm.RoleUser, Content: mappingUserPrompt(
			string(fieldsJSON), string(sampleJSON), sourceURL, extractionType)},
	}

	var mapping SchemaMapping
	if err := llm.CompleteJSON(ctx, provider, messages, schemaMappingSchema, &mapping); err != nil {
		return nil, fmt.Errorf("mapping analysis: %w", err)
	}

	logger.Info("oracle mapping",
		"mapped", len(mapping.SchemaMapping),
		"unmapped", len(mapping.UnmappedFields),
		"confidence", mapping.Confidence)

	if problems := model.ValidateSchemaMapping(mapping.SchemaMapping); len(problems) > 0 {
		for _, p := range problems {
			logger.Warn("schema mapping issue", "source", sourceURL, "issue", p)
		}
	}

	return &mapping, nil
}
