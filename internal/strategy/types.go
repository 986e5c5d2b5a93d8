// Package strategy runs the two oracle modes: discovery (pick an
// extraction strategy from crawl candidates) and mapping (map raw fields to
// the unified price schema).
package strategy

import (
	"github.com/mandipulse/mandipulse/internal/model"
)

// ExtractionConfig is the oracle's strategy recommendation for a source.
type ExtractionConfig struct {
	ExtractionType string  `json:"extraction_type" validate:"required,oneof=api html_table pdf_excel"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning      string  `json:"reasoning"`

	// API fields
	Endpoint string            `json:"endpoint,omitempty"`
	Method   string            `json:"method,omitempty"`
	Params   map[string]any    `json:"params,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`

	// HTML table fields
	PageURL      string   `json:"page_url,omitempty"`
	HTMLSelector string   `json:"html_selector,omitempty"`
	TableHeaders []string `json:"table_headers,omitempty"`

	// File fields
	FileURL  string `json:"file_url,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

// ApplyToSource copies the recommendation into a source document.
func (c *ExtractionConfig) ApplyToSource(s *model.Source) {
	s.ExtractionType = c.ExtractionType
	s.AIConfidence = c.Confidence
	s.AIReasoning = c.Reasoning

	switch c.ExtractionType {
	case model.ExtractionAPI:
		s.Endpoint = c.Endpoint
		s.EndpointMethod = c.Method
		s.EndpointParams = c.Params
		s.EndpointHeaders = c.Headers
	case model.ExtractionHTMLTable:
		s.HTMLPageURL = c.PageURL
		s.HTMLSelector = c.HTMLSelector
		s.HTMLTableHeaders = c.TableHeaders
	case model.ExtractionPDFExcel:
		s.FileURL = c.FileURL
		s.FileType = c.FileType
	}
}

// SchemaMapping is the oracle's field mapping for a source's raw records.
type SchemaMapping struct {
	SchemaMapping  map[string]string           `json:"schema_mapping"`
	Conversions    map[string]model.Conversion `json:"conversions,omitempty"`
	Confidence     float64                     `json:"confidence" validate:"gte=0,lte=1"`
	UnmappedFields []string                    `json:"unmapped_fields,omitempty"`
	Notes          string                      `json:"notes,omitempty"`
}

// ApplyToSource copies the mapping into a source document.
func (m *SchemaMapping) ApplyToSource(s *model.Source) {
	s.SchemaMapping = m.SchemaMapping
	s.Conversions = m.Conversions
	s.MappingConfidence = m.Confidence
	s.UnmappedFields = m.UnmappedFields
	s.MappingNotes = m.Notes
}

// extractionConfigSchema is the JSON schema sent to the oracle in discovery
// mode.
var extractionConfigSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"extraction_type": map[string]any{
			"type":        "string",
			"enum":        []any{"api", "html_table", "pdf_excel"},
			"description": "Type of extraction: 'api', 'html_table', or 'pdf_excel'",
		},
		"confidence": map[string]any{
			"type":        "number",
			"description": "Confidence score between 0.0 and 1.0",
		},
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Brief explanation of why this method was chosen",
		},
		"endpoint": map[string]any{
			"type":        "string",
			"description": "API endpoint URL",
		},
		"method": map[string]any{
			"type":        "string",
			"description": "HTTP method",
		},
		"params": map[string]any{
			"type":        "object",
			"description": "Query parameters or POST body",
		},
		"headers": map[string]any{
			"type":        "object",
			"description": "Required request headers",
		},
		"page_url": map[string]any{
			"type":        "string",
			"description": "URL of the page containing the table",
		},
		"html_selector": map[string]any{
			"type":        "string",
			"description": "CSS selector for the target table",
		},
		"table_headers": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Expected column headers",
		},
		"file_url": map[string]any{
			"type":        "string",
			"description": "URL of the downloadable file",
		},
		"file_type": map[string]any{
			"type":        "string",
			"description": "File type: 'pdf' or 'excel'",
		},
	},
	"required": []any{"extraction_type", "confidence", "reasoning"},
}

// schemaMappingSchema is the JSON schema sent to the oracle in mapping mode.
var schemaMappingSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"schema_mapping": map[string]any{
			"type": "object",
			"description": "Map of raw field names to unified schema field names. " +
				"Example: {'commodity': 'cropName', 'market': 'mandiName'}",
		},
		"conversions": map[string]any{
			"type": "object",
			"description": "Conversion rules keyed by unified field name. " +
				"Example: {'modalPrice': {'multiply': 100, 'comment': 'kg to quintal'}}",
		},
		"confidence": map[string]any{
			"type":        "number",
			"description": "Confidence score between 0.0 and 1.0",
		},
		"unmapped_fields": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Raw fields that could not be mapped to the schema",
		},
		"notes": map[string]any{
			"type":        "string",
			"description": "Any additional observations about the data",
		},
	},
	"required": []any{"schema_mapping", "confidence"},
}
