// Package model holds the shared domain types: sources, unified price
// records, run logs, and the constants that tie the pipeline together.
package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Extraction strategy types.
const (
	ExtractionAPI       = "api"
	ExtractionHTMLTable = "html_table"
	ExtractionPDFExcel  = "pdf_excel"
)

// ExtractionPriority orders strategies by preference (API first).
var ExtractionPriority = []string{ExtractionAPI, ExtractionHTMLTable, ExtractionPDFExcel}

// Health status values for sources.
const (
	HealthOK     = "OK"
	HealthStale  = "STALE"
	HealthBroken = "BROKEN"
)

// DefaultUnit is the unit every normalized price record carries unless the
// schema mapping set one.
const DefaultUnit = "quintal"

// UnifiedFields is the exact column order of the unified price schema.
var UnifiedFields = []string{
	"cropId", "cropName",
	"mandiId", "mandiName",
	"stateId", "stateName",
	"date",
	"minPrice", "maxPrice", "modalPrice",
	"unit", "arrival", "source",
}

// RequiredFields must be non-empty in a normalized price record.
var RequiredFields = []string{"cropName", "mandiName", "stateName", "date", "modalPrice"}

// MinDiscoveryConfidence is the confidence floor below which an
// oracle-produced extraction config is rejected.
const MinDiscoveryConfidence = 0.6

// Conversion is a per-unified-field transformation rule produced by the
// mapping oracle and applied by the normalizer.
type Conversion struct {
	Multiply   *float64 `bson:"multiply,omitempty" json:"multiply,omitempty"`
	DateFormat string   `bson:"date_format,omitempty" json:"date_format,omitempty"`
	Comment    string   `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Source is a portal configuration document in the sources collection.
// It is keyed by EntryURL; discovery fills the extraction fields and the
// mapping oracle fills SchemaMapping/Conversions.
type Source struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EntryURL string            `bson:"entryUrl" json:"entryUrl" validate:"required,url"`
	BaseURL  string            `bson:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	Name     string            `bson:"name,omitempty" json:"name,omitempty"`
	Region   string            `bson:"region,omitempty" json:"region,omitempty"`

	ExtractionType string `bson:"extractionType,omitempty" json:"extractionType,omitempty" validate:"omitempty,oneof=api html_table pdf_excel"`

	// API strategy
	Endpoint         string            `bson:"endpoint,omitempty" json:"endpoint,omitempty" validate:"required_if=ExtractionType api"`
	EndpointMethod   string            `bson:"endpointMethod,omitempty" json:"endpointMethod,omitempty"`
	EndpointParams   map[string]any    `bson:"endpointParams,omitempty" json:"endpointParams,omitempty"`
	EndpointHeaders  map[string]string `bson:"endpointHeaders,omitempty" json:"endpointHeaders,omitempty"`
	EndpointPostData map[string]any    `bson:"endpointPostData,omitempty" json:"endpointPostData,omitempty"`
	PostContentType  string            `bson:"postContentType,omitempty" json:"postContentType,omitempty"`
	Paginate         string            `bson:"paginate,omitempty" json:"paginate,omitempty" validate:"omitempty,oneof=none page offset"`

	// HTML table strategy
	HTMLPageURL      string   `bson:"htmlPageUrl,omitempty" json:"htmlPageUrl,omitempty"`
	HTMLSelector     string   `bson:"htmlSelector,omitempty" json:"htmlSelector,omitempty"`
	HTMLTableHeaders []string `bson:"htmlTableHeaders,omitempty" json:"htmlTableHeaders,omitempty"`

	// File strategy
	FileURL  string `bson:"fileUrl,omitempty" json:"fileUrl,omitempty" validate:"required_if=ExtractionType pdf_excel"`
	FileType string `bson:"fileType,omitempty" json:"fileType,omitempty"`

	// Schema mapping
	SchemaMapping     map[string]string     `bson:"schemaMapping,omitempty" json:"schemaMapping,omitempty"`
	Conversions       map[string]Conversion `bson:"conversions,omitempty" json:"conversions,omitempty"`
	AIConfidence      float64               `bson:"aiConfidence,omitempty" json:"aiConfidence,omitempty"`
	AIReasoning       string                `bson:"aiReasoning,omitempty" json:"aiReasoning,omitempty"`
	MappingConfidence float64               `bson:"mappingConfidence,omitempty" json:"mappingConfidence,omitempty"`
	UnmappedFields    []string              `bson:"unmappedFields,omitempty" json:"unmappedFields,omitempty"`
	MappingNotes      string                `bson:"mappingNotes,omitempty" json:"mappingNotes,omitempty"`

	// Health
	HealthStatus    string    `bson:"healthStatus,omitempty" json:"healthStatus,omitempty"`
	HealthUpdatedAt time.Time `bson:"healthUpdatedAt,omitempty" json:"healthUpdatedAt,omitempty"`
	LastSuccessAt   time.Time `bson:"lastSuccessAt,omitempty" json:"lastSuccessAt,omitempty"`
	LastError       string    `bson:"lastError,omitempty" json:"lastError,omitempty"`

	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`

	// NeedsDiscovery marks a bare source built from a single URL that has
	// no stored extraction config. Never persisted.
	NeedsDiscovery bool `bson:"-" json:"-"`
}

// SourceName returns the display name for the source field of normalized
// records, falling back to "other".
func (s *Source) SourceName() string {
	if s.Name != "" {
		return s.Name
	}
	return "other"
}

// RunError is a single error recorded during a run.
type RunError struct {
	URL       string    `bson:"url" json:"url"`
	Error     string    `bson:"error" json:"error"`
	Fatal     bool      `bson:"fatal" json:"fatal"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// RunLog is the per-execution document stored in scrape_runs.
type RunLog struct {
	SourceID         string     `bson:"sourceId" json:"sourceId"`
	SourceURL        string     `bson:"sourceUrl" json:"sourceUrl"`
	StartTime        time.Time  `bson:"startTime" json:"startTime"`
	DurationSeconds  float64    `bson:"durationSeconds" json:"durationSeconds"`
	VisitedURLs      []string   `bson:"visitedUrls" json:"visitedUrls"`
	VisitedCount     int        `bson:"visitedCount" json:"visitedCount"`
	RecordsExtracted int        `bson:"recordsExtracted" json:"recordsExtracted"`
	RecordsSaved     int        `bson:"recordsSaved" json:"recordsSaved"`
	Errors           []RunError `bson:"errors" json:"errors"`
	ErrorCount       int        `bson:"errorCount" json:"errorCount"`
	Success          bool       `bson:"success" json:"success"`
	CreatedAt        time.Time  `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// PriceRecord is a normalized price row. Records stay map-shaped because the
// raw side is schemaless and output adapters may carry extra columns beyond
// the unified set.
type PriceRecord = map[string]any

// NameToID derives a URL-safe identifier from a display name:
// "New Delhi, Azadpur" -> "new-delhi-azadpur".
func NameToID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "-")
	id = strings.ReplaceAll(id, ",", "")
	return id
}
