// Package discovery crawls a portal from its entry URL, running the
// network sniffer and the table/file detectors over every visited page to
// collect extraction-strategy candidates.
package discovery

import (
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/queue"
)

// PageSummary is the per-page record kept for oracle context.
type PageSummary struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	LinksCount int    `json:"links_count"`
	HasTables  bool   `json:"has_tables"`
	HasFiles   bool   `json:"has_files"`
}

// Result aggregates everything the discovery pipeline found for one source.
type Result struct {
	SourceURL string `json:"source_url"`
	BaseURL   string `json:"base_url"`

	PagesVisited []PageSummary `json:"pages_visited"`

	APICandidates   []APICandidate   `json:"api_candidates"`
	TableCandidates []TableCandidate `json:"table_candidates"`
	FileCandidates  []FileCandidate  `json:"file_candidates"`

	QueueStats queue.Stats      `json:"queue_stats"`
	Errors     []model.RunError `json:"errors,omitempty"`
}

// HasCandidates reports whether any extraction strategy surfaced.
func (r *Result) HasCandidates() bool {
	return len(r.APICandidates) > 0 || len(r.TableCandidates) > 0 || len(r.FileCandidates) > 0
}

// BestAPICandidate returns the top-scored API candidate, or nil.
func (r *Result) BestAPICandidate() *APICandidate {
	if len(r.APICandidates) == 0 {
		return nil
	}
	best := &r.APICandidates[0]
	for i := range r.APICandidates {
		if r.APICandidates[i].RelevanceScore > best.RelevanceScore {
			best = &r.APICandidates[i]
		}
	}
	return best
}

// BestTableCandidate returns the top-scored table candidate, or nil.
func (r *Result) BestTableCandidate() *TableCandidate {
	if len(r.TableCandidates) == 0 {
		return nil
	}
	best := &r.TableCandidates[0]
	for i := range r.TableCandidates {
		if r.TableCandidates[i].Score > best.Score {
			best = &r.TableCandidates[i]
		}
	}
	return best
}

// OracleContext is the trimmed view of a Result sent to the language model.
// Page summaries cap at 20, candidate lists at 5, table samples at 2 rows.
type OracleContext struct {
	SourceURL         string           `json:"source_url"`
	BaseURL           string           `json:"base_url"`
	PagesVisitedCount int              `json:"pages_visited_count"`
	PagesSummary      []PageSummary    `json:"pages_summary"`
	APICandidates     []APICandidate   `json:"api_candidates"`
	TableCandidates   []TableCandidate `json:"table_candidates"`
	FileCandidates    []FileCandidate  `json:"file_candidates"`
}

// ToOracleContext trims the result to fit a model context window.
func (r *Result) ToOracleContext() OracleContext {
	ctx := OracleContext{
		SourceURL:         r.SourceURL,
		BaseURL:           r.BaseURL,
		PagesVisitedCount: len(r.PagesVisited),
	}

	pages := r.PagesVisited
	if len(pages) > 20 {
		pages = pages[:20]
	}
	ctx.PagesSummary = pages

	apis := r.APICandidates
	if len(apis) > 5 {
		apis = apis[:5]
	}
	ctx.APICandidates = apis

	tables := r.TableCandidates
	if len(tables) > 5 {
		tables = tables[:5]
	}
	for _, t := range tables {
		if len(t.SampleRows) > 2 {
			t.SampleRows = t.SampleRows[:2]
		}
		ctx.TableCandidates = append(ctx.TableCandidates, t)
	}

	files := r.FileCandidates
	if len(files) > 5 {
		files = files[:5]
	}
	ctx.FileCandidates = files

	return ctx
}
