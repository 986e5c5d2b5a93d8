// Package run holds the mutable per-run context threaded through the
// discovery and scraping pipeline.
package run

import (
	"time"

	"github.com/mandipulse/mandipulse/internal/config"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
)

// Context accumulates per-run state: visited URLs, errors, and record
// counters. It is not safe for concurrent use; the pipeline is sequential.
type Context struct {
	Config *config.Config

	SourceID  string
	SourceURL string
	StartTime time.Time

	VisitedURLs      []string
	Errors           []model.RunError
	RecordsExtracted int
	RecordsSaved     int
}

// NewContext starts a run clock for one source.
func NewContext(cfg *config.Config) *Context {
	return &Context{
		Config:    cfg,
		StartTime: time.Now().UTC(),
	}
}

// Elapsed returns the time since the run started.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// AddError records an error against a URL. Fatal errors mark the whole run
// failed.
func (c *Context) AddError(url string, err error, fatal bool) {
	c.Errors = append(c.Errors, model.RunError{
		URL:       url,
		Error:     err.Error(),
		Fatal:     fatal,
		Timestamp: time.Now().UTC(),
	})
	if fatal {
		logger.Error("fatal run error", "url", url, "error", err)
	} else {
		logger.Warn("run error", "url", url, "error", err)
	}
}

// MarkVisited records a URL as visited.
func (c *Context) MarkVisited(url string) {
	c.VisitedURLs = append(c.VisitedURLs, url)
}

// Success reports whether the run had no fatal errors.
func (c *Context) Success() bool {
	for _, e := range c.Errors {
		if e.Fatal {
			return false
		}
	}
	return true
}

// ToRunLog snapshots the context into a run log document.
func (c *Context) ToRunLog() model.RunLog {
	return model.RunLog{
		SourceID:         c.SourceID,
		SourceURL:        c.SourceURL,
		StartTime:        c.StartTime,
		DurationSeconds:  c.Elapsed().Seconds(),
		VisitedURLs:      c.VisitedURLs,
		VisitedCount:     len(c.VisitedURLs),
		RecordsExtracted: c.RecordsExtracted,
		RecordsSaved:     c.RecordsSaved,
		Errors:           c.Errors,
		ErrorCount:       len(c.Errors),
		Success:          c.Success(),
		CreatedAt:        time.Now().UTC(),
	}
}
