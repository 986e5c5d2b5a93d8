// Package runner dispatches the configured agent mode: scrape existing
// sources, discover extraction strategies, both, or handle a single URL
// end to end.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mandipulse/mandipulse/internal/browser"
	"github.com/mandipulse/mandipulse/internal/config"
	"github.com/mandipulse/mandipulse/internal/discovery"
	"github.com/mandipulse/mandipulse/internal/health"
	"github.com/mandipulse/mandipulse/internal/llm"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/run"
	"github.com/mandipulse/mandipulse/internal/scrape"
	"github.com/mandipulse/mandipulse/internal/store"
	"github.com/mandipulse/mandipulse/internal/strategy"
	"github.com/mandipulse/mandipulse/internal/urlutil"
)

// Runner wires the pipeline for one invocation of the agent.
type Runner struct {
	cfg      *config.Config
	db       *store.DB
	loader   store.SourceLoader
	output   store.Output
	provider llm.Provider
}

// New creates a runner for the given configuration.
func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run connects storage, then executes the configured mode.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.setup(ctx); err != nil {
		return err
	}
	defer r.teardown()

	logger.Info("runner dispatching", "mode", r.cfg.AgentMode)

	switch r.cfg.AgentMode {
	case config.ModeScrape:
		return r.runScrape(ctx)
	case config.ModeDiscover:
		return r.runDiscover(ctx)
	case config.ModeDiscoverAndScrape:
		return r.runDiscoverAndScrape(ctx)
	case config.ModeSingleURL:
		return r.runSingleURL(ctx)
	}
	return fmt.Errorf("unknown agent mode: %s", r.cfg.AgentMode)
}

// setup connects Mongo when the configuration asks for it, degrading to the
// CSV adapters with a warning when the database is unreachable.
func (r *Runner) setup(ctx context.Context) error {
	wantMongo := r.cfg.InputMode == config.InputMongo || r.cfg.LogMode == config.LogMongo
	if wantMongo {
		db, err := store.Connect(ctx, r.cfg.MongoURI, r.cfg.DBName)
		if err != nil {
			logger.Warn("mongo unavailable, degrading to CSV output", "error", err)
		} else {
			r.db = db
			if err := db.Prices().EnsureIndexes(ctx); err != nil {
				logger.Warn("could not ensure indexes", "error", err)
			}
			if r.cfg.LogMode == config.LogMongo {
				logger.AttachSink(logger.NewMongoSink(db.Collection("agent_logs")))
			}
		}
	}

	if r.cfg.InputMode == config.InputCSV || r.db == nil {
		r.loader = store.NewCSVInput(r.cfg.CSVInputPath)
	} else {
		r.loader = store.NewMongoLoader(r.db)
	}

	if r.cfg.InputMode == config.InputCSV || r.db == nil {
		out, err := store.NewCSVOutput(r.cfg.CSVOutputDir)
		if err != nil {
			return err
		}
		r.output = out
	} else {
		r.output = store.NewMongoOutput(r.db)
	}
	return nil
}

func (r *Runner) teardown() {
	if r.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.db.Close(ctx); err != nil {
			logger.Warn("closing mongo", "error", err)
		}
	}
}

// oracle lazily builds the LLM provider; scrape-only runs never need one.
func (r *Runner) oracle() (llm.Provider, error) {
	if r.provider != nil {
		return r.provider, nil
	}

	pcfg := llm.DefaultProviderConfig()
	pcfg.APIKey = r.cfg.APIKey()
	if r.cfg.LLMProvider == "openrouter" {
		pcfg.Models = r.cfg.OpenRouterModels
	}

	provider, err := llm.NewProvider(r.cfg.LLMProvider, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", r.cfg.LLMProvider, err)
	}
	r.provider = provider
	return provider, nil
}

// --- Modes ---

func (r *Runner) runScrape(ctx context.Context) error {
	sources, err := r.loader.LoadSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		logger.Warn("no sources to scrape")
		return nil
	}

	for i := range sources {
		src := &sources[i]
		logger.Info("scraping source", "n", i+1, "of", len(sources), "url", src.EntryURL)
		r.scrapeAndRecord(ctx, src)
	}
	return nil
}

func (r *Runner) runDiscover(ctx context.Context) error {
	sources, err := r.loader.LoadSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		logger.Warn("no sources to discover")
		return nil
	}

	for i := range sources {
		src := &sources[i]
		logger.Info("discovering source", "n", i+1, "of", len(sources), "url", src.EntryURL)

		rc := run.NewContext(r.cfg)
		rc.SourceURL = src.EntryURL

		if extraction, err := r.discoverSource(ctx, rc, src.EntryURL); err != nil {
			logger.Warn("discovery failed", "url", src.EntryURL, "error", err)
		} else {
			extraction.ApplyToSource(src)
			if err := r.output.SaveSourceConfig(ctx, src); err != nil {
				logger.Warn("saving source config", "url", src.EntryURL, "error", err)
			}
			r.mapSource(ctx, rc, src)
		}

		if err := r.output.SaveRun(ctx, rc.ToRunLog()); err != nil {
			logger.Warn("saving run log", "error", err)
		}
	}
	return nil
}

func (r *Runner) runDiscoverAndScrape(ctx context.Context) error {
	sources, err := r.loader.LoadSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		logger.Warn("no sources to process")
		return nil
	}

	for i := range sources {
		src := &sources[i]
		logger.Info("processing source", "n", i+1, "of", len(sources), "url", src.EntryURL)

		if src.ExtractionType == "" {
			rc := run.NewContext(r.cfg)
			rc.SourceURL = src.EntryURL

			extraction, err := r.discoverSource(ctx, rc, src.EntryURL)
			if err != nil {
				logger.Warn("discovery failed, skipping scrape", "url", src.EntryURL, "error", err)
				continue
			}
			extraction.ApplyToSource(src)
			if err := r.output.SaveSourceConfig(ctx, src); err != nil {
				logger.Warn("saving source config", "url", src.EntryURL, "error", err)
			}
			r.mapSource(ctx, rc, src)
		}

		r.scrapeAndRecord(ctx, src)
	}
	return nil
}

func (r *Runner) runSingleURL(ctx context.Context) error {
	targetURL := r.cfg.TargetURL
	logger.Info("single URL mode", "url", targetURL)

	src, err := r.resolveSingleURL(ctx, targetURL)
	if err != nil {
		return err
	}

	if src.NeedsDiscovery {
		rc := run.NewContext(r.cfg)
		rc.SourceURL = src.EntryURL

		extraction, err := r.discoverSource(ctx, rc, src.EntryURL)
		if err != nil {
			r.updateHealth(ctx, src, false, 0)
			return fmt.Errorf("discovery failed for %s: %w", targetURL, err)
		}
		extraction.ApplyToSource(src)
		if err := r.output.SaveSourceConfig(ctx, src); err != nil {
			logger.Warn("saving source config", "url", src.EntryURL, "error", err)
		}
		r.mapSource(ctx, rc, src)
	}

	r.scrapeAndRecord(ctx, src)
	return nil
}

// resolveSingleURL checks storage for an existing config before building a
// bare source that still needs discovery.
func (r *Runner) resolveSingleURL(ctx context.Context, targetURL string) (*model.Source, error) {
	if r.db != nil {
		existing, err := r.db.Sources().FindByURL(ctx, targetURL)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", targetURL, err)
		}
		if existing != nil {
			logger.Info("found existing source config", "url", targetURL, "type", existing.ExtractionType)
			existing.NeedsDiscovery = existing.ExtractionType == ""
			return existing, nil
		}
	}

	normalized := urlutil.Normalize(targetURL)
	return &model.Source{
		EntryURL:       normalized,
		BaseURL:        urlutil.BaseURL(normalized),
		NeedsDiscovery: true,
	}, nil
}

// --- Pipeline Steps ---

// scrapeAndRecord runs the scrape engine for one source, persists the
// records and the run log, and updates health. The run log is stored before
// health so the failure window includes this run.
func (r *Runner) scrapeAndRecord(ctx context.Context, src *model.Source) {
	rc := run.NewContext(r.cfg)

	if problems := model.ValidateSource(src); len(problems) > 0 {
		logger.Warn("source config has problems", "url", src.EntryURL, "problems", problems)
	}

	records, err := scrape.Run(rc, src)
	if err != nil && !errors.Is(err, scrape.ErrNoExtractionConfig) {
		logger.Error("scrape failed", "url", src.EntryURL, "error", err)
	}

	saved := 0
	if len(records) > 0 {
		saved, err = r.output.SavePrices(ctx, records)
		if err != nil {
			rc.AddError(src.EntryURL, fmt.Errorf("saving prices: %w", err), false)
		}
		rc.RecordsSaved = saved
	}

	if err := r.output.SaveRun(ctx, rc.ToRunLog()); err != nil {
		logger.Warn("saving run log", "error", err)
	}

	r.updateHealth(ctx, src, len(records) > 0, saved)
}

// discoverSource crawls an entry URL and asks the oracle for an extraction
// strategy.
func (r *Runner) discoverSource(ctx context.Context, rc *run.Context, entryURL string) (*strategy.ExtractionConfig, error) {
	provider, err := r.oracle()
	if err != nil {
		return nil, err
	}

	b := browser.New(r.cfg.Headless)
	defer b.Close()

	// The discovery timeout bounds each navigation inside the engine, not
	// the crawl as a whole.
	result, err := discovery.Run(ctx, rc, b, entryURL)
	if err != nil {
		return nil, err
	}

	return strategy.Discover(ctx, provider, result)
}

// mapSource runs a quick scrape for sample rows and asks the oracle for a
// schema mapping. Skipped when the source already carries one.
func (r *Runner) mapSource(ctx context.Context, rc *run.Context, src *model.Source) {
	if len(src.SchemaMapping) > 0 {
		logger.Debug("source already has schema mapping", "url", src.EntryURL)
		return
	}

	provider, err := r.oracle()
	if err != nil {
		logger.Warn("no oracle for mapping", "error", err)
		return
	}

	logger.Info("running quick scrape for mapping samples", "url", src.EntryURL)
	samples, err := scrape.Run(rc, src)
	if err != nil || len(samples) == 0 {
		logger.Warn("no sample data for mapping", "url", src.EntryURL)
		return
	}
	if len(samples) > 5 {
		samples = samples[:5]
	}

	rawFields := make([]string, 0, len(samples[0]))
	for field := range samples[0] {
		rawFields = append(rawFields, field)
	}
	sort.Strings(rawFields)

	mapping, err := strategy.MapSchema(ctx, provider, rawFields, samples,
		src.EntryURL, src.ExtractionType)
	if err != nil {
		logger.Warn("mapping failed", "url", src.EntryURL, "error", err)
		return
	}

	mapping.ApplyToSource(src)
	if err := r.output.SaveSourceConfig(ctx, src); err != nil {
		logger.Warn("saving schema mapping", "url", src.EntryURL, "error", err)
		return
	}
	logger.Info("schema mapping saved", "url", src.EntryURL, "mapped", len(mapping.SchemaMapping))
}

func (r *Runner) updateHealth(ctx context.Context, src *model.Source, success bool, saved int) {
	if r.db == nil || src.ID.IsZero() {
		return
	}
	if _, err := health.Update(ctx, r.db, src.ID.Hex(), success, saved); err != nil {
		logger.Warn("health update failed", "url", src.EntryURL, "error", err)
	}
}
