package store

import (
	"context"

	"github.com/mandipulse/mandipulse/internal/model"
)

// SourceLoader yields the source configurations a run should process.
type SourceLoader interface {
	LoadSources(ctx context.Context) ([]model.Source, error)
}

// Output persists scrape results. The Mongo adapter writes to collections;
// the CSV adapter writes local files when no database is reachable.
type Output interface {
	SavePrices(ctx context.Context, records []model.PriceRecord) (int, error)
	SaveSourceConfig(ctx context.Context, src *model.Source) error
	SaveRun(ctx context.Context, runLog model.RunLog) error
}

// MongoLoader loads active sources from the sources collection.
type MongoLoader struct {
	db *DB
}

// NewMongoLoader wraps a connected database as a source loader.
func NewMongoLoader(db *DB) *MongoLoader {
	return &MongoLoader{db: db}
}

// LoadSources returns sources not marked BROKEN.
func (l *MongoLoader) LoadSources(ctx context.Context) ([]model.Source, error) {
	return l.db.Sources().FindActive(ctx)
}

// MongoOutput persists results into the prices, sources, and scrape_runs
// collections, keeping entity collections in sync.
type MongoOutput struct {
	db *DB
}

// NewMongoOutput wraps a connected database as an output adapter.
func NewMongoOutput(db *DB) *MongoOutput {
	return &MongoOutput{db: db}
}

// SavePrices bulk-inserts the records and upserts derived entities.
func (o *MongoOutput) SavePrices(ctx context.Context, records []model.PriceRecord) (int, error) {
	saved, err := o.db.Prices().BulkInsert(ctx, records)
	if err != nil {
		return 0, err
	}
	if _, err := o.db.Prices().UpsertEntities(ctx, records); err != nil {
		return saved, err
	}
	return saved, nil
}

// SaveSourceConfig upserts the source document.
func (o *MongoOutput) SaveSourceConfig(ctx context.Context, src *model.Source) error {
	_, err := o.db.Sources().Upsert(ctx, src)
	return err
}

// SaveRun inserts the run log.
func (o *MongoOutput) SaveRun(ctx context.Context, runLog model.RunLog) error {
	_, err := o.db.Runs().InsertRun(ctx, runLog)
	return err
}
