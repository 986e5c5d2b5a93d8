// Package store persists agent data: source configurations, normalized
// prices with derived entity collections, and run history. A CSV adapter
// mirrors the Mongo repositories for offline runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandipulse/mandipulse/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// DB wraps the Mongo client and the agent database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the Mongo client and verifies connectivity with a ping.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	logger.Info("connected to mongo", "db", dbName)
	return &DB{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Collection exposes a raw collection, used by the Mongo log sink.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Sources returns the sources repository.
func (d *DB) Sources() *SourcesRepo {
	return &SourcesRepo{col: d.db.Collection("sources")}
}

// Prices returns the prices repository.
func (d *DB) Prices() *PricesRepo {
	return &PricesRepo{
		prices: d.db.Collection("prices"),
		crops:  d.db.Collection("crops"),
		states: d.db.Collection("states"),
		mandis: d.db.Collection("mandis"),
	}
}

// Runs returns the run history repository.
func (d *DB) Runs() *RunsRepo {
	return &RunsRepo{col: d.db.Collection("scrape_runs")}
}
