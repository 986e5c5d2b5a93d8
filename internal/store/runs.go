package store

import (
	"context"
	"fmt"

	"github.com/mandipulse/mandipulse/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunsRepo stores run history in the scrape_runs collection.
type RunsRepo struct {
	col *mongo.Collection
}

// InsertRun stores a completed run log and returns its id.
func (r *RunsRepo) InsertRun(ctx context.Context, runLog model.RunLog) (string, error) {
	res, err := r.col.InsertOne(ctx, runLog)
	if err != nil {
		return "", fmt.Errorf("inserting run log: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

// RecentRuns returns the most recent runs for a source, newest first.
func (r *RunsRepo) RecentRuns(ctx context.Context, sourceID string, limit int) ([]model.RunLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"sourceId": sourceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing runs for %s: %w", sourceID, err)
	}
	var runs []model.RunLog
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decoding runs: %w", err)
	}
	return runs, nil
}

// HasAnySuccess reports whether a source has ever completed a successful
// run.
func (r *RunsRepo) HasAnySuccess(ctx context.Context, sourceID string) (bool, error) {
	err := r.col.FindOne(ctx,
		bson.M{"sourceId": sourceID, "success": true},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
