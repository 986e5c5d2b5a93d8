package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PricesRepo stores normalized price records and keeps the derived crops,
// states, and mandis collections in sync for the serving API.
type PricesRepo struct {
	prices *mongo.Collection
	crops  *mongo.Collection
	states *mongo.Collection
	mandis *mongo.Collection
}

// BulkInsert writes price records unordered so one duplicate does not abort
// the batch. Returns the number of newly inserted documents.
func (r *PricesRepo) BulkInsert(ctx context.Context, records []model.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	docs := make([]any, len(records))
	for i, rec := range records {
		if _, ok := rec["createdAt"]; !ok {
			rec["createdAt"] = now
		}
		rec["updatedAt"] = now
		docs[i] = rec
	}

	res, err := r.prices.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			inserted := len(records) - len(bwe.WriteErrors)
			logger.Warn("bulk insert partially failed",
				"inserted", inserted, "failed", len(bwe.WriteErrors))
			return inserted, nil
		}
		return 0, fmt.Errorf("inserting prices: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// EntityCounts reports how many new entities an upsert pass created.
type EntityCounts struct {
	Crops  int
	States int
	Mandis int
}

// UpsertEntities extracts the unique crops, states, and mandis from a batch
// of price records and upserts them into their collections.
func (r *PricesRepo) UpsertEntities(ctx context.Context, records []model.PriceRecord) (EntityCounts, error) {
	type entity struct {
		filter bson.M
		set    bson.M
	}

	var crops, states, mandis []entity
	cropSeen := map[string]bool{}
	stateSeen := map[string]bool{}
	mandiSeen := map[string]bool{}

	str := func(v any) string {
		s, _ := v.(string)
		return s
	}

	for _, rec := range records {
		cropName := str(rec["cropName"])
		stateName := str(rec["stateName"])
		mandiName := str(rec["mandiName"])

		if cropName != "" && !cropSeen[cropName] {
			cropSeen[cropName] = true
			crops = append(crops, entity{
				filter: bson.M{"name": cropName},
				set:    bson.M{"name": cropName, "cropGroup": str(rec["cropGroup"])},
			})
		}
		if stateName != "" && !stateSeen[stateName] {
			stateSeen[stateName] = true
			states = append(states, entity{
				filter: bson.M{"name": stateName},
				set:    bson.M{"name": stateName},
			})
		}
		if mandiName != "" && !mandiSeen[mandiName+"|"+stateName] {
			mandiSeen[mandiName+"|"+stateName] = true
			mandis = append(mandis, entity{
				filter: bson.M{"name": mandiName, "stateName": stateName},
				set:    bson.M{"name": mandiName, "stateName": stateName},
			})
		}
	}

	now := time.Now().UTC()
	upsertAll := func(col *mongo.Collection, entities []entity) (int, error) {
		count := 0
		for _, e := range entities {
			e.set["updatedAt"] = now
			res, err := col.UpdateOne(ctx, e.filter,
				bson.M{"$set": e.set, "$setOnInsert": bson.M{"createdAt": now}},
				options.Update().SetUpsert(true))
			if err != nil {
				return count, err
			}
			if res.UpsertedID != nil {
				count++
			}
		}
		return count, nil
	}

	var counts EntityCounts
	var err error
	if counts.Crops, err = upsertAll(r.crops, crops); err != nil {
		return counts, fmt.Errorf("upserting crops: %w", err)
	}
	if counts.States, err = upsertAll(r.states, states); err != nil {
		return counts, fmt.Errorf("upserting states: %w", err)
	}
	if counts.Mandis, err = upsertAll(r.mandis, mandis); err != nil {
		return counts, fmt.Errorf("upserting mandis: %w", err)
	}
	return counts, nil
}

// LatestDate returns the most recent price date, optionally per source.
func (r *PricesRepo) LatestDate(ctx context.Context, sourceID string) (string, error) {
	filter := bson.M{}
	if sourceID != "" {
		filter["sourceId"] = sourceID
	}

	opts := options.FindOne().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetProjection(bson.M{"date": 1})

	var doc struct {
		Date string `bson:"date"`
	}
	err := r.prices.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.Date, nil
}

// EnsureIndexes creates the query indexes for prices and the uniqueness
// constraints on the entity collections.
func (r *PricesRepo) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := r.prices.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "cropName", Value: 1}, {Key: "mandiName", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "stateName", Value: 1}}},
		{Keys: bson.D{{Key: "source", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating price indexes: %w", err)
	}

	if _, err := r.crops.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("creating crop index: %w", err)
	}
	if _, err := r.states.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("creating state index: %w", err)
	}
	if _, err := r.mandis.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "stateName", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("creating mandi index: %w", err)
	}
	return nil
}
