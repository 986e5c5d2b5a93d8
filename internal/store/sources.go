package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/urlutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SourcesRepo stores portal configurations, extraction strategies, and
// health metadata in the sources collection.
type SourcesRepo struct {
	col *mongo.Collection
}

// FindAll returns every source configuration.
func (r *SourcesRepo) FindAll(ctx context.Context) ([]model.Source, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	var sources []model.Source
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	return sources, nil
}

// FindActive returns sources not marked BROKEN, for scheduled runs.
func (r *SourcesRepo) FindActive(ctx context.Context) ([]model.Source, error) {
	cursor, err := r.col.Find(ctx, bson.M{"healthStatus": bson.M{"$ne": model.HealthBroken}})
	if err != nil {
		return nil, fmt.Errorf("listing active sources: %w", err)
	}
	var sources []model.Source
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	return sources, nil
}

// FindByID looks up one source by its object id.
func (r *SourcesRepo) FindByID(ctx context.Context, sourceID string) (*model.Source, error) {
	oid, err := primitive.ObjectIDFromHex(sourceID)
	if err != nil {
		return nil, fmt.Errorf("invalid source id %q: %w", sourceID, err)
	}
	var src model.Source
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&src)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// FindByURL looks up a source by entry URL, matching the normalized form,
// the raw form, and the base URL.
func (r *SourcesRepo) FindByURL(ctx context.Context, rawURL string) (*model.Source, error) {
	normalized := urlutil.Normalize(rawURL)
	var src model.Source
	err := r.col.FindOne(ctx, bson.M{"$or": []bson.M{
		{"entryUrl": normalized},
		{"entryUrl": rawURL},
		{"baseUrl": normalized},
	}}).Decode(&src)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// Upsert inserts or updates a source keyed by entryUrl and returns the
// document id.
func (r *SourcesRepo) Upsert(ctx context.Context, src *model.Source) (string, error) {
	now := time.Now().UTC()
	src.UpdatedAt = now
	src.CreatedAt = time.Time{} // set only on insert

	res, err := r.col.UpdateOne(ctx,
		bson.M{"entryUrl": src.EntryURL},
		bson.M{
			"$set":         src,
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", fmt.Errorf("upserting source %s: %w", src.EntryURL, err)
	}

	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		src.ID = oid
		return oid.Hex(), nil
	}

	existing, err := r.FindByURL(ctx, src.EntryURL)
	if err != nil || existing == nil {
		return "", err
	}
	src.ID = existing.ID
	return existing.ID.Hex(), nil
}

// UpdateHealth sets the health status after a run.
func (r *SourcesRepo) UpdateHealth(ctx context.Context, sourceID, status string, lastSuccess time.Time, lastError string) error {
	oid, err := primitive.ObjectIDFromHex(sourceID)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", sourceID, err)
	}

	update := bson.M{
		"healthStatus":    status,
		"healthUpdatedAt": time.Now().UTC(),
	}
	if !lastSuccess.IsZero() {
		update["lastSuccessAt"] = lastSuccess
	}
	if lastError != "" {
		update["lastError"] = lastError
	}

	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": update})
	return err
}

// UpdateExtractionConfig persists the strategy and mapping fields filled in
// by the oracle after discovery.
func (r *SourcesRepo) UpdateExtractionConfig(ctx context.Context, src *model.Source) error {
	if src.ID.IsZero() {
		return fmt.Errorf("source %s has no id", src.EntryURL)
	}

	now := time.Now().UTC()
	update := bson.M{
		"extractionType":    src.ExtractionType,
		"aiConfidence":      src.AIConfidence,
		"aiReasoning":       src.AIReasoning,
		"schemaMapping":     src.SchemaMapping,
		"conversions":       src.Conversions,
		"mappingConfidence": src.MappingConfidence,
		"unmappedFields":    src.UnmappedFields,
		"mappingNotes":      src.MappingNotes,
		"discoveredAt":      now,
		"updatedAt":         now,
	}

	switch src.ExtractionType {
	case model.ExtractionAPI:
		update["endpoint"] = src.Endpoint
		update["endpointMethod"] = src.EndpointMethod
		update["endpointParams"] = src.EndpointParams
		update["endpointHeaders"] = src.EndpointHeaders
	case model.ExtractionHTMLTable:
		update["htmlPageUrl"] = src.HTMLPageURL
		update["htmlSelector"] = src.HTMLSelector
		update["htmlTableHeaders"] = src.HTMLTableHeaders
	case model.ExtractionPDFExcel:
		update["fileUrl"] = src.FileURL
		update["fileType"] = src.FileType
	}

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": src.ID}, bson.M{"$set": update})
	return err
}
