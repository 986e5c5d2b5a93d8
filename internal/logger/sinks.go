package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Fanout dispatches every record to all wrapped handlers.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout wraps handlers into a single dispatching handler.
func NewFanout(handlers ...slog.Handler) *Fanout {
	return &Fanout{handlers: handlers}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &Fanout{handlers: next}
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &Fanout{handlers: next}
}

// NewFileSink creates a text handler writing to a timestamped log file under
// dir (created if missing). Returns the handler and the open file so the
// caller can close it on shutdown.
func NewFileSink(dir string) (slog.Handler, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	name := fmt.Sprintf("agent_%s.log", time.Now().UTC().Format("20060102_150405"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("creating log file: %w", err)
	}
	return slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}), f, nil
}

// MongoSink writes log records as documents into a collection
// (one document per record, fire-and-forget with a short timeout).
type MongoSink struct {
	coll  *mongo.Collection
	attrs []slog.Attr
}

// NewMongoSink creates a handler persisting records to the given collection.
func NewMongoSink(coll *mongo.Collection) *MongoSink {
	return &MongoSink{coll: coll}
}

func (s *MongoSink) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (s *MongoSink) Handle(_ context.Context, rec slog.Record) error {
	doc := map[string]any{
		"timestamp": rec.Time.UTC(),
		"level":     rec.Level.String(),
		"message":   rec.Message,
	}
	for _, a := range s.attrs {
		doc[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		doc[a.Key] = a.Value.Any()
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, doc)
	return err
}

func (s *MongoSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	next = append(next, s.attrs...)
	next = append(next, attrs...)
	return &MongoSink{coll: s.coll, attrs: next}
}

func (s *MongoSink) WithGroup(string) slog.Handler {
	return s
}
