package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/mangagraph/pkg/search"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// SearchEvent is one cascade search.
type SearchEvent struct {
	ID        string    `parquet:"id"`
	Timestamp time.Time `parquet:"timestamp"`
	RequestID string    `parquet:"request_id"`
	Query     string    `parquet:"query"`
	// Mode and Language name the strategy that matched; both are empty when
	// none did.
	Mode       string `parquet:"mode"`
	Language   string `parquet:"language"`
	Attempts   int    `parquet:"attempts"`
	Works      int    `parquet:"works"`
	Related    int    `parquet:"related"`
	DurationMS int64  `parquet:"duration_ms"`
	// AttemptLog is the JSON list of attempts.
	AttemptLog string `parquet:"attempt_log"`
}

// NewSearchEvent describes outcome of the cascade for query. related is the
// number of related works added and duration covers the whole request.
func NewSearchEvent(ctx context.Context, query string, outcome *search.Outcome, related int, duration time.Duration) SearchEvent {
	ev := SearchEvent{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		Query:      query,
		Related:    related,
		DurationMS: duration.Milliseconds(),
	}
	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok {
		ev.RequestID = v
	}
	if outcome != nil {
		ev.Mode = string(outcome.Mode)
		ev.Language = string(outcome.Language)
		ev.Attempts = len(outcome.Attempts)
		if outcome.Result != nil {
			ev.Works = len(outcome.Result.Works)
		}
		if b, err := json.Marshal(outcome.Attempts); err == nil {
			ev.AttemptLog = string(b)
		}
	}
	return ev
}

// SearchEventWriter buffers SearchEvents and writes them to Parquet files.
type SearchEventWriter struct {
	sink *parquetSink[SearchEvent]
}

// NewSearchEventWriter writes batches of batchSize events under outputDir.
func NewSearchEventWriter(outputDir string, batchSize int) (*SearchEventWriter, error) {
	sink, err := newParquetSink[SearchEvent](outputDir, "search_events", batchSize)
	if err != nil {
		return nil, err
	}
	return &SearchEventWriter{sink: sink}, nil
}

// Record buffers ev, writing a file once the batch is full.
func (w *SearchEventWriter) Record(ev SearchEvent) error {
	return w.sink.add(ev)
}

// Flush writes buffered events.
func (w *SearchEventWriter) Flush() error {
	return w.sink.flush()
}

// Close flushes buffered events.
func (w *SearchEventWriter) Close() error {
	return w.Flush()
}
