package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

// parquetSink buffers rows and writes each full batch to a new file named
// after prefix.
type parquetSink[T any] struct {
	mu        sync.Mutex
	outputDir string
	prefix    string
	batchSize int
	buffer    []T
}

func newParquetSink[T any](outputDir, prefix string, batchSize int) (*parquetSink[T], error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &parquetSink[T]{
		outputDir: outputDir,
		prefix:    prefix,
		batchSize: batchSize,
		buffer:    make([]T, 0, batchSize),
	}, nil
}

func (s *parquetSink[T]) add(row T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, row)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *parquetSink[T]) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the current buffer to a new Parquet file.
// Caller must hold the lock
func (s *parquetSink[T]) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}
	path := filepath.Join(s.outputDir, fileName(s.prefix))
	if err := parquet.WriteFile(path, s.buffer); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}
	s.buffer = s.buffer[:0]
	return nil
}

func fileName(prefix string) string {
	now := time.Now()
	return fmt.Sprintf("%s_%s_%d.parquet", prefix, now.Format("20060102_150405"), now.UnixNano())
}

// ParquetHandler is a slog.Handler that writes error logs to Parquet files
type ParquetHandler struct {
	next  slog.Handler
	sink  *parquetSink[LogRecord]
	attrs []slog.Attr
}

// NewParquetHandler creates a ParquetHandler buffering batchSize records per
// file. A non-positive batchSize uses DefaultBatchSize.
func NewParquetHandler(next slog.Handler, outputDir string, batchSize int) (*ParquetHandler, error) {
	sink, err := newParquetSink[LogRecord](outputDir, "execution_errors", batchSize)
	if err != nil {
		return nil, err
	}
	return &ParquetHandler{next: next, sink: sink}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	return h.sink.add(newLogRecord(ctx, r, h.attrs))
}

// Flush writes buffered records.
func (h *ParquetHandler) Flush() error {
	return h.sink.flush()
}

// Close flushes buffered records.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{next: h.next.WithGroup(name), sink: h.sink, attrs: h.attrs}
}
