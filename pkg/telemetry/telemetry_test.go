package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mangagraph/pkg/search"
	"github.com/soundprediction/mangagraph/pkg/types"
)

func parquetFiles(t *testing.T, dir, prefix string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, prefix+"_*.parquet"))
	require.NoError(t, err)
	return files
}

func TestParquetHandler(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	h, err := NewParquetHandler(slog.NewTextHandler(&out, nil), dir, 2)
	require.NoError(t, err)
	log := slog.New(h).With("component", "store")

	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-1")
	log.InfoContext(ctx, "not recorded")
	log.ErrorContext(ctx, "first", "error", errors.New("boom"))
	assert.Empty(t, parquetFiles(t, dir, "execution_errors"))

	log.Error("second")
	files := parquetFiles(t, dir, "execution_errors")
	require.Len(t, files, 1)

	rows, err := parquet.ReadFile[LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].Message)
	assert.Equal(t, "req-1", rows[0].RequestID)
	assert.Equal(t, "ERROR", rows[0].Level)
	assert.Contains(t, rows[0].Attributes, `"error":"boom"`)
	assert.Contains(t, rows[0].Attributes, `"component":"store"`)
	assert.Contains(t, out.String(), "not recorded")

	log.Error("third")
	require.NoError(t, h.Close())
	assert.Len(t, parquetFiles(t, dir, "execution_errors"), 2)
}

func TestSearchEventWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSearchEventWriter(dir, 10)
	require.NoError(t, err)

	outcome := &search.Outcome{
		Result:   &types.RawResultSet{Works: []types.RawNode{{ID: "w1"}, {ID: "w2"}}},
		Mode:     types.SearchModeFulltext,
		Language: types.LanguageJapanese,
		Attempts: []search.Attempt{
			{Mode: types.SearchModeRanked, Language: types.LanguageJapanese},
			{Mode: types.SearchModeFulltext, Language: types.LanguageJapanese, Works: 2},
		},
	}
	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-2")
	ev := NewSearchEvent(ctx, "ワンピース", outcome, 3, 1500*time.Millisecond)
	assert.Equal(t, "fulltext", ev.Mode)
	assert.Equal(t, 2, ev.Attempts)
	assert.Equal(t, 2, ev.Works)
	assert.Equal(t, int64(1500), ev.DurationMS)
	assert.Equal(t, "req-2", ev.RequestID)

	require.NoError(t, w.Record(ev))
	require.NoError(t, w.Record(NewSearchEvent(context.Background(), "missing", nil, 0, time.Millisecond)))
	assert.Empty(t, parquetFiles(t, dir, "search_events"))
	require.NoError(t, w.Close())

	files := parquetFiles(t, dir, "search_events")
	require.Len(t, files, 1)
	rows, err := parquet.ReadFile[SearchEvent](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ワンピース", rows[0].Query)
	assert.Equal(t, "", rows[1].Mode)
	assert.Equal(t, 0, rows[1].Works)
}
