package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/types"
)

type flakyStore struct {
	*MemoryStore
	searchErr error
	calls     int
}

func (f *flakyStore) Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error) {
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.MemoryStore.Search(ctx, req)
}

type recordingAlerter struct {
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func testBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, Interval: 60, Timeout: 60, ReadyToTripRatio: 0.6}
}

func TestBreakerStoreTrips(t *testing.T) {
	inner := &flakyStore{MemoryStore: newTestMemoryStore(t), searchErr: types.NewStoreError("search", errors.New("connection refused"))}
	alerter := &recordingAlerter{}
	b := NewBreakerStore(inner, testBreakerConfig(), alerter, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.Search(ctx, types.SearchRequest{Mode: types.SearchModeSimple})
		require.ErrorIs(t, err, types.ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "graph-store-memory")

	_, err := b.Search(ctx, types.SearchRequest{Mode: types.SearchModeSimple})
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls, "open breaker must not reach the store")
}

func TestBreakerStoreIgnoresCallerErrors(t *testing.T) {
	inner := newTestMemoryStore(t)
	b := NewBreakerStore(inner, testBreakerConfig(), nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.WorkSubgraph(ctx, "missing")
		require.ErrorIs(t, err, types.ErrNotFound)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	for i := 0; i < 3; i++ {
		_, err := b.Search(cancelled, types.SearchRequest{Mode: types.SearchModeSimple})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	rs, err := b.WorkSubgraph(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, rs.Works, 1)
}

func TestBreakerStoreValidatesVectorProperty(t *testing.T) {
	inner := &flakyStore{MemoryStore: newTestMemoryStore(t)}
	b := NewBreakerStore(inner, testBreakerConfig(), nil, nil)

	for i := 0; i < 4; i++ {
		_, err := b.SimilarWorks(context.Background(), types.VectorRequest{Vector: []float32{1}, Property: "embedding_cover"})
		var unsupported *types.UnsupportedVectorPropertyError
		require.ErrorAs(t, err, &unsupported)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, ProviderMemory, b.Provider())
	assert.Same(t, GraphStore(inner), b.Unwrap())
}
