package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/mangagraph/pkg/alert"
	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// BreakerStore wraps a GraphStore with a circuit breaker. While the breaker
// is open every call fails fast with a StoreError.
type BreakerStore struct {
	store  GraphStore
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var _ GraphStore = (*BreakerStore)(nil)

// NewBreakerStore wraps store. Store unavailability and timeouts count as
// failures; caller errors such as cancellation or an unknown work do not.
func NewBreakerStore(store GraphStore, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *BreakerStore {
	if logger == nil {
		logger = slog.Default()
	}
	name := fmt.Sprintf("graph-store-%s", store.Provider())
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, types.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded))
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen && alerter != nil {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Error("Failed to send breaker alert", "breaker", name, "error", err)
				}
			}
		},
	}
	return &BreakerStore{store: store, cb: gobreaker.NewCircuitBreaker(st), logger: logger}
}

// State returns the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// Unwrap returns the wrapped store.
func (b *BreakerStore) Unwrap() GraphStore {
	return b.store
}

func execute[T any](b *BreakerStore, op string, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, types.NewStoreError(op, err)
		}
		return zero, err
	}
	return v.(T), nil
}

func (b *BreakerStore) Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error) {
	return execute(b, "search", func() (*types.RawResultSet, error) { return b.store.Search(ctx, req) })
}

func (b *BreakerStore) RelatedByAuthor(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	return execute(b, "related_by_author", func() ([]types.RelatedCandidate, error) { return b.store.RelatedByAuthor(ctx, req) })
}

func (b *BreakerStore) RelatedByMagazine(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	return execute(b, "related_by_magazine", func() ([]types.RelatedCandidate, error) { return b.store.RelatedByMagazine(ctx, req) })
}

func (b *BreakerStore) RelatedByPublisher(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	return execute(b, "related_by_publisher", func() ([]types.RelatedCandidate, error) { return b.store.RelatedByPublisher(ctx, req) })
}

func (b *BreakerStore) MagazinePublishers(ctx context.Context, magazines []string) (types.MagazinePublishers, error) {
	return execute(b, "magazine_publishers", func() (types.MagazinePublishers, error) { return b.store.MagazinePublishers(ctx, magazines) })
}

// SimilarWorks validates the property before consulting the breaker, so
// caller errors never count against the store.
func (b *BreakerStore) SimilarWorks(ctx context.Context, req types.VectorRequest) (*types.RawResultSet, error) {
	if err := types.ValidateVectorProperty(req.Property); err != nil {
		return nil, err
	}
	return execute(b, "similar_works", func() (*types.RawResultSet, error) { return b.store.SimilarWorks(ctx, req) })
}

func (b *BreakerStore) WorkSubgraph(ctx context.Context, workID string) (*types.RawResultSet, error) {
	return execute(b, "work_subgraph", func() (*types.RawResultSet, error) { return b.store.WorkSubgraph(ctx, workID) })
}

func (b *BreakerStore) Stats(ctx context.Context) (map[string]int64, error) {
	return execute(b, "stats", func() (map[string]int64, error) { return b.store.Stats(ctx) })
}

func (b *BreakerStore) VerifyConnectivity(ctx context.Context) error {
	_, err := execute(b, "verify_connectivity", func() (struct{}, error) { return struct{}{}, b.store.VerifyConnectivity(ctx) })
	return err
}

func (b *BreakerStore) Close(ctx context.Context) error {
	return b.store.Close(ctx)
}

func (b *BreakerStore) Provider() Provider {
	return b.store.Provider()
}
