package driver

import (
	"context"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// Provider identifies a GraphStore implementation.
type Provider string

const (
	ProviderNeo4j  Provider = "neo4j"
	ProviderMemory Provider = "memory"
)

// Searcher runs one primary search.
type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error)
}

// RelatedSource fetches related-work candidates along the three relation
// classes.
type RelatedSource interface {
	RelatedByAuthor(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
	RelatedByMagazine(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
	RelatedByPublisher(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
}

// GraphStore is the read-only view of the catalog graph used by the
// service. Implementations are safe for concurrent use.
type GraphStore interface {
	Searcher
	RelatedSource

	// MagazinePublishers returns the publishers of each named magazine.
	MagazinePublishers(ctx context.Context, magazines []string) (types.MagazinePublishers, error)

	// SimilarWorks returns the works whose vector property is most similar
	// to req.Vector, with scores in [0, 1].
	SimilarWorks(ctx context.Context, req types.VectorRequest) (*types.RawResultSet, error)

	// WorkSubgraph returns one work and its direct neighbours. It returns
	// types.ErrNotFound when no work has the id.
	WorkSubgraph(ctx context.Context, workID string) (*types.RawResultSet, error)

	// Stats returns node and relationship counts keyed by StatKeys.
	Stats(ctx context.Context) (map[string]int64, error)

	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
	Provider() Provider
}

// Stat keys returned by GraphStore.Stats.
const (
	StatWorkCount        = "work_count"
	StatAuthorCount      = "author_count"
	StatPublisherCount   = "publisher_count"
	StatMagazineCount    = "magazine_count"
	StatCreatedByCount   = "created_by_relationships"
	StatPublishedInCount = "published_in_relationships"
	StatPublishedByCount = "published_by_relationships"
)

// StatKeys lists every key of GraphStore.Stats in display order.
var StatKeys = []string{
	StatWorkCount,
	StatAuthorCount,
	StatPublisherCount,
	StatMagazineCount,
	StatCreatedByCount,
	StatPublishedInCount,
	StatPublishedByCount,
}

// AdultTag is the genre tag excluded unless a request asks for adult
// content.
const AdultTag = "Hentai"
