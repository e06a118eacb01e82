package mangagraph

import (
	"context"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// The Mangagraph interface is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// GraphFinder searches the catalog and returns result graphs.
type GraphFinder interface {
	// FindRelatedGraph searches works matching query and returns them as a
	// graph of works, authors, magazines and publishers. When
	// includeRelated is set, works related to the best match are added.
	// Adult works are excluded unless includeHentai is set.
	FindRelatedGraph(ctx context.Context, query string, limit int, includeRelated, includeHentai bool) (*types.Graph, error)

	// FindRelatedGraphWithOptions is FindRelatedGraph with sort, volume
	// filter, language and related-limit options.
	FindRelatedGraphWithOptions(ctx context.Context, req GraphRequest) (*types.Graph, error)
}

// SimilaritySearcher finds works by embedding similarity.
type SimilaritySearcher interface {
	FindSimilarWorks(ctx context.Context, req SimilarRequest) (*types.Graph, error)
}

// CatalogInspector reads single works and catalog statistics.
type CatalogInspector interface {
	// GetWorkGraph returns one work and its direct neighbours. The error
	// wraps types.ErrNotFound when no work has the id.
	GetWorkGraph(ctx context.Context, workID string) (*types.Graph, error)

	// Stats returns node and relationship counts.
	Stats(ctx context.Context) (map[string]int64, error)
}

// HealthChecker reports whether the graph store is reachable.
type HealthChecker interface {
	VerifyConnectivity(ctx context.Context) error
}
