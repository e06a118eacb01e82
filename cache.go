package mangagraph

import (
	"slices"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/types"
)

const (
	defaultCacheCounters = 1e5
	defaultCacheMaxCost  = 64 << 20
	defaultCacheTTL      = 5 * time.Minute
	// elementCost approximates the bytes of one node or edge.
	elementCost = 512
)

// GraphCache memoizes assembled graphs by request. A nil *GraphCache is a
// valid cache that never hits.
type GraphCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewGraphCache creates a GraphCache from cfg. It returns nil, nil when the
// cache is disabled.
func NewGraphCache(cfg config.CacheConfig) (*GraphCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	maxCost := cfg.MaxCost
	if maxCost <= 0 {
		maxCost = defaultCacheMaxCost
	}
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultCacheCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &GraphCache{cache: cache, ttl: ttl}, nil
}

// Get returns a copy of the cached graph for key.
func (g *GraphCache) Get(key string) (*types.Graph, bool) {
	if g == nil {
		return nil, false
	}
	v, ok := g.cache.Get(key)
	if !ok {
		return nil, false
	}
	graph, ok := v.(*types.Graph)
	if !ok {
		return nil, false
	}
	return cloneGraph(graph), true
}

// Set stores graph under key. Writes are applied asynchronously.
func (g *GraphCache) Set(key string, graph *types.Graph) {
	if g == nil || graph == nil {
		return
	}
	cost := int64(len(graph.Nodes)+len(graph.Edges)+1) * elementCost
	g.cache.SetWithTTL(key, cloneGraph(graph), cost, g.ttl)
}

// Wait blocks until pending writes are applied.
func (g *GraphCache) Wait() {
	if g != nil {
		g.cache.Wait()
	}
}

// Close stops the cache.
func (g *GraphCache) Close() {
	if g != nil {
		g.cache.Close()
	}
}

// cloneGraph copies a graph deeply enough that callers may decorate the
// nodes, edges and property maps they receive without touching the cached
// entry.
func cloneGraph(g *types.Graph) *types.Graph {
	out := &types.Graph{
		Nodes: make([]types.GraphNode, len(g.Nodes)),
		Edges: make([]types.GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		n.Properties = cloneProperties(n.Properties)
		if n.RelevanceScore != nil {
			score := *n.RelevanceScore
			n.RelevanceScore = &score
		}
		out.Nodes[i] = n
	}
	for i, e := range g.Edges {
		e.Properties = cloneProperties(e.Properties)
		out.Edges[i] = e
	}
	return out
}

func cloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch v := v.(type) {
		case []string:
			out[k] = slices.Clone(v)
		case []any:
			out[k] = slices.Clone(v)
		case []float64:
			out[k] = slices.Clone(v)
		case map[string]any:
			out[k] = cloneProperties(v)
		default:
			out[k] = v
		}
	}
	return out
}
