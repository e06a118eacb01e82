// Package search runs a query through an ordered cascade of search
// strategies.
//
// For each language in order, each strategy is tried in order and the first
// one that returns at least one work wins. Later strategies are never
// called once a result is found.
//
// # Strategies
//
// Three strategies ship with the package, each issuing one store query:
//   - RankedStrategy: fuzzy fulltext reranked by edit-distance similarity
//     to the query, dropping matches under a threshold
//   - FulltextStrategy: fuzzy fulltext without rerank
//   - SimpleStrategy: case-insensitive substring match on title fields
//
// # Usage
//
//	orch := search.NewOrchestrator(search.DefaultStrategies(store, cfg), logger)
//	outcome, err := orch.Search(ctx, search.Request{Text: "ワンピース", Limit: 20})
//
// An empty query runs only the simple strategy. A failing strategy is logged
// and treated as empty, except when the store is unavailable or the context
// is done; those abort the cascade.
package search
