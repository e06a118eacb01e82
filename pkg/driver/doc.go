// Package driver provides the graph store implementations used by
// mangagraph.
//
// GraphStore is the read-only view of the catalog graph: primary search in
// the ranked, fulltext and simple modes, the three related-work queries,
// vector similarity, work subgraphs and statistics.
//
// # Implementations
//
//   - Neo4jStore: Cypher over neo4j-go-driver managed read transactions.
//     Ranked search fetches fulltext candidates and reranks them by title
//     edit distance in Go.
//   - MemoryStore: a fixture loaded into memory with a bleve index for the
//     fulltext modes. Used by tests and demos.
//   - BreakerStore: wraps either with a gobreaker circuit breaker.
//
// # Errors
//
// Connectivity failures, calls after Close and an open breaker are
// reported as types.StoreError, which matches types.ErrStoreUnavailable.
// Other query failures are returned wrapped with the operation name.
//
// # Type Helpers
//
// type_helpers.go converts database result values without panicking on
// unexpected types.
package driver
