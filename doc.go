// Package mangagraph turns a free-text title query into a knowledge graph of
// manga works and the people, magazines and publishers behind them.
//
// A query runs through a cascade of search strategies (ranked, fulltext,
// then simple substring matching) for each title language until one
// returns works. The matches are grouped into series, optionally expanded
// with related works (same author, same magazine and era, same publisher in
// another magazine) and assembled into a deduplicated graph bounded by the
// caller's limit.
//
// # Basic Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := mangagraph.Open(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	graph, err := client.FindRelatedGraph(ctx, "ワンピース", 20, true, false)
//
// # Stores
//
// The graph store is Neo4j in production. A memory store loaded from a YAML
// fixture serves tests and local development; it implements the same
// queries, including fuzzy fulltext search, and tags results with memory-*
// sources instead of neo4j-*.
//
// # Errors
//
// Store unavailability (including an open circuit breaker) and
// cancellation fail a request. A failing search strategy or related-work
// query is logged and treated as empty. An unsupported vector property is
// rejected before any I/O.
package mangagraph
