// Package assembler builds the result graph of a query from consolidated
// primary works, related works and magazine publisher enrichment.
//
// Work nodes are deduplicated by id and then by title, keeping the higher
// relevance score. Entity nodes are keyed by the canonical ids of the
// normalize package, so the same author reached from two works is one node.
// When a size budget is set only the best work nodes are kept, together with
// the entity nodes reachable from them.
package assembler
