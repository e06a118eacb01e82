// Package catalog converts raw graph store records into WorkRecords.
//
// Work nodes become records; the CREATED_BY, PUBLISHED_IN and PUBLISHED_BY
// relationships around them fill in creators, magazines and publishers, and
// every magazine to publisher pair seen is returned as enrichment.
package catalog
