// Package types holds the data model shared by every mangagraph package:
// work records, the result graph, raw store result sets, relation classes
// and the error taxonomy.
//
// Node and edge kinds are closed enumerations. Code that switches over them
// is expected to handle every value; IsValid reports whether a value read
// from outside the process belongs to the set.
package types
