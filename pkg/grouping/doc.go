// Package grouping consolidates per-volume work records into series-level
// works.
//
// Records are grouped by explicit series id where the catalog has one and by
// base title otherwise. The base title is the title with trailing volume
// markers and edition suffixes removed. Base titles that extend one another
// at either end within Config.PrefixTolerance runes are merged as well; the
// tolerance is a tuning knob, not a guarantee that merged titles belong to
// one series.
package grouping
