// Package telemetry records error logs and cascade search events for offline
// analysis.
//
// ParquetHandler and SQLHandler wrap a slog.Handler and copy ERROR records
// to Parquet files or a MySQL-compatible table. SearchEventWriter writes one
// row per cascade search with the strategy that matched, which is what the
// rank threshold and prefix tolerance are tuned from.
package telemetry
