package types

type contextKey string

// Context keys set by the HTTP layer and read by logging and telemetry.
const (
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyRequestSource contextKey = "request_source"
)
