package driver

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// TypeConversionError represents an error during type conversion from database types.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// NewTypeConversionError creates a new TypeConversionError.
func NewTypeConversionError(expected string, actual any, field string) *TypeConversionError {
	return &TypeConversionError{Expected: expected, Actual: fmt.Sprintf("%T", actual), Field: field}
}

// AsString converts v to a string. Returns false for nil and non-strings.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsInt64 converts an integral database value to int64.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	}
	return 0, false
}

// AsFloat64 converts a numeric database value to float64. Integers are
// accepted since Cypher may return a whole score as an integer.
func AsFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

// AsStringSlice converts a list of strings, as a []string or a []any of
// strings, to []string. Null elements are skipped.
func AsStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// AsAnySlice converts v to []any.
func AsAnySlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// AsMap converts v to map[string]any.
func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// MustGet returns the value of key in record or an error when the column is
// missing.
func MustGet(record *db.Record, key string) (any, error) {
	if record == nil {
		return nil, NewTypeConversionError("*db.Record", nil, key)
	}
	v, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing column %q", key)
	}
	return v, nil
}

// MustMap converts v to map[string]any or returns an error.
func MustMap(v any, field string) (map[string]any, error) {
	m, ok := AsMap(v)
	if !ok {
		return nil, NewTypeConversionError("map[string]any", v, field)
	}
	return m, nil
}

// MustAnySlice converts v to []any or returns an error. Null is an empty
// list.
func MustAnySlice(v any, field string) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := AsAnySlice(v)
	if !ok {
		return nil, NewTypeConversionError("[]any", v, field)
	}
	return s, nil
}

// PlainValue converts temporal and spatial database values to the plain
// values carried in records: dates become ISO strings, points become maps.
// Lists and maps are converted recursively.
func PlainValue(v any) any {
	switch t := v.(type) {
	case dbtype.Date:
		return time.Time(t).Format("2006-01-02")
	case dbtype.LocalDateTime:
		return time.Time(t).Format("2006-01-02T15:04:05")
	case time.Time:
		return t.Format(time.RFC3339)
	case dbtype.Point2D:
		return map[string]any{"x": t.X, "y": t.Y, "srid": int64(t.SpatialRefId)}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = PlainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = PlainValue(item)
		}
		return out
	}
	return v
}
