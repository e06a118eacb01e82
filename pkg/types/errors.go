package types

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy. Use errors.Is to classify.
var (
	// ErrStoreUnavailable means the graph store cannot be reached. It fails
	// the whole request.
	ErrStoreUnavailable = errors.New("graph store unavailable")

	// ErrStrategyFailed means a single search strategy or relation query
	// failed. Callers treat it as an empty result.
	ErrStrategyFailed = errors.New("strategy failed")

	// ErrMalformedInput means a date or volume string could not be parsed.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnsupportedVectorProperty means a similarity search named a vector
	// property outside the supported set.
	ErrUnsupportedVectorProperty = errors.New("unsupported vector property")

	// ErrNotFound means a work looked up by id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreClosed is wrapped in a StoreError for calls made after Close.
	ErrStoreClosed = errors.New("store closed")
)

// StoreError wraps a connectivity failure of a store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports ErrStoreUnavailable as the error's kind.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError creates a StoreError for op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// StrategyError records which search strategy or relation class failed.
type StrategyError struct {
	Mode     SearchMode
	Relation RelationType
	Language Language
	Err      error
}

func (e *StrategyError) Error() string {
	if e.Relation != "" {
		return fmt.Sprintf("relation %s failed: %v", e.Relation, e.Err)
	}
	return fmt.Sprintf("%s search (%s) failed: %v", e.Mode, e.Language, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Is reports ErrStrategyFailed as the error's kind.
func (e *StrategyError) Is(target error) bool {
	return target == ErrStrategyFailed
}

// UnsupportedVectorPropertyError is returned when a caller asks for
// similarity search against an unknown property.
type UnsupportedVectorPropertyError struct {
	Property  string
	Supported []string
}

func (e *UnsupportedVectorPropertyError) Error() string {
	return fmt.Sprintf("unsupported vector property %q (supported: %v)", e.Property, e.Supported)
}

// Is reports ErrUnsupportedVectorProperty as the error's kind.
func (e *UnsupportedVectorPropertyError) Is(target error) bool {
	return target == ErrUnsupportedVectorProperty
}

// IsHardFailure reports whether err must abort the request instead of being
// recovered as an empty result. A store timeout is recoverable; store
// unavailability and caller cancellation are not.
func IsHardFailure(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled)
}
