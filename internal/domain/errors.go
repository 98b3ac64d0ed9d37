package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown document id or an artifact that does
	// not exist. Distinct from validation failures.
	ErrNotFound = errors.New("not found")

	// ErrJobRunning signals that an embedding job is already in progress
	// for the document id.
	ErrJobRunning = errors.New("embedding job already running")

	// ErrNoText signals that extraction produced no usable text.
	ErrNoText = errors.New("no text extracted")
)

// ValidationError reports a missing or invalid request parameter.
// Surfaced immediately, before any side effect.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ProviderError wraps a failed call to the embedding or generative provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed write-replace. Non-fatal to the in-memory
// result, but the specific update may not be durable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
