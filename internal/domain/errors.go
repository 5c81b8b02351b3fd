// Package domain holds the core types and sentinel errors shared across textdex.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound signals a missing index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexExists signals a duplicate index.
	ErrIndexExists = errors.New("index already exists")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidSchema signals an invalid index schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidQuery signals a malformed or unsupported query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrTooManyClauses signals a query exceeding the boolean clause limit.
	ErrTooManyClauses = errors.New("too many boolean clauses")

	// ErrSearchContextMissing signals an unknown or expired point-in-time id.
	ErrSearchContextMissing = errors.New("search context missing or expired")
	// ErrSearchRejected signals that the node is at its search concurrency limit.
	ErrSearchRejected = errors.New("search rejected: node is saturated")
	// ErrSearchCancelled signals a search aborted by the caller.
	ErrSearchCancelled = errors.New("search cancelled")
)

// QueryPhaseError wraps a shard-level query phase failure with its shard id.
type QueryPhaseError struct {
	Shard int
	Err   error
}

func (e *QueryPhaseError) Error() string {
	return fmt.Sprintf("query phase failed on shard %d: %v", e.Shard, e.Err)
}

func (e *QueryPhaseError) Unwrap() error { return e.Err }

// NewQueryPhaseError creates a shard-scoped query phase error.
func NewQueryPhaseError(shard int, err error) error {
	return &QueryPhaseError{Shard: shard, Err: err}
}
