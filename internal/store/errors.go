package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNotPending is returned when a transition targets a fact that already left the pending queue.
	ErrNotPending = errors.New("fact is not pending")
	// ErrMalformedDocument means a persisted document could not be decoded or violates
	// its invariants. It is never recovered from by reinitializing the document.
	ErrMalformedDocument = errors.New("malformed persisted document")
	ErrInvalidFact       = errors.New("invalid fact")
)
