package domain

import "errors"

var (
	// ErrInvalidQuery signals a malformed search request (caller error, never retried).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("not found")
	// ErrIndexUnavailable signals that the search index could not be reached in time.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrIndexQueryError signals that the search index rejected a locally valid query.
	ErrIndexQueryError = errors.New("index query error")
	// ErrCacheUnavailable signals a cache backend failure. Never returned to API callers.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrForbidden signals a denied capability check at the API boundary.
	ErrForbidden = errors.New("forbidden")
)
