package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrQueryRejected marks an error reply from the server (bad syntax, unknown attribute),
	// as opposed to a transport failure.
	ErrQueryRejected = errors.New("db: query rejected")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpIndexInfo = "FT.INFO"
	OpSearch    = "FT.SEARCH"
	OpGet       = "GET"
	OpSet       = "SET"
	OpDel       = "DEL"
)

// Elasticsearch endpoint names for error context.
const (
	OpESInfo   = "GET /"
	OpESExists = "HEAD /{index}"
	OpESSearch = "POST /{index}/_search"
	OpESGet    = "GET /{index}/_doc/{id}"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
