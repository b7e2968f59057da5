package db

import (
	"context"
	"time"
)

// Store is the Redis-protocol facade combining all sub-interfaces.
// Consumers declare the narrow sub-interface they need.
type Store interface {
	Pinger
	KVStore
	Searcher
	IndexInspector
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// IndexInspector reports on FT index existence.
type IndexInspector interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}
