package cinedex

import "github.com/kailas-cloud/cinedex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery     = domain.ErrInvalidQuery
	ErrNotFound         = domain.ErrNotFound
	ErrIndexUnavailable = domain.ErrIndexUnavailable
	ErrIndexQueryError  = domain.ErrIndexQueryError
	ErrCacheUnavailable = domain.ErrCacheUnavailable
)
