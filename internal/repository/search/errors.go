package search

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/domain"
)

// classify maps store errors onto the index error sentinels.
// Anything not recognized as a rejection is treated as the index being unreachable.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	case errors.Is(err, db.ErrIndexNotFound), errors.Is(err, db.ErrQueryRejected):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexQueryError, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexUnavailable, err)
	}
}
