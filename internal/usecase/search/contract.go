package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// Searcher is the index engine contract.
type Searcher interface {
	Search(ctx context.Context, d query.Descriptor) (page.ResultSet, error)
	Get(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error)
}

// Cache is the response cache contract. A missing key is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
