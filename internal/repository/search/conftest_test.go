package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/db/elastic"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// mockElastic implements elasticClient for tests.
type mockElastic struct {
	searchFn func(ctx context.Context, index string, body []byte) (*elastic.SearchResponse, error)
	getFn    func(ctx context.Context, index, id string) (json.RawMessage, error)
}

func (m *mockElastic) Search(ctx context.Context, index string, body []byte) (*elastic.SearchResponse, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &elastic.SearchResponse{}, nil
}

func (m *mockElastic) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return nil, db.ErrKeyNotFound
}

// mockStore implements store for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testIndexes() map[entity.Type]string {
	return map[entity.Type]string{
		entity.Film:   "movies",
		entity.Person: "persons",
		entity.Genre:  "genres",
	}
}

func mustDescriptor(t *testing.T, typ entity.Type, p query.Params) query.Descriptor {
	t.Helper()
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 10
	}
	d, err := query.New(entity.MustLookup(typ), p, 100)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return d
}

// decodeBody unmarshals a captured DSL body into a generic map.
func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}
