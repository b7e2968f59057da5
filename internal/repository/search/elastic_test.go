package search

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/db/elastic"
	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

func TestElasticSearch_TextAndFilter(t *testing.T) {
	var captured []byte
	mc := &mockElastic{
		searchFn: func(_ context.Context, index string, body []byte) (*elastic.SearchResponse, error) {
			if index != "movies" {
				t.Errorf("index = %q, want movies", index)
			}
			captured = body
			return &elastic.SearchResponse{
				Total: 31,
				Hits: []elastic.Hit{
					{ID: "1", Source: json.RawMessage(`{"id":"1","title":"The Matrix"}`)},
					{ID: "2", Source: json.RawMessage(`{"id":"2","title":"The Matrix Reloaded"}`)},
				},
			}, nil
		},
	}

	repo := NewElastic(mc, testIndexes())
	d := mustDescriptor(t, entity.Film, query.Params{
		Text:    "matrix",
		Filters: map[string]string{"genre": "sci-fi"},
		Page:    2,
	})

	rs, err := repo.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Total != 31 || len(rs.Items) != 2 || rs.Page != 2 || rs.PageSize != 10 {
		t.Errorf("unexpected result set: %+v", rs)
	}

	body := decodeBody(t, captured)
	if body["from"] != float64(10) || body["size"] != float64(10) {
		t.Errorf("from/size = %v/%v", body["from"], body["size"])
	}
	if body["track_total_hits"] != true {
		t.Error("track_total_hits must be set")
	}

	want := decodeBody(t, []byte(`{
		"bool": {
			"must": [{"multi_match": {"query": "matrix", "fields": ["title", "description"], "operator": "or", "fuzziness": "AUTO"}}],
			"filter": [{"term": {"genre": "sci-fi"}}]
		}
	}`))
	if !reflect.DeepEqual(body["query"], any(want)) {
		t.Errorf("query = %v\nwant    %v", body["query"], want)
	}

	wantSort := []any{
		map[string]any{"_score": map[string]any{"order": "desc"}},
		map[string]any{"id": map[string]any{"order": "asc"}},
	}
	if !reflect.DeepEqual(body["sort"], wantSort) {
		t.Errorf("sort = %v", body["sort"])
	}
	if !reflect.DeepEqual(body["_source"], []any{"id", "title", "imdb_rating"}) {
		t.Errorf("_source = %v", body["_source"])
	}
}

func TestElasticSearch_DefaultSortAndNestedRange(t *testing.T) {
	var captured []byte
	mc := &mockElastic{
		searchFn: func(_ context.Context, _ string, body []byte) (*elastic.SearchResponse, error) {
			captured = body
			return &elastic.SearchResponse{}, nil
		},
	}

	repo := NewElastic(mc, testIndexes())
	d := mustDescriptor(t, entity.Film, query.Params{
		Filters: map[string]string{"actor": "a-1", "imdb_rating": "7.5.."},
	})
	if _, err := repo.Search(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := decodeBody(t, captured)
	want := decodeBody(t, []byte(`{
		"bool": {
			"must": [{"match_all": {}}],
			"filter": [
				{"nested": {"path": "actors", "query": {"term": {"actors.id": "a-1"}}}},
				{"range": {"imdb_rating": {"gte": 7.5}}}
			]
		}
	}`))
	if !reflect.DeepEqual(body["query"], any(want)) {
		t.Errorf("query = %v\nwant    %v", body["query"], want)
	}

	wantSort := []any{
		map[string]any{"imdb_rating": map[string]any{"order": "desc"}},
		map[string]any{"id": map[string]any{"order": "asc"}},
	}
	if !reflect.DeepEqual(body["sort"], wantSort) {
		t.Errorf("sort = %v", body["sort"])
	}
}

func TestElasticSearch_ExplicitSortUsesPath(t *testing.T) {
	var captured []byte
	mc := &mockElastic{
		searchFn: func(_ context.Context, _ string, body []byte) (*elastic.SearchResponse, error) {
			captured = body
			return &elastic.SearchResponse{}, nil
		},
	}

	repo := NewElastic(mc, testIndexes())
	d := mustDescriptor(t, entity.Person, query.Params{Text: "keanu", SortField: "full_name"})
	if _, err := repo.Search(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := decodeBody(t, captured)
	first := body["sort"].([]any)[0]
	if !reflect.DeepEqual(first, map[string]any{"full_name.raw": map[string]any{"order": "asc"}}) {
		t.Errorf("sort[0] = %v", first)
	}
}

func TestElasticSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejected", &db.Error{Op: db.OpESSearch, Err: db.ErrQueryRejected}, domain.ErrIndexQueryError},
		{"missing index", &db.Error{Op: db.OpESSearch, Err: db.ErrIndexNotFound}, domain.ErrIndexQueryError},
		{"transport", &db.Error{Op: db.OpESSearch, Err: errors.New("connection refused")}, domain.ErrIndexUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrIndexUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mc := &mockElastic{
				searchFn: func(context.Context, string, []byte) (*elastic.SearchResponse, error) {
					return nil, tc.err
				},
			}
			_, err := NewElastic(mc, testIndexes()).Search(context.Background(), mustDescriptor(t, entity.Genre, query.Params{}))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestElasticSearch_UnconfiguredIndex(t *testing.T) {
	repo := NewElastic(&mockElastic{}, map[entity.Type]string{entity.Film: "movies"})
	_, err := repo.Search(context.Background(), mustDescriptor(t, entity.Genre, query.Params{}))
	if !errors.Is(err, domain.ErrIndexQueryError) {
		t.Fatalf("expected ErrIndexQueryError, got %v", err)
	}
	if errors.Is(err, domain.ErrIndexUnavailable) {
		t.Error("a missing index mapping must not look retryable")
	}
	if _, err := repo.Get(context.Background(), entity.MustLookup(entity.Person), "p-1"); !errors.Is(err, domain.ErrIndexQueryError) {
		t.Fatalf("Get: expected ErrIndexQueryError, got %v", err)
	}
}

func TestElasticGet(t *testing.T) {
	mc := &mockElastic{
		getFn: func(_ context.Context, index, id string) (json.RawMessage, error) {
			if index != "persons" {
				t.Errorf("index = %q", index)
			}
			if id == "p1" {
				return json.RawMessage(`{"id":"p1"}`), nil
			}
			return nil, &db.Error{Op: db.OpESGet, Err: db.ErrKeyNotFound}
		},
	}
	repo := NewElastic(mc, testIndexes())

	doc, err := repo.Get(context.Background(), entity.MustLookup(entity.Person), "p1")
	if err != nil || string(doc) != `{"id":"p1"}` {
		t.Fatalf("Get(p1) = %s, %v", doc, err)
	}

	_, err = repo.Get(context.Background(), entity.MustLookup(entity.Person), "p2")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
