package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/cinedex/internal/db"
)

// fakeCluster serves canned responses keyed by "METHOD path".
type fakeCluster struct {
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	lastBody string
}

func newFakeCluster(t *testing.T) (*fakeCluster, *Client) {
	t.Helper()
	f := &fakeCluster{routes: map[string]func(w http.ResponseWriter, r *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			f.lastBody = string(b)
		}
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"resource_not_found_exception","reason":"no route"},"status":404}`)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Addrs: []string{srv.URL}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return f, c
}

func reply(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const infoBody = `{"name":"node-1","cluster_name":"test","version":{"number":"8.17.0"},"tagline":"You Know, for Search"}`

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

func TestNewClient_RequiresAddrs(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPing(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["GET /"] = reply(http.StatusOK, infoBody)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Unavailable(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["GET /"] = reply(http.StatusServiceUnavailable, `{"error":{"type":"master_not_discovered_exception","reason":"x"},"status":503}`)

	err := c.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, db.ErrQueryRejected) {
		t.Error("5xx must not be reported as a rejected query")
	}
}

func TestWaitForReady(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["GET /"] = reply(http.StatusOK, infoBody)

	if err := c.WaitForReady(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["HEAD /movies"] = reply(http.StatusOK, "")

	ok, err := c.IndexExists(context.Background(), "movies")
	if err != nil || !ok {
		t.Fatalf("IndexExists(movies) = %v, %v", ok, err)
	}

	ok, err = c.IndexExists(context.Background(), "persons")
	if err != nil || ok {
		t.Fatalf("IndexExists(persons) = %v, %v", ok, err)
	}
}

func TestSearch(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["POST /movies/_search"] = reply(http.StatusOK, `{
		"took": 3,
		"hits": {
			"total": {"value": 42, "relation": "eq"},
			"hits": [
				{"_id": "a", "_source": {"id": "a", "title": "Star Wars"}},
				{"_id": "b", "_source": {"id": "b", "title": "Star Trek"}}
			]
		}
	}`)

	res, err := c.Search(context.Background(), "movies", []byte(`{"size":2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 42 {
		t.Errorf("Total = %d, want 42", res.Total)
	}
	if len(res.Hits) != 2 || res.Hits[0].ID != "a" {
		t.Fatalf("unexpected hits: %+v", res.Hits)
	}
	var doc map[string]string
	if err := json.Unmarshal(res.Hits[1].Source, &doc); err != nil || doc["title"] != "Star Trek" {
		t.Errorf("source = %s", res.Hits[1].Source)
	}
	if f.lastBody != `{"size":2}` {
		t.Errorf("request body = %q", f.lastBody)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		sentinel  error
		unwrapped bool
	}{
		{"bad request", http.StatusBadRequest, `{"error":{"type":"search_phase_execution_exception","reason":"No mapping found for [budget]"},"status":400}`, db.ErrQueryRejected, false},
		{"missing index", http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [movies]"},"status":404}`, db.ErrIndexNotFound, false},
		{"overloaded", http.StatusTooManyRequests, `{"error":{"type":"es_rejected_execution_exception","reason":"queue full"},"status":429}`, nil, true},
		{"server error", http.StatusInternalServerError, `{}`, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, c := newFakeCluster(t)
			f.routes["POST /movies/_search"] = reply(tc.status, tc.body)

			_, err := c.Search(context.Background(), "movies", []byte(`{}`))
			if err == nil {
				t.Fatal("expected error")
			}
			if !isDBError(err) {
				t.Errorf("expected *db.Error, got %T", err)
			}
			if tc.sentinel != nil && !errors.Is(err, tc.sentinel) {
				t.Errorf("expected %v, got %v", tc.sentinel, err)
			}
			if tc.unwrapped && (errors.Is(err, db.ErrQueryRejected) || errors.Is(err, db.ErrIndexNotFound)) {
				t.Errorf("availability error classified as rejection: %v", err)
			}
		})
	}
}

func TestSearch_TransportError(t *testing.T) {
	c, err := NewClient(Config{Addrs: []string{"http://127.0.0.1:1"}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Search(context.Background(), "movies", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, db.ErrQueryRejected) {
		t.Error("transport error must not be reported as a rejected query")
	}
}

func TestGet(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["GET /persons/_doc/p1"] = reply(http.StatusOK, `{"_index":"persons","_id":"p1","found":true,"_source":{"id":"p1","full_name":"Keanu Reeves"}}`)
	f.routes["GET /persons/_doc/p2"] = reply(http.StatusNotFound, `{"_index":"persons","_id":"p2","found":false}`)

	src, err := c.Get(context.Background(), "persons", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(src), "Keanu Reeves") {
		t.Errorf("source = %s", src)
	}

	_, err = c.Get(context.Background(), "persons", "p2")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_MissingIndex(t *testing.T) {
	f, c := newFakeCluster(t)
	f.routes["GET /persons/_doc/p1"] = reply(http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [persons]"},"status":404}`)

	_, err := c.Get(context.Background(), "persons", "p1")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("missing index must not look like a missing document")
	}
}
