package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

const (
	testTTL         = 5 * time.Minute
	testNegativeTTL = 30 * time.Second
	testMaxPageSize = 100
)

// mockIndex implements Searcher. Calls are counted atomically.
type mockIndex struct {
	searchFn    func(ctx context.Context, d query.Descriptor) (page.ResultSet, error)
	getFn       func(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error)
	searchCalls atomic.Int32
	getCalls    atomic.Int32
}

func (m *mockIndex) Search(ctx context.Context, d query.Descriptor) (page.ResultSet, error) {
	m.searchCalls.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, d)
	}
	return page.Empty(d), nil
}

func (m *mockIndex) Get(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error) {
	m.getCalls.Add(1)
	if m.getFn != nil {
		return m.getFn(ctx, schema, id)
	}
	return nil, domain.ErrNotFound
}

// memCache is an in-memory Cache with switchable failures.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	sets    int
	deletes []string
	setHook func(key string)
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	err := c.setErr
	if err == nil {
		c.data[key] = payload
		c.ttls[key] = ttl
	}
	hook := c.setHook
	c.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return err
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, key)
	delete(c.data, key)
	return nil
}

func (c *memCache) counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.sets
}

func (c *memCache) ttlOf(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ttl, ok := c.ttls[key]
	return ttl, ok
}

func (c *memCache) put(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = payload
}

func testConfig() Config {
	return Config{
		KeyPrefix:    "test:",
		TTL:          testTTL,
		NegativeTTL:  testNegativeTTL,
		IndexTimeout: 2 * time.Second,
		MaxPageSize:  testMaxPageSize,
	}
}

func testMetrics() Metrics {
	return Metrics{
		CacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_search_cache_total"},
			[]string{"entity", "result"}),
		FlightTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_search_flight_total"},
			[]string{"entity", "shared"}),
		IndexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_index_duration_seconds"},
			[]string{"entity", "status"}),
	}
}

func newTestService(t *testing.T) (*Service, *mockIndex, *memCache) {
	t.Helper()
	idx := &mockIndex{}
	c := newMemCache()
	return New(idx, c, testConfig(), testMetrics(), zap.NewNop()), idx, c
}

func matrixDescriptor(t *testing.T) query.Descriptor {
	t.Helper()
	d, err := query.New(entity.MustLookup(entity.Film), query.Params{
		Text:     "matrix",
		Filters:  map[string]string{"genre": "sci-fi"},
		Page:     1,
		PageSize: 10,
	}, testMaxPageSize)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return d
}

// films builds a result set with n summaries and the given engine total.
func films(d query.Descriptor, n, total int) page.ResultSet {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(fmt.Sprintf(`{"id":"f%d","title":"The Matrix %d"}`, i, i))
	}
	return page.ResultSet{Items: items, Total: total, Page: d.Page(), PageSize: d.PageSize()}
}
