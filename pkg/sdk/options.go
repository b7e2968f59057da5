package cinedex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Index drivers.
const (
	driverElasticsearch = "elasticsearch"
	driverRediSearch    = "redisearch"
)

type clientConfig struct {
	cacheAddrs    []string
	cachePassword string

	standalone    bool
	indexDriver   string
	indexAddrs    []string
	indexUsername string
	indexPassword string
	indexNames    map[string]string

	keyPrefix    string
	ttl          time.Duration
	negativeTTL  time.Duration
	cacheTimeout time.Duration
	indexTimeout time.Duration
	maxPageSize  int

	maxResultWindow int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		indexNames: map[string]string{
			"film":   "movies",
			"person": "persons",
			"genre":  "genres",
		},
		keyPrefix:    "cinedex:",
		ttl:          5 * time.Minute,
		negativeTTL:  30 * time.Second,
		cacheTimeout: 200 * time.Millisecond,
		indexTimeout: 2 * time.Second,
		maxPageSize:  100,
	}
}

// WithRedisCache stores responses in a Redis instance.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithValkeyCache stores responses in a Valkey instance.
func WithValkeyCache(addr, password string) Option {
	return WithRedisCache(addr, password)
}

// WithStandalone connects to single-node Redis or Valkey servers without
// cluster discovery.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithElasticsearch reads from an Elasticsearch cluster.
func WithElasticsearch(addrs []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDriver = driverElasticsearch
		c.indexAddrs = addrs
		c.indexUsername = username
		c.indexPassword = password
	})
}

// WithRediSearch reads from RediSearch indexes on a Redis instance.
func WithRediSearch(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDriver = driverRediSearch
		c.indexAddrs = []string{addr}
		c.indexPassword = password
	})
}

// WithIndexName overrides the index read for an entity ("film", "person", "genre").
// Defaults: movies, persons, genres.
func WithIndexName(entity, index string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexNames[entity] = index
	})
}

// WithKeyPrefix sets the cache key namespace. Default: "cinedex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTTL sets the lifetime of cached pages and of cached empty results.
// Defaults: 5m and 30s.
func WithTTL(ttl, negativeTTL time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.ttl = ttl
		c.negativeTTL = negativeTTL
	})
}

// WithTimeouts bounds single cache and index calls. Defaults: 200ms and 2s.
func WithTimeouts(cache, index time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTimeout = cache
		c.indexTimeout = index
	})
}

// WithMaxPageSize sets the largest accepted page size. Default: 100.
func WithMaxPageSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxPageSize = size
	})
}

// WithMaxResultWindow sets the deepest addressable hit, page * page_size.
// Default: 10000, the Elasticsearch index.max_result_window default.
func WithMaxResultWindow(hits int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResultWindow = hits
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK and cache metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
