package cinedex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	dbElastic "github.com/kailas-cloud/cinedex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/cinedex/internal/db/redis"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
	"github.com/kailas-cloud/cinedex/internal/metrics"
	"github.com/kailas-cloud/cinedex/internal/repository/pagecache"
	searchrepo "github.com/kailas-cloud/cinedex/internal/repository/search"
	healthuc "github.com/kailas-cloud/cinedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cinedex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// catalogUseCase is the internal interface for cached catalog reads.
type catalogUseCase interface {
	Query(ctx context.Context, t entity.Type, p query.Params) (page.Response, error)
	Lookup(ctx context.Context, t entity.Type, id string) (json.RawMessage, error)
	Forget(ctx context.Context, t entity.Type, id string) error
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type indexBackend interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Client is the cinedex SDK entry point.
type Client struct {
	catalog   catalogUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// New creates a Client, connects to the cache and the index and waits for the index.
// The provided context is used for the readiness checks. An unreachable cache
// is not fatal: reads then go to the index.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.cacheAddrs) == 0 {
		return nil, errors.New("cinedex: cache address required (use WithRedisCache or WithValkeyCache)")
	}
	if cfg.indexDriver == "" {
		return nil, errors.New("cinedex: index required (use WithElasticsearch or WithRediSearch)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	cacheStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.cacheAddrs,
		Password:   cfg.cachePassword,
		Standalone: cfg.standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("cinedex: create cache store: %w", err)
	}
	c := &Client{obs: obs, closers: []func(){cacheStore.Close}}

	indexes, err := indexNames(cfg.indexNames)
	if err != nil {
		c.Close()
		return nil, err
	}

	index, backend, err := c.createIndex(cfg, indexes)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := backend.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		c.Close()
		return nil, fmt.Errorf("cinedex: index not ready: %w", err)
	}
	if err := cacheStore.WaitForReady(ctx, defaultReadinessTimeout); err != nil && cfg.logger != nil {
		cfg.logger.Warn("cache not ready", "error", err)
	}

	m, err := searchMetrics(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	cache := pagecache.New(cacheStore, cfg.cacheTimeout, m.cacheOps, zap.NewNop())
	c.catalog = searchuc.New(index, cache, searchuc.Config{
		KeyPrefix:       cfg.keyPrefix,
		TTL:             cfg.ttl,
		NegativeTTL:     cfg.negativeTTL,
		IndexTimeout:    cfg.indexTimeout,
		MaxPageSize:     cfg.maxPageSize,
		MaxResultWindow: cfg.maxResultWindow,
	}, m.search, zap.NewNop())
	c.healthSvc = healthuc.New(cacheStore, backend)
	return c, nil
}

func (c *Client) createIndex(
	cfg *clientConfig, indexes map[entity.Type]string,
) (searchuc.Searcher, indexBackend, error) {
	switch cfg.indexDriver {
	case driverElasticsearch:
		es, err := dbElastic.NewClient(dbElastic.Config{
			Addrs:    cfg.indexAddrs,
			Username: cfg.indexUsername,
			Password: cfg.indexPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cinedex: create elasticsearch client: %w", err)
		}
		return searchrepo.NewElastic(es, indexes), es, nil
	case driverRediSearch:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.indexAddrs,
			Password:   cfg.indexPassword,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cinedex: create redisearch store: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		return searchrepo.NewRediSearch(s, indexes), s, nil
	default:
		return nil, nil, fmt.Errorf("cinedex: unknown index driver %q", cfg.indexDriver)
	}
}

func indexNames(names map[string]string) (map[entity.Type]string, error) {
	out := make(map[entity.Type]string, len(names))
	for name, index := range names {
		t, err := entity.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("cinedex: index name: %w", err)
		}
		if index == "" {
			return nil, fmt.Errorf("cinedex: empty index name for %s", t)
		}
		out[t] = index
	}
	return out, nil
}

type clientMetrics struct {
	search   searchuc.Metrics
	cacheOps *prometheus.CounterVec
}

// searchMetrics shares the server's cache and index collectors when a registerer is given.
func searchMetrics(cfg *clientConfig) (clientMetrics, error) {
	if cfg.metricsReg == nil {
		return clientMetrics{}, nil
	}
	m := clientMetrics{
		search: searchuc.Metrics{
			CacheTotal:    metrics.SearchCacheTotal,
			FlightTotal:   metrics.SearchFlightTotal,
			IndexDuration: metrics.IndexRequestDuration,
		},
		cacheOps: metrics.CacheOperationsTotal,
	}
	for _, err := range []error{
		registerOrReuse(cfg.metricsReg, &m.search.CacheTotal),
		registerOrReuse(cfg.metricsReg, &m.search.FlightTotal),
		registerOrReuse(cfg.metricsReg, &m.search.IndexDuration),
		registerOrReuse(cfg.metricsReg, &m.cacheOps),
	} {
		if err != nil {
			return clientMetrics{}, err
		}
	}
	return m, nil
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Films returns the film catalog.
func (c *Client) Films() *CatalogService {
	return &CatalogService{entity: entity.Film, catalog: c.catalog, obs: c.obs}
}

// Persons returns the person catalog.
func (c *Client) Persons() *CatalogService {
	return &CatalogService{entity: entity.Person, catalog: c.catalog, obs: c.obs}
}

// Genres returns the genre catalog.
func (c *Client) Genres() *CatalogService {
	return &CatalogService{entity: entity.Genre, catalog: c.catalog, obs: c.obs}
}

// HealthStatus is the aggregated health of the cache and the index.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // component -> "ok" or "error"
}

// Health checks the cache and the index.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}
