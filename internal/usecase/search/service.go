package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/filter"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// Config tunes caching and index access.
type Config struct {
	KeyPrefix    string
	TTL          time.Duration // positive entries
	NegativeTTL  time.Duration // confirmed empty results
	IndexTimeout time.Duration
	MaxPageSize  int

	// MaxResultWindow caps page * page_size. Zero means query.DefaultMaxResultWindow.
	MaxResultWindow int
}

// Metrics are the collectors the service reports to. Nil collectors are skipped.
type Metrics struct {
	CacheTotal    *prometheus.CounterVec   // labels: entity, result
	FlightTotal   *prometheus.CounterVec   // labels: entity, shared
	IndexDuration *prometheus.HistogramVec // labels: entity, status
}

// Service answers catalog queries cache-first, collapsing concurrent identical
// misses into one index call.
type Service struct {
	index   Searcher
	cache   Cache
	cfg     Config
	metrics Metrics
	logger  *zap.Logger
	flights singleflight.Group
}

// New creates a search service.
func New(index Searcher, cache Cache, cfg Config, m Metrics, logger *zap.Logger) *Service {
	return &Service{
		index:   index,
		cache:   cache,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Query validates raw parameters and resolves them.
func (s *Service) Query(ctx context.Context, t entity.Type, p query.Params) (page.Response, error) {
	schema, ok := entity.Lookup(t)
	if !ok {
		return page.Response{}, fmt.Errorf("%w: unknown entity %q", domain.ErrInvalidQuery, t)
	}

	d, err := query.NewWithin(schema, p, s.cfg.MaxPageSize, s.cfg.MaxResultWindow)
	if err != nil {
		return page.Response{}, err
	}
	return s.Resolve(ctx, d)
}

// Resolve returns one page for d.
//
// Cache read failures count as misses. On a miss the first caller for a key
// runs the index query; concurrent callers for the same key wait for its
// outcome. Successful outcomes are written to the cache before waiters are
// released; errors are never cached.
func (s *Service) Resolve(ctx context.Context, d query.Descriptor) (page.Response, error) {
	if d.IsZero() {
		return page.Response{}, fmt.Errorf("%w: empty descriptor", domain.ErrInvalidQuery)
	}

	ent := string(d.Entity())
	key := query.Encode(s.cfg.KeyPrefix, d)

	e, outcome := s.read(ctx, key)
	s.countCache(ent, outcome)
	if outcome == outcomeHit || outcome == outcomeNegativeHit {
		return page.Assemble(resultSet(e, d), d), nil
	}

	v, err := s.flight(ctx, ent, key, func(fctx context.Context) (any, error) {
		if e, o := s.read(fctx, key); o == outcomeHit || o == outcomeNegativeHit {
			return resultSet(e, d), nil
		}

		rs, err := s.search(fctx, d)
		if err != nil {
			return nil, err
		}

		if rs.Total == 0 {
			s.write(fctx, key, entry{Negative: true}, s.cfg.NegativeTTL)
		} else {
			s.write(fctx, key, entry{Total: rs.Total, Items: rs.Items}, s.cfg.TTL)
		}
		return rs, nil
	})
	if err != nil {
		return page.Response{}, err
	}

	return page.Assemble(v.(page.ResultSet), d), nil
}

// Lookup returns a single document by id through the same cache-first flow.
// A missing document is cached negatively and reported as domain.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, t entity.Type, id string) (json.RawMessage, error) {
	schema, id, err := s.documentTarget(t, id)
	if err != nil {
		return nil, err
	}

	ent := string(t)
	key := query.EncodeDocument(s.cfg.KeyPrefix, schema, id)

	e, outcome := s.read(ctx, key)
	s.countCache(ent, outcome)
	switch outcome {
	case outcomeHit:
		return e.Doc, nil
	case outcomeNegativeHit:
		return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
	}

	v, err := s.flight(ctx, ent, key, func(fctx context.Context) (any, error) {
		switch e, o := s.read(fctx, key); o {
		case outcomeHit:
			return e.Doc, nil
		case outcomeNegativeHit:
			return nil, fmt.Errorf("%s %s: %w", t, id, domain.ErrNotFound)
		}

		doc, err := s.get(fctx, schema, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.write(fctx, key, entry{Negative: true}, s.cfg.NegativeTTL)
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		s.write(fctx, key, entry{Doc: doc}, s.cfg.TTL)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(json.RawMessage), nil
}

// Forget drops the cached copy of one document so the next Lookup reads the index.
func (s *Service) Forget(ctx context.Context, t entity.Type, id string) error {
	schema, id, err := s.documentTarget(t, id)
	if err != nil {
		return err
	}
	key := query.EncodeDocument(s.cfg.KeyPrefix, schema, id)
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("forget %s %s: %w", t, id, err)
	}
	return nil
}

func (s *Service) documentTarget(t entity.Type, id string) (entity.Schema, string, error) {
	schema, ok := entity.Lookup(t)
	if !ok {
		return entity.Schema{}, "", fmt.Errorf("%w: unknown entity %q", domain.ErrInvalidQuery, t)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return entity.Schema{}, "", fmt.Errorf("%w: id is required", domain.ErrInvalidQuery)
	}
	if len(id) > filter.MaxValueLength {
		return entity.Schema{}, "", fmt.Errorf("%w: id too long (max %d)", domain.ErrInvalidQuery, filter.MaxValueLength)
	}
	return schema, id, nil
}

// flight runs fn once per key among concurrent callers.
// fn runs on a context detached from the caller, so a caller that gives up
// returns its own context error while the flight completes for the others.
func (s *Service) flight(
	ctx context.Context, ent, key string, fn func(context.Context) (any, error),
) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		s.countFlight(ent, res.Shared)
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// --- index ---

func (s *Service) search(ctx context.Context, d query.Descriptor) (page.ResultSet, error) {
	ctx, cancel := s.indexBound(ctx)
	defer cancel()

	start := time.Now()
	rs, err := s.index.Search(ctx, d)
	s.observeIndex(string(d.Entity()), start, err)
	if err != nil {
		return page.ResultSet{}, fmt.Errorf("search %s: %w", d.Entity(), indexError(err))
	}
	return rs, nil
}

func (s *Service) get(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error) {
	ctx, cancel := s.indexBound(ctx)
	defer cancel()

	start := time.Now()
	doc, err := s.index.Get(ctx, schema, id)
	s.observeIndex(string(schema.Type), start, err)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", schema.Type, id, indexError(err))
	}
	return doc, nil
}

func (s *Service) indexBound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.IndexTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.IndexTimeout)
}

// indexError keeps classified errors as they are; anything else
// (a timeout raised before the adapter could classify it) is an outage.
func indexError(err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexUnavailable),
		errors.Is(err, domain.ErrIndexQueryError),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidQuery):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
}

// --- cache ---

type outcome string

const (
	outcomeHit         outcome = "hit"
	outcomeNegativeHit outcome = "negative_hit"
	outcomeMiss        outcome = "miss"
	outcomeError       outcome = "error"
)

func (s *Service) read(ctx context.Context, key string) (entry, outcome) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return entry{}, outcomeError
	}
	if !ok {
		return entry{}, outcomeMiss
	}

	e, err := decodeEntry(data)
	if err != nil {
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return entry{}, outcomeError
	}
	if e.Negative {
		return e, outcomeNegativeHit
	}
	return e, outcomeHit
}

func (s *Service) write(ctx context.Context, key string, e entry, ttl time.Duration) {
	data, err := encodeEntry(e)
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

func resultSet(e entry, d query.Descriptor) page.ResultSet {
	if e.Negative {
		return page.Empty(d)
	}
	return page.ResultSet{
		Items:    e.Items,
		Total:    e.Total,
		Page:     d.Page(),
		PageSize: d.PageSize(),
	}
}

// --- metrics ---

func (s *Service) countCache(ent string, o outcome) {
	if s.metrics.CacheTotal != nil {
		s.metrics.CacheTotal.WithLabelValues(ent, string(o)).Inc()
	}
}

func (s *Service) countFlight(ent string, shared bool) {
	if s.metrics.FlightTotal != nil {
		s.metrics.FlightTotal.WithLabelValues(ent, strconv.FormatBool(shared)).Inc()
	}
}

func (s *Service) observeIndex(ent string, start time.Time, err error) {
	if s.metrics.IndexDuration == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		status = "not_found"
	case errors.Is(err, domain.ErrIndexQueryError):
		status = "query_error"
	default:
		status = "unavailable"
	}
	s.metrics.IndexDuration.WithLabelValues(ent, status).Observe(time.Since(start).Seconds())
}
