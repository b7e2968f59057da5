package pagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/domain"
)

// store is the consumer interface for the page cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache stores opaque payloads under string keys with a TTL.
// Every call is bounded by timeout; backend failures wrap domain.ErrCacheUnavailable.
type Cache struct {
	store    store
	timeout  time.Duration
	opsTotal *prometheus.CounterVec
	logger   *zap.Logger
}

// New creates a page cache.
// opsTotal is a counter vec with labels "op" and "result", passed explicitly; nil disables it.
func New(s store, timeout time.Duration, opsTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:    s,
		timeout:  timeout,
		opsTotal: opsTotal,
		logger:   logger,
	}
}

// Get returns the payload for key. A missing key is (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		c.inc("get", "miss")
		return nil, false, nil
	case err != nil:
		c.inc("get", "error")
		return nil, false, fmt.Errorf("cache get: %w: %w", domain.ErrCacheUnavailable, err)
	}

	c.inc("get", "hit")
	return data, true, nil
}

// Set stores payload under key, replacing any previous value.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache set: ttl must be positive, got %s", ttl)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.store.SetWithTTL(ctx, key, payload, ttl); err != nil {
		c.inc("set", "error")
		return fmt.Errorf("cache set: %w: %w", domain.ErrCacheUnavailable, err)
	}
	c.inc("set", "ok")
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.store.Del(ctx, key); err != nil {
		c.inc("delete", "error")
		return fmt.Errorf("cache delete: %w: %w", domain.ErrCacheUnavailable, err)
	}
	c.inc("delete", "ok")
	c.logger.Debug("Cache entry deleted", zap.String("key", key))
	return nil
}

func (c *Cache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cache) inc(op, result string) {
	if c.opsTotal != nil {
		c.opsTotal.WithLabelValues(op, result).Inc()
	}
}
