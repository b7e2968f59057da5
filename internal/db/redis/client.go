package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinedex/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName  = "cinedex"
	defaultDialTimeout = 5 * time.Second

	readyPollMin = 50 * time.Millisecond
	readyPollMax = time.Second
)

// Config holds connection parameters for a Redis or Valkey server.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int

	// ClientName is sent with CLIENT SETNAME. Defaults to "cinedex".
	ClientName string
	// Standalone skips cluster discovery for a single-node server.
	Standalone  bool
	DialTimeout time.Duration
}

func (c Config) clientOption() rueidis.ClientOption {
	name := c.ClientName
	if name == "" {
		name = defaultClientName
	}
	dial := c.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	return rueidis.ClientOption{
		InitAddress:       c.Addrs,
		Username:          c.Username,
		Password:          c.Password,
		SelectDB:          c.DB,
		ClientName:        name,
		ForceSingleClient: c.Standalone,
		Dialer:            net.Dialer{Timeout: dial},
		DisableCache:      true,
		AlwaysRESP2:       true, // FT.SEARCH replies are parsed as RESP2 arrays
	}
}

// Store is a rueidis-backed db.Store. It backs the response cache and,
// on servers with the search module, the FT.SEARCH index adapter.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the server described by cfg.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	client, err := rueidis.NewClient(cfg.clientOption())
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping round-trips a PING.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until the server answers, backing off between attempts.
// The returned error carries the last ping failure.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := readyPollMin
	for {
		lastErr := s.Ping(ctx)
		if lastErr == nil {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis not ready after %s: %w", timeout, errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}
		wait = min(wait*2, readyPollMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error reply mentioning substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

// wrapErr marks server error replies with db.ErrQueryRejected. Anything else
// is a transport failure.
func wrapErr(op string, err error) error {
	if _, ok := rueidis.IsRedisErr(err); ok {
		err = fmt.Errorf("%w: %w", db.ErrQueryRejected, err)
	}
	return &db.Error{Op: op, Err: err}
}
