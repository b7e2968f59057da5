package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means the cache is down; searches still work against the index.
	Degraded Status = "degraded"
	// Unhealthy means the index is down and searches fail.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache   Pinger
	index   Pinger
	timeout time.Duration
}

// New creates a Service.
func New(cache, index Pinger) *Service {
	return &Service{cache: cache, index: index, timeout: defaultCheckTimeout}
}

// Check pings cache and index concurrently, each bounded by the check timeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, 2)
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, p := range map[string]Pinger{"cache": s.cache, "index": s.index} {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := p.Ping(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	switch {
	case checks["index"] == CheckError:
		status = Unhealthy
	case checks["cache"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
