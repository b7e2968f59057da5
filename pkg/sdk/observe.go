package cinedex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
)

// callMetrics are the per-call collectors exposed under cinedex_sdk_*.
type callMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// observer logs and counts calls made through a Client. A nil observer is a no-op.
type observer struct {
	log     *slog.Logger
	metrics *callMetrics
}

func newObserver(log *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{log: log}
	if reg == nil {
		return o, nil
	}

	m := &callMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinedex",
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "SDK calls by entity, operation and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cinedex",
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "SDK call latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"entity", "operation"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// registerOrReuse registers c, or points c at the collector already registered
// under the same descriptor so several Clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("cinedex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("cinedex: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// begin starts timing a call. The returned func records its outcome.
func (o *observer) begin(t entity.Type, op string) func(error) {
	if o == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		outcome := outcomeOf(err)

		if o.metrics != nil {
			o.metrics.calls.WithLabelValues(string(t), op, outcome).Inc()
			o.metrics.latency.WithLabelValues(string(t), op).Observe(elapsed.Seconds())
		}
		if o.log == nil {
			return
		}
		attrs := []any{"entity", string(t), "op", op, "elapsed", elapsed}
		switch outcome {
		case "ok", "not_found":
			o.log.Debug("cinedex call", append(attrs, "outcome", outcome)...)
		default:
			o.log.Warn("cinedex call failed", append(attrs, "outcome", outcome, "error", err)...)
		}
	}
}

// outcomeOf buckets an error into a low-cardinality label. A missing
// document is a normal answer, not a failure.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	default:
		return "error"
	}
}
