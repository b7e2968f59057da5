package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err   error
	block bool
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")

	tests := []struct {
		name   string
		cache  error
		index  error
		status Status
	}{
		{"all healthy", nil, nil, Healthy},
		{"cache down", down, nil, Degraded},
		{"index down", nil, down, Unhealthy},
		{"both down", down, down, Unhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tc.cache}, &mockPinger{err: tc.index})
			r := svc.Check(context.Background())

			if r.Status != tc.status {
				t.Errorf("expected %q, got %q", tc.status, r.Status)
			}
			wantCache, wantIndex := CheckOK, CheckOK
			if tc.cache != nil {
				wantCache = CheckError
			}
			if tc.index != nil {
				wantIndex = CheckError
			}
			if r.Checks["cache"] != wantCache || r.Checks["index"] != wantIndex {
				t.Errorf("checks = %v", r.Checks)
			}
		})
	}
}

func TestCheck_TimeoutBoundsSlowPinger(t *testing.T) {
	svc := New(&mockPinger{block: true}, &mockPinger{})
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	r := svc.Check(context.Background())

	if time.Since(start) > time.Second {
		t.Fatal("check was not bounded by timeout")
	}
	if r.Status != Degraded || r.Checks["cache"] != CheckError {
		t.Errorf("report = %+v", r)
	}
}
