package cinedex

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/cinedex/internal/usecase/health"
)

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	queryFn  func(ctx context.Context, t entity.Type, p query.Params) (page.Response, error)
	lookupFn func(ctx context.Context, t entity.Type, id string) (json.RawMessage, error)
	forgetFn func(ctx context.Context, t entity.Type, id string) error
}

func (m *mockCatalogUC) Query(ctx context.Context, t entity.Type, p query.Params) (page.Response, error) {
	return m.queryFn(ctx, t, p)
}

func (m *mockCatalogUC) Lookup(ctx context.Context, t entity.Type, id string) (json.RawMessage, error) {
	return m.lookupFn(ctx, t, id)
}

func (m *mockCatalogUC) Forget(ctx context.Context, t entity.Type, id string) error {
	return m.forgetFn(ctx, t, id)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
