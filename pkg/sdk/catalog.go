package cinedex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// Request describes one page of a catalog search.
type Request struct {
	// Text is the free-text query. Empty lists the catalog.
	Text string
	// Filters maps filter names to values: exact values for tag filters,
	// "min..max" (either side optional) for numeric ones.
	Filters map[string]string
	// Sort is a sortable field, "-field" for descending. Empty means
	// relevance with Text and the entity default without.
	Sort string
	// Page is 1-based. Zero means 1.
	Page int
	// PageSize zero means 50.
	PageSize int
}

// Page is one page of search results. Items are the documents' summary JSON.
type Page struct {
	Items      []json.RawMessage
	TotalCount int
	Page       int
	PageSize   int
	HasMore    bool
}

// CatalogService reads one entity type.
type CatalogService struct {
	entity  entity.Type
	catalog catalogUseCase
	obs     *observer
}

// Search returns one page of matches.
func (s *CatalogService) Search(ctx context.Context, req Request) (_ Page, err error) {
	done := s.obs.begin(s.entity, "search")
	defer func() { done(err) }()

	field, dir := query.ParseSort(req.Sort)
	p := query.Params{
		Text:          req.Text,
		Filters:       req.Filters,
		SortField:     field,
		SortDirection: dir,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 50
	}

	resp, err := s.catalog.Query(ctx, s.entity, p)
	if err != nil {
		return Page{}, fmt.Errorf("search %s: %w", s.entity, err)
	}
	return Page{
		Items:      resp.Items,
		TotalCount: resp.TotalCount,
		Page:       resp.Page,
		PageSize:   resp.PageSize,
		HasMore:    resp.HasMore,
	}, nil
}

// Get returns the full document with the given id.
func (s *CatalogService) Get(ctx context.Context, id string) (_ json.RawMessage, err error) {
	done := s.obs.begin(s.entity, "get")
	defer func() { done(err) }()

	doc, err := s.catalog.Lookup(ctx, s.entity, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", s.entity, id, err)
	}
	return doc, nil
}

// GetInto decodes the document with the given id into v.
func (s *CatalogService) GetInto(ctx context.Context, id string, v any) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", s.entity, id, err)
	}
	return nil
}

// Forget drops the cached copy of a document after it changed in the index.
func (s *CatalogService) Forget(ctx context.Context, id string) (err error) {
	done := s.obs.begin(s.entity, "forget")
	defer func() { done(err) }()

	if err := s.catalog.Forget(ctx, s.entity, id); err != nil {
		return fmt.Errorf("forget %s %s: %w", s.entity, id, err)
	}
	return nil
}
