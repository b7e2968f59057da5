package search

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/filter"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// jsonRoot is the RETURN field that yields a whole JSON document.
const jsonRoot = "$"

// store is the consumer interface for FT.SEARCH (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// RediSearch implements usecase/search.Searcher on FT.SEARCH over JSON documents.
// Index attributes are the document paths with "." replaced by "_" (actors.id → actors_id).
type RediSearch struct {
	store   store
	indexes map[entity.Type]string
}

// NewRediSearch creates a RediSearch adapter. indexes maps entity types to FT index names.
func NewRediSearch(s store, indexes map[entity.Type]string) *RediSearch {
	return &RediSearch{store: s, indexes: indexes}
}

// Search runs one page of the descriptor's query.
func (r *RediSearch) Search(ctx context.Context, d query.Descriptor) (page.ResultSet, error) {
	index, err := indexFor(r.indexes, d.Entity())
	if err != nil {
		return page.ResultSet{}, err
	}

	schema := d.Schema()
	q := &db.SearchQuery{
		IndexName:    index,
		Text:         d.Text(),
		TextFields:   attributes(schema.TextFields),
		Fuzzy:        schema.Fuzziness != "",
		Filters:      filterClauses(schema, d.Filters()),
		Offset:       d.Offset(),
		Limit:        d.PageSize(),
		ReturnFields: []string{jsonRoot},
	}

	// FT.SEARCH orders by score when no SORTBY is given.
	if s := d.EffectiveSort(); !s.ByScore && s.Field != "" {
		q.SortBy = attribute(s.Field)
		if f, ok := schema.SortField(s.Field); ok {
			q.SortBy = attribute(f.Path)
		}
		q.SortDesc = s.Desc
	}

	sr, err := r.store.Search(ctx, q)
	if err != nil {
		return page.ResultSet{}, classify("search "+string(d.Entity()), err)
	}

	items := make([]json.RawMessage, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, err := project(entry, schema.SummaryFields)
		if err != nil {
			return page.ResultSet{}, fmt.Errorf("search %s: %w: %w", d.Entity(), domain.ErrIndexQueryError, err)
		}
		items = append(items, doc)
	}

	return page.ResultSet{
		Items:    items,
		Total:    sr.Total,
		Page:     d.Page(),
		PageSize: d.PageSize(),
	}, nil
}

// Get fetches the full document for id through an exact match on the id attribute.
func (r *RediSearch) Get(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error) {
	index, err := indexFor(r.indexes, schema.Type)
	if err != nil {
		return nil, err
	}

	cond, err := filter.NewMatch("id", id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	sr, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    index,
		Filters:      []db.FilterClause{{Attribute: "id", Condition: cond}},
		Limit:        1,
		ReturnFields: []string{jsonRoot},
	})
	if err != nil {
		return nil, classify("get "+string(schema.Type), err)
	}
	if len(sr.Entries) == 0 {
		return nil, fmt.Errorf("get %s %s: %w", schema.Type, id, domain.ErrNotFound)
	}

	return project(sr.Entries[0], nil)
}

func filterClauses(schema entity.Schema, conds []filter.Condition) []db.FilterClause {
	out := make([]db.FilterClause, 0, len(conds))
	for _, c := range conds {
		field, ok := schema.FilterField(c.Key())
		if !ok {
			continue
		}
		out = append(out, db.FilterClause{Attribute: attribute(field.Path), Condition: c})
	}
	return out
}

// project returns the entry's JSON document restricted to fields (all fields when empty).
// Hash-backed entries without a JSON root are rendered from their flat fields.
func project(entry db.SearchEntry, fields []string) (json.RawMessage, error) {
	raw, ok := entry.Fields[jsonRoot]
	if !ok {
		flat := make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			if len(fields) == 0 || slices.Contains(fields, k) {
				flat[k] = v
			}
		}
		return json.Marshal(flat)
	}

	if len(fields) == 0 {
		return json.RawMessage(raw), nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", entry.Key, err)
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return json.Marshal(out)
}

func attribute(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

func attributes(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = attribute(p)
	}
	return out
}
