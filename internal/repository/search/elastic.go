package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/cinedex/internal/db/elastic"
	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/filter"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// elasticClient is the consumer interface for the Elasticsearch client (ISP).
type elasticClient interface {
	Search(ctx context.Context, index string, body []byte) (*elastic.SearchResponse, error)
	Get(ctx context.Context, index, id string) (json.RawMessage, error)
}

// Elastic implements usecase/search.Searcher on the Elasticsearch query DSL.
type Elastic struct {
	client  elasticClient
	indexes map[entity.Type]string
}

// NewElastic creates an Elasticsearch search adapter. indexes maps entity types to index names.
func NewElastic(c elasticClient, indexes map[entity.Type]string) *Elastic {
	return &Elastic{client: c, indexes: indexes}
}

// Search runs one page of the descriptor's query.
func (e *Elastic) Search(ctx context.Context, d query.Descriptor) (page.ResultSet, error) {
	index, err := indexFor(e.indexes, d.Entity())
	if err != nil {
		return page.ResultSet{}, err
	}

	body, err := json.Marshal(buildDSL(d))
	if err != nil {
		return page.ResultSet{}, fmt.Errorf("marshal query: %w", err)
	}

	res, err := e.client.Search(ctx, index, body)
	if err != nil {
		return page.ResultSet{}, classify("search "+string(d.Entity()), err)
	}

	items := make([]json.RawMessage, 0, len(res.Hits))
	for _, hit := range res.Hits {
		items = append(items, hit.Source)
	}

	return page.ResultSet{
		Items:    items,
		Total:    res.Total,
		Page:     d.Page(),
		PageSize: d.PageSize(),
	}, nil
}

// Get fetches the full document for id.
func (e *Elastic) Get(ctx context.Context, schema entity.Schema, id string) (json.RawMessage, error) {
	index, err := indexFor(e.indexes, schema.Type)
	if err != nil {
		return nil, err
	}

	src, err := e.client.Get(ctx, index, id)
	if err != nil {
		return nil, classify("get "+string(schema.Type), err)
	}
	return src, nil
}

// --- DSL ---

type object = map[string]any

func buildDSL(d query.Descriptor) object {
	schema := d.Schema()

	boolQuery := object{}
	if d.HasText() {
		mm := object{
			"query":    d.Text(),
			"fields":   schema.TextFields,
			"operator": "or",
		}
		if schema.Fuzziness != "" {
			mm["fuzziness"] = schema.Fuzziness
		}
		boolQuery["must"] = []object{{"multi_match": mm}}
	} else {
		boolQuery["must"] = []object{{"match_all": object{}}}
	}

	conds := d.Filters()
	if len(conds) > 0 {
		clauses := make([]object, 0, len(conds))
		for _, c := range conds {
			field, ok := schema.FilterField(c.Key())
			if !ok {
				continue
			}
			clauses = append(clauses, filterClause(field, c))
		}
		boolQuery["filter"] = clauses
	}

	return object{
		"from":             d.Offset(),
		"size":             d.PageSize(),
		"track_total_hits": true,
		"query":            object{"bool": boolQuery},
		"sort":             sortClauses(d),
		"_source":          schema.SummaryFields,
	}
}

func filterClause(field entity.FilterField, c filter.Condition) object {
	var clause object
	if c.IsRange() {
		bounds := object{}
		if m := c.Range().Min(); m != nil {
			bounds["gte"] = *m
		}
		if m := c.Range().Max(); m != nil {
			bounds["lte"] = *m
		}
		clause = object{"range": object{field.Path: bounds}}
	} else {
		clause = object{"term": object{field.Path: c.Match()}}
	}

	if field.Nested != "" {
		return object{"nested": object{"path": field.Nested, "query": clause}}
	}
	return clause
}

// sortClauses resolves the effective sort and appends the id tie-breaker
// so equal-scored documents keep a stable order across pages.
func sortClauses(d query.Descriptor) []object {
	s := d.EffectiveSort()

	var out []object
	switch {
	case s.ByScore:
		out = append(out, object{"_score": object{"order": "desc"}})
	case s.Field != "":
		path := s.Field
		if f, ok := d.Schema().SortField(s.Field); ok {
			path = f.Path
		}
		out = append(out, object{path: object{"order": order(s.Desc)}})
	}

	return append(out, object{"id": object{"order": "asc"}})
}

func order(desc bool) string {
	if desc {
		return "desc"
	}
	return "asc"
}

func indexFor(indexes map[entity.Type]string, t entity.Type) (string, error) {
	name, ok := indexes[t]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: no index configured for entity %q", domain.ErrIndexQueryError, t)
	}
	return name, nil
}
