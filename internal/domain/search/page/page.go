package page

import (
	"encoding/json"

	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
)

// ResultSet is one page of index matches in index order.
// Items are opaque document summaries; Total is the engine match count, not len(Items).
type ResultSet struct {
	Items    []json.RawMessage
	Total    int
	Page     int
	PageSize int
}

// Empty returns a zero-match result set for the descriptor's page.
func Empty(d query.Descriptor) ResultSet {
	return ResultSet{Page: d.Page(), PageSize: d.PageSize()}
}

// Response is the externally shaped page.
type Response struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	HasMore    bool              `json:"has_more"`
}

// Assemble maps a result set onto the response shape for the descriptor that produced it.
func Assemble(rs ResultSet, d query.Descriptor) Response {
	items := rs.Items
	if len(items) > d.PageSize() {
		items = items[:d.PageSize()]
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	return Response{
		Items:      items,
		TotalCount: rs.Total,
		Page:       d.Page(),
		PageSize:   d.PageSize(),
		HasMore:    d.Page()*d.PageSize() < rs.Total,
	}
}
