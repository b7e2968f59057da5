package db

import "github.com/kailas-cloud/cinedex/internal/domain/search/filter"

// FilterClause binds a filter condition to an index attribute.
type FilterClause struct {
	Attribute string
	Condition filter.Condition
}

// SearchQuery is the input for an FT.SEARCH call.
type SearchQuery struct {
	IndexName    string
	Text         string   // raw user text, escaped by the store
	TextFields   []string // attributes the text is matched against
	Fuzzy        bool     // match terms within edit distance 1
	Filters      []FilterClause
	SortBy       string // empty means relevance (with text) or index order
	SortDesc     bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
