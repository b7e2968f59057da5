package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/filter"
)

// MaxTextLength is the maximum allowed free-text length in bytes.
const MaxTextLength = 4096

// DefaultMaxResultWindow is the deepest hit (page * page_size) a descriptor may
// address. It matches the Elasticsearch index.max_result_window default.
const DefaultMaxResultWindow = 10000

// Direction is a sort direction.
type Direction string

// Sort direction constants.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid checks if the direction is one of the supported values.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// ParseSort splits an API sort expression into field and direction: "-imdb_rating" sorts descending.
func ParseSort(s string) (string, Direction) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return rest, Desc
	}
	return strings.TrimPrefix(s, "+"), Asc
}

// Params holds raw request parameters before validation.
type Params struct {
	Text          string
	Filters       map[string]string
	SortField     string
	SortDirection Direction
	Page          int
	PageSize      int
}

// Descriptor is a validated, normalized search request. It is immutable: all accessors return copies.
type Descriptor struct {
	schema    entity.Schema
	text      string
	filters   []filter.Condition // sorted by key
	sortField string
	sortDir   Direction
	page      int
	pageSize  int
}

// New validates raw parameters against the entity schema with the default
// result window. Every failure wraps domain.ErrInvalidQuery.
func New(schema entity.Schema, p Params, maxPageSize int) (Descriptor, error) {
	return NewWithin(schema, p, maxPageSize, DefaultMaxResultWindow)
}

// NewWithin is New with an explicit result window: page * page_size must not
// exceed maxResultWindow. A non-positive window means DefaultMaxResultWindow.
func NewWithin(schema entity.Schema, p Params, maxPageSize, maxResultWindow int) (Descriptor, error) {
	if maxResultWindow <= 0 {
		maxResultWindow = DefaultMaxResultWindow
	}
	if !schema.Type.IsValid() {
		return Descriptor{}, invalid("unknown entity type %q", schema.Type)
	}
	if p.Page < 1 {
		return Descriptor{}, invalid("page must be >= 1, got %d", p.Page)
	}
	if p.PageSize < 1 || p.PageSize > maxPageSize {
		return Descriptor{}, invalid("page_size must be between 1 and %d, got %d", maxPageSize, p.PageSize)
	}
	// division keeps the check itself free of overflow
	if maxPage := maxResultWindow / p.PageSize; p.Page > maxPage {
		return Descriptor{}, invalid("page %d with page_size %d is beyond the result window of %d hits (max page %d)",
			p.Page, p.PageSize, maxResultWindow, maxPage)
	}

	text := strings.TrimSpace(p.Text)
	if len(text) > MaxTextLength {
		return Descriptor{}, invalid("text too long (max %d bytes)", MaxTextLength)
	}

	sortField := strings.TrimSpace(p.SortField)
	sortDir := p.SortDirection
	if sortField == "" {
		// direction without a field means nothing; normalize so it cannot split cache keys
		sortDir = Asc
	} else {
		if _, ok := schema.SortField(sortField); !ok {
			return Descriptor{}, invalid("sort field %q is not sortable for %s", sortField, schema.Type)
		}
		if sortDir == "" {
			sortDir = Asc
		}
		if !sortDir.IsValid() {
			return Descriptor{}, invalid("invalid sort direction %q", sortDir)
		}
	}

	filters, err := buildFilters(schema, p.Filters)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		schema:    schema.Clone(),
		text:      text,
		filters:   filters,
		sortField: sortField,
		sortDir:   sortDir,
		page:      p.Page,
		pageSize:  p.PageSize,
	}, nil
}

func buildFilters(schema entity.Schema, raw map[string]string) ([]filter.Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > filter.MaxConditions {
		return nil, invalid("too many filters (max %d)", filter.MaxConditions)
	}

	conds := make([]filter.Condition, 0, len(raw))
	for key, value := range raw {
		f, ok := schema.FilterField(key)
		if !ok {
			return nil, invalid("unknown filter field %q for %s", key, schema.Type)
		}

		var (
			c   filter.Condition
			err error
		)
		switch f.Type {
		case entity.Numeric:
			var r filter.Range
			if r, err = filter.ParseRange(value); err == nil {
				c, err = filter.NewRange(key, r)
			}
		default:
			c, err = filter.NewMatch(key, strings.TrimSpace(value))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		conds = append(conds, c)
	}

	slices.SortFunc(conds, func(a, b filter.Condition) int { return strings.Compare(a.Key(), b.Key()) })
	return conds, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// IsZero reports whether the descriptor was not built by New.
func (d Descriptor) IsZero() bool { return d.schema.Type == "" || d.page == 0 }

// Entity returns the entity type.
func (d Descriptor) Entity() entity.Type { return d.schema.Type }

// Schema returns a copy of the entity schema the descriptor was validated against.
func (d Descriptor) Schema() entity.Schema { return d.schema.Clone() }

// Text returns the normalized free text (empty when absent).
func (d Descriptor) Text() string { return d.text }

// HasText reports whether a free-text term is present.
func (d Descriptor) HasText() bool { return d.text != "" }

// Filters returns a copy of the filter conditions, sorted by key.
func (d Descriptor) Filters() []filter.Condition { return slices.Clone(d.filters) }

// SortField returns the explicit sort field (empty when absent).
func (d Descriptor) SortField() string { return d.sortField }

// SortDirection returns the explicit sort direction.
func (d Descriptor) SortDirection() Direction { return d.sortDir }

// Page returns the 1-based page number.
func (d Descriptor) Page() int { return d.page }

// PageSize returns the page size.
func (d Descriptor) PageSize() int { return d.pageSize }

// Offset returns the index offset of the first item on the page.
func (d Descriptor) Offset() int { return (d.page - 1) * d.pageSize }

// Sort is the ordering an index adapter must apply.
type Sort struct {
	Field   string // API sort field name; empty with ByScore=false means index order
	Desc    bool
	ByScore bool
}

// EffectiveSort resolves the ordering: an explicit sort field wins,
// then relevance when text is present, then the entity default.
func (d Descriptor) EffectiveSort() Sort {
	switch {
	case d.sortField != "":
		return Sort{Field: d.sortField, Desc: d.sortDir == Desc}
	case d.text != "":
		return Sort{ByScore: true, Desc: true}
	default:
		return Sort{Field: d.schema.DefaultSort, Desc: d.schema.DefaultDesc}
	}
}
