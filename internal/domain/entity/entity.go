package entity

import (
	"fmt"
	"slices"
)

// Type is a catalog entity kind.
type Type string

// Entity type constants.
const (
	Film   Type = "film"
	Person Type = "person"
	Genre  Type = "genre"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	_, ok := schemas[t]
	return ok
}

// Parse converts a raw entity name into a Type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Types returns all entity types in a stable order.
func Types() []Type {
	return []Type{Film, Person, Genre}
}

// FieldType is the filtering type of a field.
type FieldType string

// Field type constants.
const (
	// Tag is an exact match field.
	Tag FieldType = "tag"
	// Numeric is a range field.
	Numeric FieldType = "numeric"
)

// FilterField describes a filterable field of an entity.
type FilterField struct {
	Name   string    // API name, also the RediSearch attribute name
	Type   FieldType // tag or numeric
	Path   string    // document path in the Elasticsearch mapping
	Nested string    // nested object path (Elasticsearch), empty for flat fields
}

// SortField describes a sortable field of an entity.
type SortField struct {
	Name string // API name, also the RediSearch attribute name
	Path string // sortable path in the Elasticsearch mapping (keyword or numeric)
}

// Schema is the read-only search contract of one entity type.
// Version is part of every cache key: bump it whenever the document shape changes.
type Schema struct {
	Type          Type
	Version       string
	TextFields    []string
	Fuzziness     string
	Filters       []FilterField
	Sorts         []SortField
	DefaultSort   string // empty means index order (by id)
	DefaultDesc   bool
	SummaryFields []string
}

// FilterField returns the filter field definition by name.
func (s Schema) FilterField(name string) (FilterField, bool) {
	i := slices.IndexFunc(s.Filters, func(f FilterField) bool { return f.Name == name })
	if i < 0 {
		return FilterField{}, false
	}
	return s.Filters[i], true
}

// SortField returns the sort field definition by name.
func (s Schema) SortField(name string) (SortField, bool) {
	i := slices.IndexFunc(s.Sorts, func(f SortField) bool { return f.Name == name })
	if i < 0 {
		return SortField{}, false
	}
	return s.Sorts[i], true
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	s.TextFields = slices.Clone(s.TextFields)
	s.Filters = slices.Clone(s.Filters)
	s.Sorts = slices.Clone(s.Sorts)
	s.SummaryFields = slices.Clone(s.SummaryFields)
	return s
}

// Lookup returns a copy of the schema of an entity type.
func Lookup(t Type) (Schema, bool) {
	s, ok := schemas[t]
	if !ok {
		return Schema{}, false
	}
	return s.Clone(), true
}

// MustLookup returns a copy of the schema of an entity type or panics.
func MustLookup(t Type) Schema {
	s, ok := Lookup(t)
	if !ok {
		panic(fmt.Sprintf("entity: no schema for %q", t))
	}
	return s
}

var schemas = map[Type]Schema{
	Film: {
		Type:       Film,
		Version:    "v1",
		TextFields: []string{"title", "description"},
		Fuzziness:  "AUTO",
		Filters: []FilterField{
			{Name: "genre", Type: Tag, Path: "genre"},
			{Name: "director", Type: Tag, Path: "director"},
			{Name: "imdb_rating", Type: Numeric, Path: "imdb_rating"},
			{Name: "actor", Type: Tag, Path: "actors.id", Nested: "actors"},
			{Name: "writer", Type: Tag, Path: "writers.id", Nested: "writers"},
		},
		Sorts: []SortField{
			{Name: "imdb_rating", Path: "imdb_rating"},
			{Name: "title", Path: "title.raw"},
		},
		DefaultSort:   "imdb_rating",
		DefaultDesc:   true,
		SummaryFields: []string{"id", "title", "imdb_rating"},
	},
	Person: {
		Type:       Person,
		Version:    "v1",
		TextFields: []string{"full_name"},
		Fuzziness:  "2",
		Filters: []FilterField{
			{Name: "film", Type: Tag, Path: "films.id", Nested: "films"},
		},
		Sorts: []SortField{
			{Name: "full_name", Path: "full_name.raw"},
		},
		SummaryFields: []string{"id", "full_name", "films"},
	},
	Genre: {
		Type:       Genre,
		Version:    "v1",
		TextFields: []string{"name", "description"},
		Fuzziness:  "AUTO",
		Sorts: []SortField{
			{Name: "name", Path: "name.raw"},
		},
		SummaryFields: []string{"id", "name", "description"},
	},
}
