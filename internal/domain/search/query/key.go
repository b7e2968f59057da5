package query

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/cinedex/internal/domain/entity"
)

// Encode builds the cache key of a descriptor.
//
// Layout: <prefix>q:<entity>:<version>:<seg>|<seg>|... where every segment is
// <len>:<bytes>, so user text can never forge a boundary. Filters follow in key order.
// Bumping the entity schema version moves all of its entries to a fresh key space.
func Encode(prefix string, d Descriptor) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(d.text) + 64)

	b.WriteString(prefix)
	b.WriteString("q:")
	b.WriteString(string(d.schema.Type))
	b.WriteByte(':')
	b.WriteString(d.schema.Version)
	b.WriteByte(':')

	writeSegment(&b, d.text)
	writeSegment(&b, d.sortField)
	writeSegment(&b, string(d.sortDir))
	writeSegment(&b, strconv.Itoa(d.page))
	writeSegment(&b, strconv.Itoa(d.pageSize))
	writeSegment(&b, strconv.Itoa(len(d.filters)))
	for _, c := range d.filters {
		writeSegment(&b, c.Key())
		writeSegment(&b, c.Value())
	}

	return b.String()
}

// EncodeDocument builds the cache key of a single-document lookup.
func EncodeDocument(prefix string, schema entity.Schema, id string) string {
	return prefix + "doc:" + string(schema.Type) + ":" + schema.Version + ":" + id
}

func writeSegment(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
	b.WriteByte('|')
}
