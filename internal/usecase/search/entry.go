package search

import (
	"encoding/json"
	"fmt"
)

// entry is the cached payload envelope.
// A page entry carries total and items, a document entry carries doc,
// and a negative entry records a confirmed empty result.
type entry struct {
	Negative bool              `json:"negative,omitempty"`
	Total    int               `json:"total,omitempty"`
	Items    []json.RawMessage `json:"items,omitempty"`
	Doc      json.RawMessage   `json:"doc,omitempty"`
}

var negativeMarker = []byte(`{"negative":true}`)

func encodeEntry(e entry) ([]byte, error) {
	if e.Negative {
		return negativeMarker, nil
	}
	return json.Marshal(e)
}

func decodeEntry(data []byte) (entry, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Negative {
		return entry{Negative: true}, nil
	}
	if e.Items == nil && e.Doc == nil && e.Total == 0 {
		return entry{}, fmt.Errorf("decode cache entry: empty envelope")
	}
	return e, nil
}
