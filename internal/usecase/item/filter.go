package item

import (
	"fmt"

	"github.com/kailas-cloud/metadex/internal/db"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
)

// ResultFilter selects the projection of each search hit. It affects the
// shape of returned items, never which documents match.
type ResultFilter string

// Search projections.
const (
	FilterSourceOnly             ResultFilter = "source"
	FilterDocIDOnly              ResultFilter = "doc_id"
	FilterSourceAndDocID         ResultFilter = "source_and_doc_id"
	FilterIDsOnly                ResultFilter = "ids"
	FilterSourceWithoutEmbedding ResultFilter = "source_without_embedding"
)

// docIDKey is the response key carrying the backend document identifier.
const docIDKey = "doc_id"

// ParseResultFilter validates a caller-supplied projection name. Empty input
// defaults to source-only.
func ParseResultFilter(s string) (ResultFilter, error) {
	switch f := ResultFilter(s); f {
	case "":
		return FilterSourceOnly, nil
	case FilterSourceOnly, FilterDocIDOnly, FilterSourceAndDocID,
		FilterIDsOnly, FilterSourceWithoutEmbedding:
		return f, nil
	}
	return "", fmt.Errorf("unknown result filter %q", s)
}

// shapeHit projects one backend hit according to the filter.
func shapeHit(h db.Hit, filter ResultFilter) map[string]any {
	switch filter {
	case FilterDocIDOnly:
		return map[string]any{docIDKey: h.DocID}
	case FilterSourceAndDocID:
		out := make(map[string]any, len(h.Source)+1)
		for k, v := range h.Source {
			out[k] = v
		}
		out[docIDKey] = h.DocID
		return out
	case FilterIDsOnly:
		return map[string]any{domitem.FieldID: h.Source[domitem.FieldID]}
	case FilterSourceWithoutEmbedding:
		out := make(map[string]any, len(h.Source))
		for k, v := range h.Source {
			if k == domitem.FieldWordVector {
				continue
			}
			out[k] = v
		}
		return out
	default:
		return h.Source
	}
}
