package enrich

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/metadex/internal/domain/item"
)

// summaryExclude lists the fields a summary never includes: identifiers,
// parent references and previously derived values.
var summaryExclude = map[string]struct{}{
	item.FieldID:                {},
	item.FieldType:              {},
	item.FieldStatus:            {},
	item.FieldCreatedAt:         {},
	item.FieldOwner:             {},
	item.FieldCOS:               {},
	item.FieldResourceServer:    {},
	item.FieldProvider:          {},
	item.FieldResourceGroup:     {},
	item.FieldResourceServerURL: {},
	item.FieldOwnerUserID:       {},
	item.FieldSummary:           {},
	item.FieldGeoSummary:        {},
	item.FieldWordVector:        {},
}

// Summarize flattens the document's free-text scalar fields into one summary
// string. Deterministic: fields are visited in sorted key order, name and
// description first.
func Summarize(doc map[string]any) string {
	parts := make([]string, 0, 4)

	if name, ok := doc[item.FieldName].(string); ok && name != "" {
		parts = append(parts, name)
	}
	if desc, ok := doc[item.FieldDescription].(string); ok && desc != "" {
		parts = append(parts, desc)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if k == item.FieldName || k == item.FieldDescription {
			continue
		}
		if _, skip := summaryExclude[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			if v != "" {
				parts = append(parts, v)
			}
		case []any:
			for _, e := range v {
				if s, ok := e.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
		case []string:
			for _, s := range v {
				if s != "" {
					parts = append(parts, s)
				}
			}
		}
	}

	return strings.Join(parts, "; ")
}
