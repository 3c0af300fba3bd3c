package item

import (
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
)

// lookupLimit bounds existence queries: they only need to distinguish
// zero, one and many.
const lookupLimit = 50

// existenceQuery matches documents with the given id and any of the given
// type discriminators.
func existenceQuery(id string, types []domitem.Type) *query.Model {
	typeStrs := make([]string, len(types))
	for i, t := range types {
		typeStrs[i] = string(t)
	}
	return query.Bool().
		AddMust(query.Term(domitem.FieldID, id)).
		AddMust(query.Terms(domitem.FieldType, typeStrs...)).
		WithLimit(lookupLimit).
		WithIncludeFields(domitem.FieldID)
}

// idQuery matches documents by id alone, regardless of variant.
func idQuery(id string) *query.Model {
	return query.Term(domitem.FieldID, id).
		WithLimit(lookupLimit).
		WithIncludeFields(domitem.FieldID)
}

// statusScript builds the partial-update script flipping the lifecycle
// status server-side.
func statusScript(status domitem.Status) *query.Model {
	return query.MatchAll().WithScript(query.NewScript(
		"ctx._source."+domitem.FieldStatus+" = params.status",
		"",
		map[string]any{"status": string(status)},
	))
}

// instanceQuery matches an Instance item by its exact name.
func instanceQuery(instance string) *query.Model {
	return query.Bool().
		AddMust(query.Term(domitem.FieldType, string(domitem.TypeInstance))).
		AddMust(query.Term(domitem.FieldName, instance)).
		WithLimit(lookupLimit).
		WithIncludeFields(domitem.FieldID)
}

// referencesQuery matches the id as a primary key or as any parent-key field
// a dependent variant uses. One query answers "does anything reference me".
func referencesQuery(id string) *query.Model {
	q := query.Bool().AddShould(query.Term(domitem.FieldID, id))
	for _, field := range domitem.ParentKeyFields {
		q.AddShould(query.Term(field, id))
	}
	return q.WithMinimumShouldMatch(1).
		WithLimit(lookupLimit).
		WithIncludeFields(domitem.FieldID)
}

// uniquenessQuery builds the per-variant uniqueness tuple check, or nil when
// the variant has no tuple beyond (id, type).
func uniquenessQuery(it *domitem.Item) *query.Model {
	var terms map[string]string

	doc := it.ToJSON()
	switch it.PrimaryType() {
	case domitem.TypeResourceServer:
		terms = map[string]string{
			domitem.FieldCOS:               it.COS(),
			domitem.FieldResourceServerURL: str(doc[domitem.FieldResourceServerURL]),
		}
	case domitem.TypeProvider:
		terms = map[string]string{
			domitem.FieldResourceServer:    it.ResourceServer(),
			domitem.FieldOwnerUserID:       str(doc[domitem.FieldOwnerUserID]),
			domitem.FieldResourceServerURL: str(doc[domitem.FieldResourceServerURL]),
		}
	case domitem.TypeResourceGroup:
		terms = map[string]string{
			domitem.FieldProvider: it.Provider(),
			domitem.FieldName:     it.Name(),
		}
	case domitem.TypeResource:
		terms = map[string]string{
			domitem.FieldName:           it.Name(),
			domitem.FieldResourceServer: it.ResourceServer(),
			domitem.FieldProvider:       it.Provider(),
			domitem.FieldResourceGroup:  it.ResourceGroup(),
		}
	default:
		return nil
	}

	q := query.Bool().AddMust(query.Term(domitem.FieldType, string(it.PrimaryType())))
	for field, value := range terms {
		// An optional tuple field the item does not carry is dropped from
		// the check: a term on the empty string matches no stored document,
		// which would silently disable the whole tuple.
		if value == "" {
			continue
		}
		q.AddMust(query.Term(field, value))
	}
	return q.WithLimit(lookupLimit).WithIncludeFields(domitem.FieldID)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
