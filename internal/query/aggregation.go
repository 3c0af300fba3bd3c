package query

import "fmt"

// AggKind tags the aggregation type.
type AggKind string

// Aggregation kinds.
const (
	AggTerms       AggKind = "terms"
	AggCardinality AggKind = "cardinality"
	AggValueCount  AggKind = "value_count"
	AggAvg         AggKind = "avg"
	AggFilter      AggKind = "filter"
	AggGlobal      AggKind = "global"
)

// Aggregation is a typed aggregation node. Sub-aggregations nest to unlimited
// depth; a sub-aggregation's scope is implicitly restricted to its parent
// bucket. The name defaults to the target field.
type Aggregation struct {
	kind   AggKind
	field  string
	name   string
	filter *Model
	subs   []Aggregation
}

// TermsAgg creates a terms bucket aggregation on a field.
func TermsAgg(field string) Aggregation {
	return Aggregation{kind: AggTerms, field: field, name: field}
}

// CardinalityAgg creates a distinct-count aggregation on a field.
func CardinalityAgg(field string) Aggregation {
	return Aggregation{kind: AggCardinality, field: field, name: field}
}

// ValueCountAgg creates a value-count aggregation on a field.
func ValueCountAgg(field string) Aggregation {
	return Aggregation{kind: AggValueCount, field: field, name: field}
}

// AvgAgg creates an average metric aggregation on a field.
func AvgAgg(field string) Aggregation {
	return Aggregation{kind: AggAvg, field: field, name: field}
}

// FilterAgg creates a filter bucket aggregation restricted by the given query.
func FilterAgg(name string, q *Model) Aggregation {
	return Aggregation{kind: AggFilter, name: name, filter: q}
}

// GlobalAgg creates a global bucket aggregation spanning the whole index,
// ignoring the enclosing query scope.
func GlobalAgg(name string) Aggregation {
	return Aggregation{kind: AggGlobal, name: name}
}

// WithName overrides the aggregation name.
func (a Aggregation) WithName(name string) Aggregation {
	a.name = name
	return a
}

// AddSub nests sub-aggregations under this node.
func (a Aggregation) AddSub(subs ...Aggregation) Aggregation {
	a.subs = append(a.subs, subs...)
	return a
}

// Kind returns the aggregation type tag.
func (a Aggregation) Kind() AggKind { return a.kind }

// Field returns the target field.
func (a Aggregation) Field() string { return a.field }

// Name returns the aggregation name.
func (a Aggregation) Name() string { return a.name }

// FilterQuery returns the filter query for filter aggregations, or nil.
func (a Aggregation) FilterQuery() *Model { return a.filter }

// Subs returns the nested sub-aggregations.
func (a Aggregation) Subs() []Aggregation { return a.subs }

// Validate checks aggregation invariants, recursively.
func (a Aggregation) Validate() error {
	if a.name == "" {
		return fmt.Errorf("%s aggregation requires a name", a.kind)
	}
	switch a.kind {
	case AggTerms, AggCardinality, AggValueCount, AggAvg:
		if a.field == "" {
			return fmt.Errorf("%s aggregation %q requires a field", a.kind, a.name)
		}
	case AggFilter:
		if a.filter == nil {
			return fmt.Errorf("filter aggregation %q requires a query", a.name)
		}
		if err := a.filter.Validate(); err != nil {
			return fmt.Errorf("filter aggregation %q: %w", a.name, err)
		}
	case AggGlobal:
		// no payload
	default:
		return fmt.Errorf("unknown aggregation kind %q", a.kind)
	}
	for i := range a.subs {
		if err := a.subs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Script is a server-side partial-update script with named parameters.
type Script struct {
	source string
	lang   string
	params map[string]any
}

// NewScript creates an update script. Lang defaults to "painless".
func NewScript(source, lang string, params map[string]any) Script {
	if lang == "" {
		lang = "painless"
	}
	return Script{source: source, lang: lang, params: params}
}

// Source returns the script body.
func (s Script) Source() string { return s.source }

// Lang returns the script language.
func (s Script) Lang() string { return s.lang }

// Params returns the named script parameters.
func (s Script) Params() map[string]any { return s.params }
