// Package query is the backend-agnostic intermediate representation of
// search, aggregation and partial-update criteria. A Model has no identity
// beyond its value: it is built, handed to a gateway driver for translation,
// and discarded. The package performs no translation itself and carries no
// backend dependency.
package query

import (
	"fmt"
	"strconv"
)

// MaxLimit caps unrestricted "fetch all" queries.
const MaxLimit = 10000

// Kind tags the query node type.
type Kind string

// Query node kinds.
const (
	KindTerm        Kind = "term"
	KindMatch       Kind = "match"
	KindTerms       Kind = "terms"
	KindWildcard    Kind = "wildcard"
	KindQueryString Kind = "query_string"
	KindMatchAll    Kind = "match_all"
	KindBool        Kind = "bool"
)

// Model is a recursive query node: either a leaf predicate or a boolean
// combinator, optionally carrying aggregations, pagination, projection,
// sorting and a partial-update script.
type Model struct {
	kind   Kind
	field  string
	value  string
	values []string

	must    []*Model
	should  []*Model
	mustNot []*Model
	filter  []*Model

	minShould    int
	minShouldSet bool

	aggs []Aggregation

	limit  int
	offset int

	includeFields []string
	sortFields    []string

	script *Script
}

// Term creates an exact keyword match leaf.
func Term(field, value string) *Model {
	return &Model{kind: KindTerm, field: field, value: value, limit: -1, offset: -1}
}

// Match creates a full-text match leaf.
func Match(field, value string) *Model {
	return &Model{kind: KindMatch, field: field, value: value, limit: -1, offset: -1}
}

// Terms creates a multi-value keyword match leaf.
func Terms(field string, values ...string) *Model {
	return &Model{kind: KindTerms, field: field, values: values, limit: -1, offset: -1}
}

// Wildcard creates a prefix match leaf. The prefix is stored as given; the
// driver appends the wildcard marker during translation.
func Wildcard(field, prefix string) *Model {
	return &Model{kind: KindWildcard, field: field, value: prefix, limit: -1, offset: -1}
}

// QueryString creates a query-string expression leaf scoped to one field.
func QueryString(field, expr string) *Model {
	return &Model{kind: KindQueryString, field: field, value: expr, limit: -1, offset: -1}
}

// MatchAll creates a leaf matching every document.
func MatchAll() *Model {
	return &Model{kind: KindMatchAll, limit: -1, offset: -1}
}

// Bool creates an empty boolean combinator. Must clauses are AND-ed, should
// clauses are OR-ed subject to minimum-should-match, must-not clauses
// exclude, filter clauses restrict without affecting relevance scoring.
func Bool() *Model {
	return &Model{kind: KindBool, limit: -1, offset: -1}
}

// AddMust appends must (AND) sub-queries.
func (m *Model) AddMust(subs ...*Model) *Model {
	m.must = append(m.must, subs...)
	return m
}

// AddShould appends should (OR) sub-queries.
func (m *Model) AddShould(subs ...*Model) *Model {
	m.should = append(m.should, subs...)
	return m
}

// AddMustNot appends excluding sub-queries.
func (m *Model) AddMustNot(subs ...*Model) *Model {
	m.mustNot = append(m.mustNot, subs...)
	return m
}

// AddFilter appends non-scoring restricting sub-queries.
func (m *Model) AddFilter(subs ...*Model) *Model {
	m.filter = append(m.filter, subs...)
	return m
}

// WithMinimumShouldMatch sets the minimum number of should clauses that must
// match. An explicit value always wins over the driver's "at least one"
// default for should-only bool nodes.
func (m *Model) WithMinimumShouldMatch(n int) *Model {
	m.minShould = n
	m.minShouldSet = true
	return m
}

// AddAggregation attaches an aggregation to this node.
func (m *Model) AddAggregation(aggs ...Aggregation) *Model {
	m.aggs = append(m.aggs, aggs...)
	return m
}

// WithLimit sets the maximum number of hits to return.
func (m *Model) WithLimit(n int) *Model {
	m.limit = n
	return m
}

// WithOffset sets the number of hits to skip.
func (m *Model) WithOffset(n int) *Model {
	m.offset = n
	return m
}

// WithIncludeFields restricts the source fields returned for each hit.
func (m *Model) WithIncludeFields(fields ...string) *Model {
	m.includeFields = append(m.includeFields, fields...)
	return m
}

// WithSortFields sets the sort order for hits.
func (m *Model) WithSortFields(fields ...string) *Model {
	m.sortFields = append(m.sortFields, fields...)
	return m
}

// WithScript attaches a partial-update script for server-side patching.
func (m *Model) WithScript(s Script) *Model {
	m.script = &s
	return m
}

// Kind returns the node type tag.
func (m *Model) Kind() Kind { return m.kind }

// Field returns the leaf target field.
func (m *Model) Field() string { return m.field }

// Value returns the leaf value (term/match/wildcard/query_string).
func (m *Model) Value() string { return m.value }

// Values returns the leaf values (terms).
func (m *Model) Values() []string { return m.values }

// Must returns the must sub-queries.
func (m *Model) Must() []*Model { return m.must }

// Should returns the should sub-queries.
func (m *Model) Should() []*Model { return m.should }

// MustNot returns the must-not sub-queries.
func (m *Model) MustNot() []*Model { return m.mustNot }

// Filter returns the filter sub-queries.
func (m *Model) Filter() []*Model { return m.filter }

// MinimumShouldMatch returns the explicit minimum-should-match value, and
// whether one was set.
func (m *Model) MinimumShouldMatch() (int, bool) { return m.minShould, m.minShouldSet }

// Aggregations returns the attached aggregations.
func (m *Model) Aggregations() []Aggregation { return m.aggs }

// Limit returns the hit limit, or -1 when unset.
func (m *Model) Limit() int { return m.limit }

// Offset returns the hit offset, or -1 when unset.
func (m *Model) Offset() int { return m.offset }

// IncludeFields returns the source projection fields.
func (m *Model) IncludeFields() []string { return m.includeFields }

// SortFields returns the sort fields.
func (m *Model) SortFields() []string { return m.sortFields }

// UpdateScript returns the attached partial-update script, or nil.
func (m *Model) UpdateScript() *Script { return m.script }

// Validate checks structural invariants before translation. Drivers call it
// once per gateway operation.
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("nil query model")
	}
	if m.limit != -1 && m.limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", m.limit)
	}
	if m.limit > MaxLimit {
		return fmt.Errorf("limit %d exceeds maximum %d", m.limit, MaxLimit)
	}
	if m.offset != -1 && m.offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", m.offset)
	}
	switch m.kind {
	case KindBool:
		if m.field != "" {
			return fmt.Errorf("bool node must not carry a field")
		}
		for _, group := range [][]*Model{m.must, m.should, m.mustNot, m.filter} {
			for _, sub := range group {
				if err := sub.Validate(); err != nil {
					return err
				}
			}
		}
	case KindMatchAll:
		// no payload
	case KindTerm, KindMatch, KindWildcard, KindQueryString:
		if m.field == "" {
			return fmt.Errorf("%s query requires a field", m.kind)
		}
	case KindTerms:
		if m.field == "" {
			return fmt.Errorf("terms query requires a field")
		}
		if len(m.values) == 0 {
			return fmt.Errorf("terms query on %q requires at least one value", m.field)
		}
	default:
		return fmt.Errorf("unknown query kind %q", m.kind)
	}
	if m.minShouldSet && m.kind != KindBool {
		return fmt.Errorf("minimum_should_match is only valid on bool nodes")
	}
	for i := range m.aggs {
		if err := m.aggs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParsePage validates a caller-supplied pagination value. Empty input yields
// the given fallback; anything else must parse as a non-negative integer.
func ParsePage(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pagination value %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("pagination value must be non-negative, got %d", n)
	}
	return n, nil
}
