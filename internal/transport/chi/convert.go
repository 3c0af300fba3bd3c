package chi

import (
	"fmt"

	"github.com/kailas-cloud/metadex/internal/query"
)

// searchRequest is the wire form of a search or count request.
type searchRequest struct {
	Query         *queryNode `json:"query"`
	Limit         string     `json:"limit,omitempty"`
	Offset        string     `json:"offset,omitempty"`
	IncludeFields []string   `json:"includeFields,omitempty"`
	SortFields    []string   `json:"sortFields,omitempty"`
	Filter        string     `json:"filter,omitempty"`
}

// queryNode is the wire form of one query IR node.
type queryNode struct {
	Kind   string   `json:"kind"`
	Field  string   `json:"field,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`

	Must    []*queryNode `json:"must,omitempty"`
	Should  []*queryNode `json:"should,omitempty"`
	MustNot []*queryNode `json:"mustNot,omitempty"`
	Filter  []*queryNode `json:"filter,omitempty"`

	MinimumShouldMatch *int `json:"minimumShouldMatch,omitempty"`
}

// queryFromRequest decodes the wire form into a validated query model.
// Pagination values arrive as strings and are validated as non-negative
// integers here, at the boundary.
func queryFromRequest(req *searchRequest) (*query.Model, error) {
	if req.Query == nil {
		return nil, fmt.Errorf("query is required")
	}
	q, err := nodeToModel(req.Query)
	if err != nil {
		return nil, err
	}

	limit, err := query.ParsePage(req.Limit, query.MaxLimit)
	if err != nil {
		return nil, err
	}
	offset, err := query.ParsePage(req.Offset, 0)
	if err != nil {
		return nil, err
	}
	q.WithLimit(limit).WithOffset(offset)

	if len(req.IncludeFields) > 0 {
		q.WithIncludeFields(req.IncludeFields...)
	}
	if len(req.SortFields) > 0 {
		q.WithSortFields(req.SortFields...)
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func nodeToModel(n *queryNode) (*query.Model, error) {
	switch query.Kind(n.Kind) {
	case query.KindTerm:
		return query.Term(n.Field, n.Value), nil
	case query.KindMatch:
		return query.Match(n.Field, n.Value), nil
	case query.KindTerms:
		return query.Terms(n.Field, n.Values...), nil
	case query.KindWildcard:
		return query.Wildcard(n.Field, n.Value), nil
	case query.KindQueryString:
		return query.QueryString(n.Field, n.Value), nil
	case query.KindMatchAll:
		return query.MatchAll(), nil
	case query.KindBool:
		return boolToModel(n)
	}
	return nil, fmt.Errorf("unknown query kind %q", n.Kind)
}

func boolToModel(n *queryNode) (*query.Model, error) {
	q := query.Bool()

	groups := []struct {
		nodes []*queryNode
		add   func(...*query.Model) *query.Model
	}{
		{n.Must, q.AddMust},
		{n.Should, q.AddShould},
		{n.MustNot, q.AddMustNot},
		{n.Filter, q.AddFilter},
	}
	for _, g := range groups {
		for _, sub := range g.nodes {
			m, err := nodeToModel(sub)
			if err != nil {
				return nil, err
			}
			g.add(m)
		}
	}

	if n.MinimumShouldMatch != nil {
		q.WithMinimumShouldMatch(*n.MinimumShouldMatch)
	}
	return q, nil
}
