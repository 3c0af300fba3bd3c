package elastic

import (
	"fmt"

	"github.com/kailas-cloud/metadex/internal/query"
)

// translate maps a query model to the backend's JSON query DSL. The mapping
// is deterministic and lossless: every IR node kind has exactly one DSL
// rendering.
func translate(q *query.Model) (map[string]any, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	node, err := translateNode(q)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"query": node}

	size := query.MaxLimit
	if q.Limit() >= 0 {
		size = q.Limit()
	}
	body["size"] = size
	if q.Offset() >= 0 {
		body["from"] = q.Offset()
	}
	if fields := q.IncludeFields(); len(fields) > 0 {
		body["_source"] = fields
	}
	if sorts := q.SortFields(); len(sorts) > 0 {
		body["sort"] = sorts
	}
	if aggs := q.Aggregations(); len(aggs) > 0 {
		rendered, aggErr := translateAggs(aggs)
		if aggErr != nil {
			return nil, aggErr
		}
		body["aggs"] = rendered
	}
	return body, nil
}

func translateNode(q *query.Model) (map[string]any, error) {
	switch q.Kind() {
	case query.KindTerm:
		return map[string]any{"term": map[string]any{q.Field(): q.Value()}}, nil
	case query.KindMatch:
		return map[string]any{"match": map[string]any{q.Field(): q.Value()}}, nil
	case query.KindTerms:
		return map[string]any{"terms": map[string]any{q.Field(): q.Values()}}, nil
	case query.KindWildcard:
		return map[string]any{
			"wildcard": map[string]any{q.Field(): map[string]any{"value": q.Value() + "*"}},
		}, nil
	case query.KindQueryString:
		return map[string]any{
			"query_string": map[string]any{"query": q.Value(), "default_field": q.Field()},
		}, nil
	case query.KindMatchAll:
		return map[string]any{"match_all": map[string]any{}}, nil
	case query.KindBool:
		return translateBool(q)
	}
	return nil, fmt.Errorf("untranslatable query kind %q", q.Kind())
}

func translateBool(q *query.Model) (map[string]any, error) {
	clause := make(map[string]any, 5)

	groups := []struct {
		key  string
		subs []*query.Model
	}{
		{"must", q.Must()},
		{"should", q.Should()},
		{"must_not", q.MustNot()},
		{"filter", q.Filter()},
	}
	for _, g := range groups {
		if len(g.subs) == 0 {
			continue
		}
		rendered := make([]map[string]any, len(g.subs))
		for i, sub := range g.subs {
			node, err := translateNode(sub)
			if err != nil {
				return nil, err
			}
			rendered[i] = node
		}
		clause[g.key] = rendered
	}

	if n, set := q.MinimumShouldMatch(); set {
		clause["minimum_should_match"] = n
	} else if len(q.Should()) > 0 && len(q.Must()) == 0 && len(q.Filter()) == 0 {
		// A should-only bool means "at least one" here; without an explicit
		// minimum the backend would treat the clauses as purely optional.
		clause["minimum_should_match"] = 1
	}

	return map[string]any{"bool": clause}, nil
}

func translateAggs(aggs []query.Aggregation) (map[string]any, error) {
	out := make(map[string]any, len(aggs))
	for _, a := range aggs {
		body := make(map[string]any, 2)
		switch a.Kind() {
		case query.AggTerms, query.AggCardinality, query.AggValueCount, query.AggAvg:
			body[string(a.Kind())] = map[string]any{"field": a.Field()}
		case query.AggFilter:
			node, err := translateNode(a.FilterQuery())
			if err != nil {
				return nil, err
			}
			body["filter"] = node
		case query.AggGlobal:
			body["global"] = map[string]any{}
		default:
			return nil, fmt.Errorf("untranslatable aggregation kind %q", a.Kind())
		}
		if subs := a.Subs(); len(subs) > 0 {
			rendered, err := translateAggs(subs)
			if err != nil {
				return nil, err
			}
			body["aggs"] = rendered
		}
		out[a.Name()] = body
	}
	return out, nil
}

// translateScript renders the partial-update request body.
func translateScript(s *query.Script) map[string]any {
	script := map[string]any{
		"source": s.Source(),
		"lang":   s.Lang(),
	}
	if params := s.Params(); len(params) > 0 {
		script["params"] = params
	}
	return map[string]any{"script": script}
}
