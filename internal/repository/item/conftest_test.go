package item

import (
	"context"

	"github.com/kailas-cloud/metadex/internal/db"
	"github.com/kailas-cloud/metadex/internal/query"
)

// mockGateway implements the consumer interface for tests and records the
// last query each method received.
type mockGateway struct {
	searchFn func(ctx context.Context, index string, q *query.Model) (*db.SearchResult, error)
	countFn  func(ctx context.Context, index string, q *query.Model) (int, error)
	createFn func(ctx context.Context, index string, doc map[string]any) (string, error)
	updateFn func(ctx context.Context, index, docID string, doc map[string]any) error
	patchFn  func(ctx context.Context, index, docID string, q *query.Model) error
	deleteFn func(ctx context.Context, index, docID string) error

	lastIndex string
	lastQuery *query.Model
}

func (m *mockGateway) Search(ctx context.Context, index string, q *query.Model) (*db.SearchResult, error) {
	m.lastIndex = index
	m.lastQuery = q
	if m.searchFn != nil {
		return m.searchFn(ctx, index, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockGateway) Count(ctx context.Context, index string, q *query.Model) (int, error) {
	m.lastIndex = index
	m.lastQuery = q
	if m.countFn != nil {
		return m.countFn(ctx, index, q)
	}
	return 0, nil
}

func (m *mockGateway) CreateDocument(ctx context.Context, index string, doc map[string]any) (string, error) {
	m.lastIndex = index
	if m.createFn != nil {
		return m.createFn(ctx, index, doc)
	}
	return "es-doc-1", nil
}

func (m *mockGateway) UpdateDocument(ctx context.Context, index, docID string, doc map[string]any) error {
	m.lastIndex = index
	if m.updateFn != nil {
		return m.updateFn(ctx, index, docID, doc)
	}
	return nil
}

func (m *mockGateway) PatchDocument(ctx context.Context, index, docID string, q *query.Model) error {
	m.lastIndex = index
	m.lastQuery = q
	if m.patchFn != nil {
		return m.patchFn(ctx, index, docID, q)
	}
	return nil
}

func (m *mockGateway) DeleteDocument(ctx context.Context, index, docID string) error {
	m.lastIndex = index
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, docID)
	}
	return nil
}

func hits(ids ...string) *db.SearchResult {
	res := &db.SearchResult{Total: len(ids)}
	for _, id := range ids {
		res.Hits = append(res.Hits, db.Hit{DocID: id})
	}
	return res
}
