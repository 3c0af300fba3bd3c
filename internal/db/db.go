// Package db defines the search-backend gateway contract. The backend is an
// opaque document-search service; drivers translate the query IR into its
// native language and map its failures into the sentinel set here.
package db

import (
	"context"

	"github.com/kailas-cloud/metadex/internal/query"
)

// Hit is a single document returned by a search: the backend's own document
// identifier plus the stored source.
type Hit struct {
	DocID  string
	Source map[string]any
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total        int
	Hits         []Hit
	Aggregations map[string]any
}

// Gateway executes query models against a named index. All calls are blocking
// on ctx and may fail with a driver error wrapping one of the sentinels.
type Gateway interface {
	Search(ctx context.Context, index string, q *query.Model) (*SearchResult, error)
	Count(ctx context.Context, index string, q *query.Model) (int, error)
	CreateDocument(ctx context.Context, index string, doc map[string]any) (docID string, err error)
	UpdateDocument(ctx context.Context, index, docID string, doc map[string]any) error
	PatchDocument(ctx context.Context, index, docID string, q *query.Model) error
	DeleteDocument(ctx context.Context, index, docID string) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
