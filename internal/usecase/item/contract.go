package item

import (
	"context"

	"github.com/kailas-cloud/metadex/internal/db"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
)

// Repository defines the consistency-query contract for catalogue items.
type Repository interface {
	LookupByIDType(ctx context.Context, id string, types []domitem.Type) (docIDs []string, err error)
	LookupByID(ctx context.Context, id string) (docIDs []string, err error)
	InstanceExists(ctx context.Context, instance string) (bool, error)
	MissingParents(ctx context.Context, it *domitem.Item) (refs []string, err error)
	ListReferences(ctx context.Context, id string) (docIDs []string, err error)
	UniqueTupleExists(ctx context.Context, it *domitem.Item) (bool, error)
	Insert(ctx context.Context, doc map[string]any) (docID string, err error)
	Replace(ctx context.Context, docID string, doc map[string]any) error
	UpdateStatus(ctx context.Context, docID string, status domitem.Status) error
	Remove(ctx context.Context, docID string) error
	Search(ctx context.Context, q *query.Model) (*db.SearchResult, error)
	Count(ctx context.Context, q *query.Model) (int, error)
}

// Enricher augments a document before it is written. Implementations never
// return an error; failed steps degrade per field.
type Enricher interface {
	Enrich(ctx context.Context, doc map[string]any) map[string]any
}
