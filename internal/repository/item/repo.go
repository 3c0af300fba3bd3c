// Package item executes the catalogue's consistency queries against the
// search backend gateway. Query construction lives here; lifecycle policy
// lives in the usecase layer.
package item

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/metadex/internal/db"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
)

// gateway is the consumer interface for the search backend (ISP).
type gateway interface {
	Search(ctx context.Context, index string, q *query.Model) (*db.SearchResult, error)
	Count(ctx context.Context, index string, q *query.Model) (int, error)
	CreateDocument(ctx context.Context, index string, doc map[string]any) (string, error)
	UpdateDocument(ctx context.Context, index, docID string, doc map[string]any) error
	PatchDocument(ctx context.Context, index, docID string, q *query.Model) error
	DeleteDocument(ctx context.Context, index, docID string) error
}

// Repo implements usecase/item.Repository against one named index.
type Repo struct {
	gw    gateway
	index string
}

// New creates an item repository.
func New(gw gateway, index string) *Repo {
	return &Repo{gw: gw, index: index}
}

// LookupByIDType returns the backend doc ids of documents matching the
// (id, type) pair.
func (r *Repo) LookupByIDType(ctx context.Context, id string, types []domitem.Type) ([]string, error) {
	return r.docIDs(ctx, existenceQuery(id, types))
}

// LookupByID returns the backend doc ids of documents matching the id alone.
func (r *Repo) LookupByID(ctx context.Context, id string) ([]string, error) {
	return r.docIDs(ctx, idQuery(id))
}

// InstanceExists reports whether an Instance item with the given exact name
// is stored.
func (r *Repo) InstanceExists(ctx context.Context, instance string) (bool, error) {
	ids, err := r.docIDs(ctx, instanceQuery(instance))
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// MissingParents returns the declared parent references that do not resolve
// to a stored item of the referenced variant, as "field id" strings.
func (r *Repo) MissingParents(ctx context.Context, it *domitem.Item) ([]string, error) {
	var missing []string
	for _, ref := range it.ParentRefs() {
		ids, err := r.docIDs(ctx, existenceQuery(ref.ID, []domitem.Type{ref.Type}))
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			missing = append(missing, ref.Field+" "+ref.ID)
		}
	}
	return missing, nil
}

// ListReferences returns the backend doc ids of the item itself plus every
// stored document referencing the id through a parent-key field.
func (r *Repo) ListReferences(ctx context.Context, id string) ([]string, error) {
	return r.docIDs(ctx, referencesQuery(id))
}

// UniqueTupleExists reports whether another document already occupies the
// item's per-variant uniqueness tuple. Variants without a tuple always
// report false.
func (r *Repo) UniqueTupleExists(ctx context.Context, it *domitem.Item) (bool, error) {
	q := uniquenessQuery(it)
	if q == nil {
		return false, nil
	}
	ids, err := r.docIDs(ctx, q)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Insert writes a new document and returns the backend doc id.
func (r *Repo) Insert(ctx context.Context, doc map[string]any) (string, error) {
	docID, err := r.gw.CreateDocument(ctx, r.index, doc)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return docID, nil
}

// Replace overwrites the full document body at the given backend doc id.
func (r *Repo) Replace(ctx context.Context, docID string, doc map[string]any) error {
	if err := r.gw.UpdateDocument(ctx, r.index, docID, doc); err != nil {
		return fmt.Errorf("update document %s: %w", docID, err)
	}
	return nil
}

// UpdateStatus flips the lifecycle status at the given backend doc id via a
// server-side partial update.
func (r *Repo) UpdateStatus(ctx context.Context, docID string, status domitem.Status) error {
	if err := r.gw.PatchDocument(ctx, r.index, docID, statusScript(status)); err != nil {
		return fmt.Errorf("patch document %s: %w", docID, err)
	}
	return nil
}

// Remove deletes the document at the given backend doc id.
func (r *Repo) Remove(ctx context.Context, docID string) error {
	if err := r.gw.DeleteDocument(ctx, r.index, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// Search executes a caller query and returns the raw hits.
func (r *Repo) Search(ctx context.Context, q *query.Model) (*db.SearchResult, error) {
	result, err := r.gw.Search(ctx, r.index, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return result, nil
}

// Count executes a caller query and returns the number of matches.
func (r *Repo) Count(ctx context.Context, q *query.Model) (int, error) {
	n, err := r.gw.Count(ctx, r.index, q)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (r *Repo) docIDs(ctx context.Context, q *query.Model) ([]string, error) {
	result, err := r.gw.Search(ctx, r.index, q)
	if err != nil {
		return nil, fmt.Errorf("existence query: %w", err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.DocID)
	}
	return ids, nil
}
