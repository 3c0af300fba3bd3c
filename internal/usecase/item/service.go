// Package item is the catalogue's consistency core: it emulates foreign-key
// constraints, uniqueness and safe deletion over a search backend that has
// neither, and orchestrates best-effort enrichment on the way in.
package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/db"
	"github.com/kailas-cloud/metadex/internal/domain"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/query"
)

// Service handles the item lifecycle: create, update, delete, search, count.
type Service struct {
	repo     Repository
	enricher Enricher
	locks    *keyedMutex
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an item service. The enricher may be nil, which disables
// enrichment entirely.
func New(repo Repository, enricher Enricher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		enricher: enricher,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

// Create enriches and stores a validated item. The (id, type) pair and the
// per-variant uniqueness tuple must not already exist; a declared instance
// and every declared parent reference must resolve to stored items.
// Enrichment failures never abort creation.
func (s *Service) Create(ctx context.Context, it *domitem.Item) (*domitem.Item, error) {
	if it.ID() == "" {
		return nil, fmt.Errorf("item id is required: %w", domain.ErrInvalidSyntax)
	}

	unlock := s.locks.lock(it.ID())
	defer unlock()

	doc := it.ToJSON()
	if s.enricher != nil {
		doc = s.enricher.Enrich(ctx, doc)
		applyDerived(it, doc)
	}

	if err := s.verifyInstance(ctx, it); err != nil {
		return nil, err
	}

	missing, err := s.repo.MissingParents(ctx, it)
	if err != nil {
		return nil, s.classifyBackend(it.ID(), err)
	}
	if len(missing) > 0 {
		return nil, &domain.OperationNotAllowedError{
			ID:     it.ID(),
			Reason: "parents do not exist: " + strings.Join(missing, ", "),
		}
	}

	docIDs, err := s.repo.LookupByIDType(ctx, it.ID(), it.Types())
	if err != nil {
		return nil, s.classifyBackend(it.ID(), err)
	}
	if len(docIDs) > 0 {
		return nil, &domain.DocAlreadyExistsError{ID: it.ID()}
	}

	taken, err := s.repo.UniqueTupleExists(ctx, it)
	if err != nil {
		return nil, s.classifyBackend(it.ID(), err)
	}
	if taken {
		return nil, &domain.DocAlreadyExistsError{ID: it.ID()}
	}

	it.StampCreatedAt(s.now())

	if _, err := s.repo.Insert(ctx, it.ToJSON()); err != nil {
		return nil, &domain.DatabaseFailureError{ID: it.ID(), Message: err.Error()}
	}

	s.logger.Info("item created",
		zap.String("id", it.ID()),
		zap.String("type", string(it.PrimaryType())),
	)
	return it, nil
}

// Update replaces the full document body of an existing (id, type) pair at
// the backend's own document identifier. The pair is assumed immutable
// across an update, so no uniqueness re-check is performed.
func (s *Service) Update(ctx context.Context, it *domitem.Item) (*domitem.Item, error) {
	if it.ID() == "" {
		return nil, fmt.Errorf("item id is required: %w", domain.ErrInvalidSyntax)
	}

	unlock := s.locks.lock(it.ID())
	defer unlock()

	docIDs, err := s.repo.LookupByIDType(ctx, it.ID(), it.Types())
	if err != nil {
		return nil, s.classifyBackend(it.ID(), err)
	}
	if len(docIDs) == 0 {
		return nil, &domain.DocNotFoundError{ID: it.ID(), Op: domain.OpUpdate}
	}

	if err := s.repo.Replace(ctx, docIDs[0], it.ToJSON()); err != nil {
		return nil, &domain.DatabaseFailureError{ID: it.ID(), Message: err.Error()}
	}

	s.logger.Info("item updated", zap.String("id", it.ID()))
	return it, nil
}

// Delete removes an item only when nothing references it. One query probes
// the id as a primary key and as every parent-key field; more than one hit
// means dependents exist and the caller must delete those first.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("item id is required: %w", domain.ErrInvalidSyntax)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	docIDs, err := s.repo.ListReferences(ctx, id)
	if err != nil {
		return "", s.classifyBackend(id, err)
	}

	switch {
	case len(docIDs) == 0:
		return "", &domain.DocNotFoundError{ID: id, Op: domain.OpDelete}
	case len(docIDs) > 1:
		return "", &domain.OperationNotAllowedError{ID: id, Reason: "dependent items exist"}
	}

	if err := s.repo.Remove(ctx, docIDs[0]); err != nil {
		return "", &domain.DatabaseFailureError{ID: id, Message: err.Error()}
	}

	s.logger.Info("item deleted", zap.String("id", id))
	return id, nil
}

// SetStatus flips the lifecycle status of an existing item in place via a
// scripted partial update, leaving the rest of the document untouched.
func (s *Service) SetStatus(ctx context.Context, id string, status domitem.Status) error {
	if id == "" {
		return fmt.Errorf("item id is required: %w", domain.ErrInvalidSyntax)
	}
	if !status.IsValid() {
		return fmt.Errorf("unknown item status %q: %w", status, domain.ErrInvalidSchema)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	docIDs, err := s.repo.LookupByID(ctx, id)
	if err != nil {
		return s.classifyBackend(id, err)
	}
	if len(docIDs) == 0 {
		return &domain.DocNotFoundError{ID: id, Op: domain.OpUpdate}
	}

	if err := s.repo.UpdateStatus(ctx, docIDs[0], status); err != nil {
		return &domain.DatabaseFailureError{ID: id, Message: err.Error()}
	}

	s.logger.Info("item status updated",
		zap.String("id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Search executes a caller query and projects each hit per the filter.
func (s *Service) Search(ctx context.Context, q *query.Model, filter ResultFilter) ([]map[string]any, int, error) {
	result, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, 0, s.classifyQuery(err)
	}

	hits := make([]map[string]any, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, shapeHit(h, filter))
	}
	return hits, result.Total, nil
}

// Count executes a caller query and returns the number of matches.
func (s *Service) Count(ctx context.Context, q *query.Model) (int, error) {
	n, err := s.repo.Count(ctx, q)
	if err != nil {
		return 0, s.classifyQuery(err)
	}
	return n, nil
}

// verifyInstance checks the declared instance: a blank or quoted-blank
// instance is always allowed; a non-blank one must resolve to a stored
// Instance item.
// A lookup failure is deliberately treated as "not existing" (fail closed)
// rather than propagated as a backend error.
func (s *Service) verifyInstance(ctx context.Context, it *domitem.Item) error {
	instance := strings.Trim(it.Instance(), `"'`)
	if instance == "" {
		return nil
	}

	exists, err := s.repo.InstanceExists(ctx, instance)
	if err != nil {
		s.logger.Warn("instance lookup failed, treating as nonexistent",
			zap.String("instance", instance),
			zap.Error(err),
		)
		exists = false
	}
	if !exists {
		return &domain.OperationNotAllowedError{
			ID:     it.ID(),
			Reason: fmt.Sprintf("instance %q does not exist", instance),
		}
	}
	return nil
}

// classifyBackend wraps a gateway failure on a consistency query into the
// error taxonomy. Recognized driver failures become database failures;
// anything else falls through to the internal sentinel.
func (s *Service) classifyBackend(id string, err error) error {
	if errors.Is(err, db.ErrBackend) ||
		errors.Is(err, db.ErrBadQuery) ||
		errors.Is(err, db.ErrIndexNotFound) {
		return &domain.DatabaseFailureError{ID: id, Message: err.Error()}
	}
	return fmt.Errorf("%w: %w", domain.ErrInternal, err)
}

// classifyQuery wraps a gateway failure on a caller-supplied query. A
// malformed query is the caller's fault, not the backend's.
func (s *Service) classifyQuery(err error) error {
	switch {
	case errors.Is(err, db.ErrBadQuery):
		return fmt.Errorf("%w: %w", domain.ErrInvalidSyntax, err)
	case errors.Is(err, db.ErrBackend), errors.Is(err, db.ErrIndexNotFound):
		return &domain.DatabaseFailureError{Message: err.Error()}
	default:
		return fmt.Errorf("%w: %w", domain.ErrInternal, err)
	}
}

// applyDerived copies the enrichment output keys back onto the item.
func applyDerived(it *domitem.Item, doc map[string]any) {
	if summary, ok := doc[domitem.FieldSummary].(string); ok {
		it.SetSummary(summary)
	}
	if geo, ok := doc[domitem.FieldGeoSummary].(map[string]any); ok {
		it.SetGeoSummary(geo)
	}
	if vec, ok := doc[domitem.FieldWordVector].([]float32); ok {
		it.SetWordVector(vec)
	}
}
