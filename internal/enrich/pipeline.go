// Package enrich augments item documents before they are written: a
// synchronous summary, a best-effort geocoding summary and a best-effort
// embedding. The pipeline never surfaces a failure to the caller.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/domain/item"
)

// Geocoder resolves a document's free-text location into a geo summary.
type Geocoder interface {
	GeoSummarize(ctx context.Context, doc map[string]any) (map[string]any, error)
}

// Embedder produces a word vector for a full document.
type Embedder interface {
	GetEmbedding(ctx context.Context, doc map[string]any) ([]float32, error)
}

// Pipeline runs the enrichment chain. Both collaborators must be configured
// and the document must declare a non-blank instance for the chain to run at
// all; otherwise the document passes through untouched.
type Pipeline struct {
	geocoder Geocoder
	embedder Embedder
	logger   *zap.Logger
}

// New creates an enrichment pipeline. Either collaborator may be nil, which
// disables the whole chain.
func New(geocoder Geocoder, embedder Embedder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{geocoder: geocoder, embedder: embedder, logger: logger}
}

// Enrich returns the document with derived keys merged in. Geocoding failure
// substitutes an empty object; embedding failure omits the key. No error ever
// propagates.
func (p *Pipeline) Enrich(ctx context.Context, doc map[string]any) map[string]any {
	if p.geocoder == nil || p.embedder == nil {
		return doc
	}
	instance, _ := doc[item.FieldInstance].(string)
	if isBlank(instance) {
		return doc
	}

	enriched := make(map[string]any, len(doc)+3)
	for k, v := range doc {
		enriched[k] = v
	}

	enriched[item.FieldSummary] = Summarize(doc)

	geo, err := p.geocoder.GeoSummarize(ctx, doc)
	if err != nil {
		p.logger.Warn("geocoding failed, storing empty geo summary", zap.Error(err))
		geo = map[string]any{}
	}
	enriched[item.FieldGeoSummary] = geo

	vector, err := p.embedder.GetEmbedding(ctx, doc)
	if err != nil {
		p.logger.Warn("embedding failed, omitting word vector", zap.Error(err))
	} else {
		enriched[item.FieldWordVector] = vector
	}

	return enriched
}

// isBlank treats empty and quoted-empty strings as absent (caller artifact:
// some clients send the instance wrapped in literal quotes).
func isBlank(s string) bool {
	switch s {
	case "", `""`, "''":
		return true
	}
	return false
}
