// Package enrichcache decorates the enrichment collaborators with a
// key-value cache, so identical documents never pay for a second remote
// call.
package enrichcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/db"
	"github.com/kailas-cloud/metadex/internal/enrich"
	"github.com/kailas-cloud/metadex/internal/metrics"
)

const (
	geoKeyPrefix    = "metadex:geo_cache:"
	vectorKeyPrefix = "metadex:vec_cache:"

	// DefaultTTL bounds staleness of cached enrichment results.
	DefaultTTL = 30 * 24 * time.Hour
)

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedGeocoder caches geo summaries in a key-value store.
type CachedGeocoder struct {
	inner  enrich.Geocoder
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// NewGeocoder creates a caching decorator around a geocoder.
func NewGeocoder(inner enrich.Geocoder, s store, logger *zap.Logger) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, store: s, ttl: DefaultTTL, logger: logger}
}

// GeoSummarize returns a cached geo summary or calls the inner geocoder.
func (c *CachedGeocoder) GeoSummarize(ctx context.Context, doc map[string]any) (map[string]any, error) {
	key := geoKeyPrefix + docHash(doc)

	if data, err := c.store.Get(ctx, key); err == nil {
		var geo map[string]any
		if json.Unmarshal(data, &geo) == nil {
			metrics.EnrichmentCacheTotal.WithLabelValues("geocoding", "hit").Inc()
			return geo, nil
		}
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("failed to read geo cache", zap.String("key", key), zap.Error(err))
	}
	metrics.EnrichmentCacheTotal.WithLabelValues("geocoding", "miss").Inc()

	geo, err := c.inner.GeoSummarize(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("geo summarize: %w", err)
	}

	if data, err := json.Marshal(geo); err == nil {
		if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("failed to cache geo summary", zap.String("key", key), zap.Error(err))
		}
	}
	return geo, nil
}

// CachedEmbedder caches word vectors in a key-value store.
type CachedEmbedder struct {
	inner  enrich.Embedder
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// NewEmbedder creates a caching decorator around an embedder.
func NewEmbedder(inner enrich.Embedder, s store, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, store: s, ttl: DefaultTTL, logger: logger}
}

// GetEmbedding returns a cached vector or calls the inner embedder.
func (c *CachedEmbedder) GetEmbedding(ctx context.Context, doc map[string]any) ([]float32, error) {
	key := vectorKeyPrefix + docHash(doc)

	if data, err := c.store.Get(ctx, key); err == nil {
		if vec, parseErr := bytesToVector(data); parseErr == nil {
			metrics.EnrichmentCacheTotal.WithLabelValues("embedding", "hit").Inc()
			return vec, nil
		}
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("failed to read vector cache", zap.String("key", key), zap.Error(err))
	}
	metrics.EnrichmentCacheTotal.WithLabelValues("embedding", "miss").Inc()

	vec, err := c.inner.GetEmbedding(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}

	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("failed to cache vector", zap.String("key", key), zap.Error(err))
	}
	return vec, nil
}

// docHash keys the cache by the canonical JSON of the document.
func docHash(doc map[string]any) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return "unhashable"
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector cache data: len=%d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
