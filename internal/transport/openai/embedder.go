// Package openai is the embedding collaborator: it vectorizes item documents
// through an OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/metrics"
)

const collaboratorName = "embedding"

// Embedder produces word vectors via an OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an embedding collaborator client.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     logger,
	}
}

// GetEmbedding implements enrich.Embedder: the full document is serialized
// and embedded as one input.
func (e *Embedder) GetEmbedding(ctx context.Context, doc map[string]any) ([]float32, error) {
	text, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document for embedding: %w", err)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{string(text)},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "error").Inc()
		return nil, fmt.Errorf("empty embedding response")
	}

	metrics.EnrichmentRequestsTotal.WithLabelValues(collaboratorName, "success").Inc()
	metrics.EnrichmentRequestDuration.WithLabelValues(collaboratorName).Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}
