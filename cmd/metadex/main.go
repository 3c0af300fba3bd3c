package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/config"
	"github.com/kailas-cloud/metadex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/metadex/internal/db/redis"
	"github.com/kailas-cloud/metadex/internal/enrich"
	logpkg "github.com/kailas-cloud/metadex/internal/logger"
	"github.com/kailas-cloud/metadex/internal/metrics"
	"github.com/kailas-cloud/metadex/internal/repository/enrichcache"
	itemrepo "github.com/kailas-cloud/metadex/internal/repository/item"
	chiTransport "github.com/kailas-cloud/metadex/internal/transport/chi"
	"github.com/kailas-cloud/metadex/internal/transport/geocode"
	openaiEmb "github.com/kailas-cloud/metadex/internal/transport/openai"
	itemuc "github.com/kailas-cloud/metadex/internal/usecase/item"
	"github.com/kailas-cloud/metadex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting metadex catalogue server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.URL),
		zap.String("index", cfg.Backend.Index),
	)

	gateway, err := elastic.NewClient(elastic.Config{
		BaseURL:  cfg.Backend.URL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Timeout:  time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create search backend client", zap.Error(err))
	}

	ctx := context.Background()
	readiness := time.Duration(cfg.Backend.ReadinessTimeout) * time.Second
	if err := gateway.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}
	logger.Info("Connected to search backend")

	metrics.RegisterEnrichmentMetrics()

	pipeline, closeEnrichment := buildEnrichment(ctx, &cfg, logger)
	defer closeEnrichment()

	repo := itemrepo.New(gateway, cfg.Backend.Index)
	itemSvc := itemuc.New(repo, pipeline, logger)

	server := chiTransport.NewServer(itemSvc, gateway, cfg.Auth.APIKeys, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// buildEnrichment wires the enrichment pipeline: a pass-through when the
// collaborators are not configured, cached decorators when a cache store is
// available. The returned func releases the cache connection.
func buildEnrichment(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*enrich.Pipeline, func()) {
	noop := func() {}
	if !cfg.EnrichmentEnabled() {
		logger.Info("Enrichment disabled (collaborators not configured)")
		return enrich.New(nil, nil, logger), noop
	}

	var geocoder enrich.Geocoder
	geocoder, err := geocode.NewClient(&geocode.Config{
		BaseURL: cfg.Enrichment.Geocoding.URL,
		Timeout: time.Duration(cfg.Enrichment.Geocoding.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create geocoding client", zap.Error(err))
	}

	var embedder enrich.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Enrichment.Embedding.APIKey,
		BaseURL:    cfg.Enrichment.Embedding.BaseURL,
		Model:      cfg.Enrichment.Embedding.Model,
		Dimensions: cfg.Enrichment.Embedding.Dimensions,
		Logger:     logger,
	})

	closeStore := noop
	if len(cfg.Cache.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, 10*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		closeStore = store.Close
		geocoder = enrichcache.NewGeocoder(geocoder, store, logger)
		embedder = enrichcache.NewEmbedder(embedder, store, logger)
		logger.Info("Enrichment caching enabled")
	}

	logger.Info("Enrichment enabled",
		zap.String("embedding_model", cfg.Enrichment.Embedding.Model),
		zap.String("geocoding_url", cfg.Enrichment.Geocoding.URL),
	)
	return enrich.New(geocoder, embedder, logger), closeStore
}
