// Package app wires configuration into the service's components. Both the
// HTTP server and the CLI build their dependencies through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/giftlens/giftlens/internal/cache"
	"github.com/giftlens/giftlens/internal/config"
	"github.com/giftlens/giftlens/internal/embedding"
	"github.com/giftlens/giftlens/internal/filter"
	"github.com/giftlens/giftlens/internal/index"
	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/notes"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/recommend"
	"github.com/giftlens/giftlens/internal/shopping"
	"github.com/giftlens/giftlens/internal/state"
)

// ErrNotReady is returned by Recommend before startup has finished.
var ErrNotReady = errors.New("service is starting up")

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Cache    cache.Client
	Store    embedding.Store    // nil when persistence is disabled or unreachable
	Embedder embedding.Embedder // nil when the model is unavailable
	LLM      *llm.Client
	State    *state.Service
	Shopping *shopping.Store
	Notes    *notes.Writer

	mu          sync.Mutex
	recommender *recommend.Service
	recSnap     *state.Snapshot
}

// Options adjusts wiring for a caller.
type Options struct {
	// Progress receives index build progress.
	Progress func(done, total int)
}

// New builds every component from cfg. Infrastructure that cannot be reached
// (Redis, the embedding store, the embedding model) is logged and replaced by
// a degraded alternative rather than failing startup.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Shopping: shopping.NewStore(),
	}
	if cfg.Observability.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	a.Cache = NewCache(ctx, cfg.Cache, logger)

	if cfg.Database.Driver != "none" {
		store, err := embedding.OpenStore(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), cfg.Database.Postgres.MaxOpenConns)
		if err != nil {
			logger.Warn().Err(err).Str("driver", cfg.Database.Driver).Msg("Embedding store unavailable, vectors will not be persisted")
		} else {
			a.Store = store
		}
	}

	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.Embedding.Provider).Msg("Embedding model unavailable, semantic retrieval disabled")
	} else {
		a.Embedder = embedder
	}

	var queryEmbedder embedding.Embedder
	if a.Embedder != nil && cfg.Retrieval.CacheQueries {
		queryEmbedder = embedding.NewCachedEmbedder(a.Embedder, a.Cache, cfg.Cache.TTL)
	}

	a.LLM = llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		Referer:     cfg.LLM.Referer,
		Title:       cfg.LLM.Title,
		MaxFailures: cfg.LLM.Breaker.MaxFailures,
		OpenTimeout: cfg.LLM.Breaker.OpenTimeout,
	}, logger, a.Metrics)

	a.Notes = notes.NewWriter(a.LLM, logger)

	a.State = state.New(state.Config{
		CatalogPath: cfg.Catalog.Path,
		SkipRows:    cfg.Catalog.SkipRows,
		AllowEmpty:  cfg.Catalog.AllowEmpty,
		Embedder:    a.Embedder,
		Build: index.BuildOptions{
			BatchSize:     cfg.Embedding.BatchSize,
			Workers:       cfg.Embedding.Workers,
			Progress:      opts.Progress,
			Store:         a.Store,
			QueryEmbedder: queryEmbedder,
		},
		Policy:  filter.ParsePolicy(cfg.Retrieval.ParsePolicy),
		Metrics: a.Metrics,
		Logger:  logger,
	})

	return a, nil
}

// NewEmbedder constructs the configured embedding provider.
func NewEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "remote":
		return embedding.NewClient(embedding.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	case "local":
		return newLocalEmbedder(cfg)
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", embedding.ErrModelUnavailable, cfg.Provider)
}

// NewCache returns a Redis cache when configured and reachable, otherwise an
// in-memory cache.
func NewCache(ctx context.Context, cfg config.CacheConfig, logger *observability.Logger) cache.Client {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.Driver == "redis" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err == nil {
			return client
		}
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-memory cache")
	}
	return cache.NewMemoryClient(cfg.MaxEntries)
}

// Recommend serves a recommendation against the published snapshot.
func (a *App) Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error) {
	svc, err := a.Recommender()
	if err != nil {
		return nil, err
	}
	return svc.Recommend(ctx, req)
}

// Recommender returns the recommendation service bound to the current
// snapshot.
func (a *App) Recommender() (*recommend.Service, error) {
	snap := a.State.Snapshot()
	if snap == nil {
		return nil, ErrNotReady
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recSnap != snap {
		temperature := a.Config.LLM.Temperature
		a.recommender = recommend.NewService(snap.Catalog, snap.Retriever, a.LLM, a.Cache, recommend.Options{
			Count:         a.Config.Retrieval.RecommendationCount,
			CandidatePool: a.Config.Retrieval.CandidatePool,
			MaxTokens:     a.Config.LLM.MaxTokens,
			Temperature:   &temperature,
			AnalysisTTL:   a.Config.Cache.TTL,
		}, a.Logger)
		a.recSnap = snap
	}
	return a.recommender, nil
}

// EmbeddingModel names the active embedding model, or "" when none.
func (a *App) EmbeddingModel() string {
	if a.Embedder == nil {
		return ""
	}
	return a.Embedder.Model()
}

// Health summarises service state for the health endpoint.
type Health struct {
	Status               string      `json:"status"`
	Phase                state.Phase `json:"phase"`
	ProductsLoaded       int         `json:"products_loaded"`
	EmbeddingIndexActive bool        `json:"embedding_index_active"`
	EmbeddingModel       string      `json:"embedding_model,omitempty"`
}

// Health reports the current phase and what has been loaded so far.
func (a *App) Health() Health {
	phase := a.State.Phase()
	h := Health{Status: "starting", Phase: phase, EmbeddingModel: a.EmbeddingModel()}
	switch {
	case phase == state.PhaseFailed:
		h.Status = "unhealthy"
	case phase.Serving():
		h.Status = "healthy"
	}
	if snap := a.State.Snapshot(); snap != nil {
		h.ProductsLoaded = snap.Catalog.Len()
		h.EmbeddingIndexActive = snap.Index.Len() > 0
	}
	return h
}

// Close stops startup and releases resources.
func (a *App) Close() error {
	a.State.Stop()

	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if closer, ok := a.Embedder.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	return errors.Join(errs...)
}
