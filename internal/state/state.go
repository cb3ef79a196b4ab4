// Package state owns the catalog and embedding index for the lifetime of the
// process and runs their construction as an explicit startup phase.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/embedding"
	"github.com/giftlens/giftlens/internal/filter"
	"github.com/giftlens/giftlens/internal/index"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/retrieval"
)

// Phase is the startup phase of the service.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseIndexing Phase = "indexing"
	PhaseReady    Phase = "ready"
	PhaseDegraded Phase = "degraded" // serving without the semantic tier or with an empty catalog
	PhaseFailed   Phase = "failed"
)

// Serving reports whether requests can be answered in this phase.
func (p Phase) Serving() bool {
	return p == PhaseReady || p == PhaseDegraded
}

// Snapshot is the read-only state published once startup finishes.
type Snapshot struct {
	Catalog   *catalog.Catalog
	Index     *index.Index // nil when the embedding model is unavailable
	Retriever *retrieval.Retriever
	LoadStats catalog.LoadStats
	BuiltIn   time.Duration
}

// Config configures a Service.
type Config struct {
	CatalogPath string
	SkipRows    int
	// AllowEmpty serves an empty catalog instead of failing when it cannot
	// be loaded.
	AllowEmpty bool
	// Embedder encodes products and queries. Nil disables the semantic tier.
	Embedder embedding.Embedder
	Build    index.BuildOptions
	Policy   filter.Policy
	Metrics  *observability.Metrics
	Logger   *observability.Logger
	// LoadCatalog replaces reading CatalogPath.
	LoadCatalog func(ctx context.Context) (*catalog.Catalog, catalog.LoadStats, error)
}

// Service runs startup and publishes the resulting snapshot.
type Service struct {
	cfg    Config
	logger *observability.Logger

	phase atomic.Value // Phase
	snap  atomic.Pointer[Snapshot]

	startOnce sync.Once
	done      chan struct{}
	err       error

	// stopped is cancelled by Stop; it is created in New so Stop never
	// races Start.
	stopped context.Context
	stop    context.CancelFunc
}

// New creates a Service in the idle phase.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	stopped, stop := context.WithCancel(context.Background())
	s := &Service{
		cfg:     cfg,
		logger:  logger.WithComponent("state"),
		done:    make(chan struct{}),
		stopped: stopped,
		stop:    stop,
	}
	s.phase.Store(PhaseIdle)
	return s
}

// Start runs startup in the background. Subsequent calls are no-ops.
// Cancelling ctx or calling Stop, before or after Start, aborts startup.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		unhook := context.AfterFunc(s.stopped, cancel)
		go func() {
			defer close(s.done)
			defer cancel()
			defer unhook()
			s.err = s.run(ctx)
		}()
	})
}

// Run performs startup synchronously.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	return s.Wait(context.Background())
}

// Stop aborts a startup in progress.
func (s *Service) Stop() {
	s.stop()
}

// Wait blocks until startup finishes or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Phase returns the current phase.
func (s *Service) Phase() Phase {
	return s.phase.Load().(Phase)
}

// Ready reports whether a snapshot has been published.
func (s *Service) Ready() bool {
	return s.snap.Load() != nil
}

// Snapshot returns the published state, or nil before startup finishes.
func (s *Service) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *Service) setPhase(p Phase) {
	s.phase.Store(p)
	s.logger.Info().Str("phase", string(p)).Msg("Startup phase changed")
}

func (s *Service) run(ctx context.Context) error {
	start := time.Now()
	degraded := false

	s.setPhase(PhaseLoading)
	cat, stats, err := s.load(ctx)
	if err != nil {
		if ctx.Err() != nil || !s.cfg.AllowEmpty {
			s.setPhase(PhaseFailed)
			return err
		}
		s.logger.Error().Err(err).Msg("Catalog unavailable, serving an empty catalog")
		cat = catalog.Empty()
		degraded = true
	}

	var idx *index.Index
	if cat.Len() > 0 {
		s.setPhase(PhaseIndexing)
		idx, err = s.buildIndex(ctx, cat)
		if err != nil {
			if ctx.Err() != nil {
				s.setPhase(PhaseFailed)
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("Embedding index unavailable, retrieval will use fallbacks")
			degraded = true
		}
	}

	retriever := retrieval.New(cat,
		retrieval.WithIndex(idx),
		retrieval.WithPolicy(s.cfg.Policy),
		retrieval.WithMetrics(s.cfg.Metrics),
		retrieval.WithLogger(s.logger),
	)

	snap := &Snapshot{
		Catalog:   cat,
		Index:     idx,
		Retriever: retriever,
		LoadStats: stats,
		BuiltIn:   time.Since(start),
	}
	s.cfg.Metrics.SetIndex(cat.Len(), idx.Len(), snap.BuiltIn.Seconds())
	s.snap.Store(snap)

	if degraded {
		s.setPhase(PhaseDegraded)
	} else {
		s.setPhase(PhaseReady)
	}
	s.logger.Info().
		Int("products", cat.Len()).
		Bool("index_active", idx != nil).
		Dur("duration", snap.BuiltIn).
		Msg("Service ready")
	return nil
}

func (s *Service) load(ctx context.Context) (*catalog.Catalog, catalog.LoadStats, error) {
	if s.cfg.LoadCatalog != nil {
		return s.cfg.LoadCatalog(ctx)
	}
	return catalog.Load(ctx, s.cfg.CatalogPath, catalog.LoadOptions{
		SkipRows: s.cfg.SkipRows,
		Logger:   s.logger,
	})
}

func (s *Service) buildIndex(ctx context.Context, cat *catalog.Catalog) (*index.Index, error) {
	if s.cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", embedding.ErrModelUnavailable)
	}
	opts := s.cfg.Build
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	idx, err := index.Build(ctx, cat, s.cfg.Embedder, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}
