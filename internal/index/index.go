// Package index builds and queries the in-memory product embedding index.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/embedding"
	"github.com/giftlens/giftlens/internal/observability"
)

// ErrDimensionMismatch indicates vectors of different lengths were mixed.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Scored is a ranked product.
type Scored struct {
	Row   catalog.RowID
	Score float32
}

// BuildOptions configures Build.
type BuildOptions struct {
	BatchSize int // Default: 256
	Workers   int // Default: 4
	// Progress is called with the number of products embedded so far.
	Progress func(done, total int)
	// Store, when set, serves previously computed vectors and receives new ones.
	Store embedding.Store
	// QueryEmbedder encodes queries in Rank. Defaults to the build embedder.
	QueryEmbedder embedding.Embedder
	Logger        *observability.Logger
}

// Index maps every product to a unit-length embedding. It is never mutated
// after Build returns.
type Index struct {
	vectors   map[catalog.RowID][]float32
	ids       []catalog.RowID
	model     string
	dimension int
	query     embedding.Embedder
}

// Build embeds every product of cat.
func Build(ctx context.Context, cat *catalog.Catalog, embedder embedding.Embedder, opts BuildOptions) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", embedding.ErrModelUnavailable)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	query := opts.QueryEmbedder
	if query == nil {
		query = embedder
	}

	start := time.Now()
	ids := cat.IDs()
	texts := catalog.ProjectAll(cat)
	total := len(texts)
	model := embedder.Model()

	vecs := make([][]float32, total)
	hashes := make([]string, total)
	for i, text := range texts {
		hashes[i] = embedding.TextHash(text)
	}

	if opts.Store != nil && total > 0 {
		stored, err := opts.Store.Lookup(ctx, model, hashes)
		if err != nil {
			logger.Warn().Err(err).Msg("Embedding store lookup failed, embedding all products")
		} else {
			for i, h := range hashes {
				if v, ok := stored[h]; ok {
					vecs[i] = v
				}
			}
		}
	}

	var missing []int
	for i := range vecs {
		if vecs[i] == nil {
			missing = append(missing, i)
		}
	}

	var done atomic.Int64
	done.Store(int64(total - len(missing)))
	var progressMu sync.Mutex
	report := func() {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		opts.Progress(int(done.Load()), total)
	}
	report()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for startIdx := 0; startIdx < len(missing); startIdx += opts.BatchSize {
		batch := missing[startIdx:min(startIdx+opts.BatchSize, len(missing))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batchTexts := make([]string, len(batch))
			for j, i := range batch {
				batchTexts[j] = texts[i]
			}
			out, err := embedder.Embed(gctx, batchTexts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(out) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d texts", len(out), len(batch))
			}
			for j, i := range batch {
				vecs[i] = out[j]
			}
			done.Add(int64(len(batch)))
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", embedding.ErrModelUnavailable, err)
	}

	idx := &Index{
		vectors: make(map[catalog.RowID][]float32, total),
		ids:     ids,
		model:   model,
		query:   query,
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty vector for product %d", ids[i])
		}
		if idx.dimension == 0 {
			idx.dimension = len(v)
		} else if len(v) != idx.dimension {
			return nil, fmt.Errorf("%w: product %d has %d, want %d", ErrDimensionMismatch, ids[i], len(v), idx.dimension)
		}
		idx.vectors[ids[i]] = embedding.Normalize(v)
	}

	if opts.Store != nil && len(missing) > 0 {
		fresh := make(map[string][]float32, len(missing))
		for _, i := range missing {
			fresh[hashes[i]] = vecs[i]
		}
		if err := opts.Store.Save(ctx, model, fresh); err != nil {
			logger.Warn().Err(err).Int("vectors", len(fresh)).Msg("Failed to persist embeddings")
		}
	}

	logger.Info().
		Int("products", total).
		Int("embedded", len(missing)).
		Int("reused", total-len(missing)).
		Int("dimension", idx.dimension).
		Str("model", model).
		Dur("duration", time.Since(start)).
		Msg("Embedding index built")

	return idx, nil
}

// Rank scores every indexed product against queryText by cosine similarity.
// Results are ordered by score descending, ties by ascending RowID, and
// truncated to topN (topN <= 0 returns all).
func (x *Index) Rank(ctx context.Context, queryText string, topN int) ([]Scored, error) {
	q, err := embedding.Single(ctx, x.query, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(q), x.dimension)
	}
	q = embedding.Normalize(q)

	results := make([]Scored, 0, len(x.ids))
	for _, id := range x.ids {
		results = append(results, Scored{Row: id, Score: cosine(q, x.vectors[id])})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Row < results[j].Row
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// cosine of two unit vectors, clamped to [-1, 1].
func cosine(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	switch {
	case dot > 1:
		return 1
	case dot < -1:
		return -1
	}
	return float32(dot)
}

// Len returns the number of indexed products.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.ids)
}

// Model returns the embedding model name.
func (x *Index) Model() string {
	return x.model
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int {
	return x.dimension
}

// Vector returns a copy of the stored vector for id.
func (x *Index) Vector(id catalog.RowID) ([]float32, bool) {
	v, ok := x.vectors[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}
