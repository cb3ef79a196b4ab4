package retrieval

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/filter"
	"github.com/giftlens/giftlens/internal/index"
	"github.com/giftlens/giftlens/internal/observability"
)

// DefaultTopN is the candidate pool size handed to the text generator.
const DefaultTopN = 100

// Tier identifies which fallback level produced a result.
type Tier string

const (
	TierSemantic Tier = "semantic"
	TierKeyword  Tier = "keyword"
	TierRandom   Tier = "random"
	TierNone     Tier = "none" // empty catalog
)

// Ranker ranks the catalog against a query. *index.Index implements it.
type Ranker interface {
	Rank(ctx context.Context, queryText string, topN int) ([]index.Scored, error)
}

// Request is one retrieval call.
type Request struct {
	Prompt   string
	Profile  *RecipientProfile
	Occasion *OccasionInfo
	Filters  filter.Options
	TopN     int
}

// Result is the ordered candidate list.
type Result struct {
	Rows   []catalog.RowID
	Tier   Tier
	Query  string
	Scores map[catalog.RowID]float32 // semantic tier only
}

// Retriever selects candidates for a request. It is safe for concurrent use.
type Retriever struct {
	cat     *catalog.Catalog
	ranker  Ranker
	policy  filter.Policy
	metrics *observability.Metrics
	logger  *observability.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithRanker enables the semantic tier.
func WithRanker(r Ranker) Option {
	return func(rt *Retriever) { rt.ranker = r }
}

// WithIndex enables the semantic tier backed by idx. A nil idx leaves it off.
func WithIndex(idx *index.Index) Option {
	return func(rt *Retriever) {
		if idx != nil {
			rt.ranker = idx
		}
	}
}

// WithPolicy sets the unparsable-value policy of the filter engine.
func WithPolicy(p filter.Policy) Option {
	return func(rt *Retriever) { rt.policy = p }
}

// WithMetrics records tier and latency metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(rt *Retriever) { rt.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(rt *Retriever) { rt.logger = l }
}

// WithRand injects the random source used by the fallback tiers.
func WithRand(r *rand.Rand) Option {
	return func(rt *Retriever) { rt.rnd = r }
}

// New creates a Retriever over cat.
func New(cat *catalog.Catalog, opts ...Option) *Retriever {
	rt := &Retriever{cat: cat}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.cat == nil {
		rt.cat = catalog.Empty()
	}
	if rt.logger == nil {
		rt.logger = observability.NopLogger()
	}
	if rt.rnd == nil {
		rt.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rt
}

// Retrieve returns up to req.TopN candidates. It only returns an empty result
// when the catalog is empty. Query-time embedding failures are logged and
// fall through to the keyword tier.
func (rt *Retriever) Retrieve(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	res := Result{Query: Compose(req.Prompt, req.Profile, req.Occasion)}
	if rt.cat.Len() == 0 {
		res.Tier = TierNone
		rt.metrics.ObserveRetrieval(string(res.Tier))
		return res, nil
	}

	if rt.ranker != nil {
		rows, scores := rt.semantic(ctx, res.Query, req.Filters, topN)
		if len(rows) > 0 {
			res.Rows, res.Scores, res.Tier = rows, scores, TierSemantic
		}
	}

	if len(res.Rows) == 0 {
		if rows := rt.keyword(req.Prompt, topN); len(rows) > 0 {
			res.Rows, res.Tier = rows, TierKeyword
		}
	}

	if len(res.Rows) == 0 {
		res.Rows, res.Tier = rt.sample(rt.cat.IDs(), topN), TierRandom
	}

	if req.Filters.SortBy != nil {
		filter.Sort(res.Rows, rt.cat, *req.Filters.SortBy)
	}

	rt.metrics.ObserveRetrieval(string(res.Tier))
	rt.logger.Debug().
		Str("tier", string(res.Tier)).
		Int("candidates", len(res.Rows)).
		Msg("Retrieved candidates")
	return res, nil
}

func (rt *Retriever) semantic(ctx context.Context, query string, opts filter.Options, topN int) ([]catalog.RowID, map[catalog.RowID]float32) {
	start := time.Now()
	ranked, err := rt.ranker.Rank(ctx, query, rt.cat.Len())
	rt.metrics.ObserveRank(time.Since(start).Seconds())
	if err != nil {
		rt.logger.Warn().Err(err).Msg("Semantic ranking failed, falling back to keyword match")
		return nil, nil
	}

	ids := make([]catalog.RowID, len(ranked))
	for i, s := range ranked {
		ids[i] = s.Row
	}
	kept := filter.Apply(ids, rt.cat, opts, rt.policy)
	if len(kept) > topN {
		kept = kept[:topN]
	}

	scores := make(map[catalog.RowID]float32, len(kept))
	byRow := make(map[catalog.RowID]float32, len(ranked))
	for _, s := range ranked {
		byRow[s.Row] = s.Score
	}
	for _, id := range kept {
		scores[id] = byRow[id]
	}
	return kept, scores
}

// keyword matches the raw prompt as a case-insensitive substring of the name
// or main category. An empty prompt matches nothing.
func (rt *Retriever) keyword(prompt string, topN int) []catalog.RowID {
	needle := strings.ToLower(strings.TrimSpace(prompt))
	if needle == "" {
		return nil
	}
	var matches []catalog.RowID
	for _, id := range rt.cat.IDs() {
		p, _ := rt.cat.At(id)
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.MainCategory), needle) {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return rt.sample(matches, topN)
}

// sample returns up to n ids drawn uniformly without replacement, in random
// order. ids is reordered in place.
func (rt *Retriever) sample(ids []catalog.RowID, n int) []catalog.RowID {
	rt.rndMu.Lock()
	rt.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	rt.rndMu.Unlock()
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}
