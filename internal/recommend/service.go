// Package recommend turns a gift request into explainable recommendations:
// it infers the recipient, retrieves candidates and asks the text generator
// to pick and justify the best of them.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giftlens/giftlens/internal/cache"
	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/filter"
	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/retrieval"
)

// ErrNoProducts is returned when the catalog is empty.
var ErrNoProducts = errors.New("no products loaded")

// RecipientProfile and OccasionInfo are shared with the query composer.
type (
	RecipientProfile = retrieval.RecipientProfile
	OccasionInfo     = retrieval.OccasionInfo
)

// DefaultOccasion is used when a request carries no occasion.
const DefaultOccasion = "general"

// DefaultRelationship is assumed when recipient analysis fails.
const DefaultRelationship = "friend"

// Request is a recommendation request.
type Request struct {
	Prompt           string            `json:"prompt" validate:"required"`
	RecipientProfile *RecipientProfile `json:"recipient_profile,omitempty"`
	OccasionInfo     *OccasionInfo     `json:"occasion_info,omitempty"`
	FilterOptions    *filter.Options   `json:"filter_options,omitempty"`
}

// RetrievalInfo reports how candidates were selected.
type RetrievalInfo struct {
	Tier       retrieval.Tier `json:"tier"`
	Candidates int            `json:"candidates"`
}

// Response is the result of Recommend.
type Response struct {
	Recommendations  string           `json:"recommendations"`
	RecipientProfile RecipientProfile `json:"recipient_profile"`
	OccasionInfo     OccasionInfo     `json:"occasion_info"`
	FilterOptions    filter.Options   `json:"filter_options"`
	Retrieval        RetrievalInfo    `json:"retrieval"`
}

// Retriever selects candidate products.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Result, error)
}

const defaultTemperature = 0.7

// Options tunes the service.
type Options struct {
	Count         int           // recommendations requested from the generator; Default: 50
	CandidatePool int           // candidates serialised into the prompt; Default: 100
	MaxTokens     int           // Default: 2048
	Temperature   *float64      // nil means 0.7; 0 is deterministic
	AnalysisTTL   time.Duration // recipient analysis cache TTL; Default: 1h
}

// Service produces recommendations.
type Service struct {
	cat       *catalog.Catalog
	retriever Retriever
	gen       llm.Generator
	cache     cache.Client
	opts      Options
	logger    *observability.Logger
}

// NewService creates a recommendation service. cache may be nil.
func NewService(cat *catalog.Catalog, retriever Retriever, gen llm.Generator, c cache.Client, opts Options, logger *observability.Logger) *Service {
	if opts.Count <= 0 {
		opts.Count = 50
	}
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = retrieval.DefaultTopN
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Temperature == nil {
		t := defaultTemperature
		opts.Temperature = &t
	}
	if opts.AnalysisTTL <= 0 {
		opts.AnalysisTTL = time.Hour
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		cat:       cat,
		retriever: retriever,
		gen:       gen,
		cache:     c,
		opts:      opts,
		logger:    logger.WithComponent("recommend"),
	}
}

// Recommend fills in missing request parts, retrieves candidates and asks the
// generator for explained recommendations. Generator failures are returned
// as *llm.ExternalServiceError.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if s.cat.Len() == 0 {
		return nil, ErrNoProducts
	}

	var profile RecipientProfile
	if req.RecipientProfile != nil {
		profile = *req.RecipientProfile
	} else {
		profile = s.AnalyzeRecipient(ctx, req.Prompt)
	}
	profile = profile.Normalized()

	occasion := OccasionInfo{Occasion: DefaultOccasion}
	if req.OccasionInfo != nil {
		occasion = *req.OccasionInfo
	}

	var filters filter.Options
	if req.FilterOptions != nil {
		filters = *req.FilterOptions
	}

	res, err := s.retriever.Retrieve(ctx, retrieval.Request{
		Prompt:   req.Prompt,
		Profile:  &profile,
		Occasion: &occasion,
		Filters:  filters,
		TopN:     s.opts.CandidatePool,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		System:      systemPrompt(s.opts.Count, profile, occasion),
		User:        userPrompt(req.Prompt, s.serialize(res.Rows), s.opts.Count),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: *s.opts.Temperature,
		Purpose:     "recommend",
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tier", string(res.Tier)).
		Int("candidates", len(res.Rows)).
		Msg("Recommendations generated")

	return &Response{
		Recommendations:  text,
		RecipientProfile: profile,
		OccasionInfo:     occasion,
		FilterOptions:    filters,
		Retrieval:        RetrievalInfo{Tier: res.Tier, Candidates: len(res.Rows)},
	}, nil
}

// serialize renders one "column: value, ..." line per candidate.
func (s *Service) serialize(rows []catalog.RowID) string {
	lines := make([]string, 0, len(rows))
	for _, id := range rows {
		if line := s.cat.Describe(id); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// AnalyzeRecipient infers a recipient profile from the prompt. It never
// fails: any generator or decoding error yields a profile with only the
// default relationship set. Successful analyses are cached by prompt.
func (s *Service) AnalyzeRecipient(ctx context.Context, prompt string) RecipientProfile {
	key := cache.HashedKey("recipient", prompt)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached RecipientProfile
			if json.Unmarshal(raw, &cached) == nil {
				return cached
			}
		}
	}

	fallback := RecipientProfile{Relationship: stringPtr(DefaultRelationship)}.Normalized()

	text, err := s.gen.Generate(ctx, llm.Request{
		System:      recipientAnalysisPrompt,
		User:        "Analyze this gift request: " + prompt,
		MaxTokens:   1000,
		Temperature: 0.3,
		Purpose:     "recipient_analysis",
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Recipient analysis failed, using default profile")
		return fallback
	}

	var profile RecipientProfile
	if err := llm.DecodeJSON(text, &profile); err != nil {
		s.logger.Debug().Err(err).Msg("Recipient analysis returned unparsable JSON, using default profile")
		return fallback
	}
	profile = profile.Normalized()

	if s.cache != nil {
		if raw, err := json.Marshal(profile); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.opts.AnalysisTTL)
		}
	}
	return profile
}

func stringPtr(s string) *string {
	return &s
}
