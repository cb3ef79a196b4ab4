package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/giftlens/giftlens/internal/app"
	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/recommend"
)

// Recommender produces recommendations. *app.App implements it.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// RecommendHandler serves gift recommendations.
type RecommendHandler struct {
	logger      *observability.Logger
	recommender Recommender
	validate    *validator.Validate
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(logger *observability.Logger, recommender Recommender) *RecommendHandler {
	return &RecommendHandler{
		logger:      logger.WithComponent("recommend_handler"),
		recommender: recommender,
		validate:    newValidator(),
	}
}

// Recommend handles POST /recommend.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)

	var req recommend.Request
	if msg, err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, logger, http.StatusBadRequest, msg, err.Error())
		return
	}

	resp, err := h.recommender.Recommend(ctx, req)
	if err != nil {
		h.writeServiceError(w, logger, err)
		return
	}

	logger.Info().
		Str("tier", string(resp.Retrieval.Tier)).
		Int("candidates", resp.Retrieval.Candidates).
		Msg("Recommendation served")
	writeJSON(w, logger, http.StatusOK, resp)
}

func (h *RecommendHandler) writeServiceError(w http.ResponseWriter, logger *observability.Logger, err error) {
	var upstream *llm.ExternalServiceError
	switch {
	case errors.Is(err, app.ErrNotReady), errors.Is(err, recommend.ErrNoProducts):
		w.Header().Set("Retry-After", "5")
		writeError(w, logger, http.StatusServiceUnavailable, "service unavailable", err.Error())
	case errors.Is(err, llm.ErrCircuitOpen):
		logger.Warn().Err(err).Msg("Text generation circuit open")
		w.Header().Set("Retry-After", "30")
		writeError(w, logger, http.StatusServiceUnavailable, "text generation temporarily unavailable", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, logger, http.StatusGatewayTimeout, "request timed out", err.Error())
	case errors.As(err, &upstream):
		logger.Error().Err(err).Int("upstream_status", upstream.Status).Msg("Text generation failed")
		writeJSON(w, logger, http.StatusBadGateway, ErrorResponse{
			Error:          "text generation failed",
			Message:        "text generation failed",
			Detail:         err.Error(),
			UpstreamStatus: upstream.Status,
		})
	case errors.Is(err, llm.ErrExternalService):
		logger.Error().Err(err).Msg("Text generation failed")
		writeError(w, logger, http.StatusBadGateway, "text generation failed", err.Error())
	default:
		logger.Error().Err(err).Msg("Recommendation failed")
		writeError(w, logger, http.StatusInternalServerError, "recommendation failed", err.Error())
	}
}
