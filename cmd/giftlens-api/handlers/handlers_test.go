package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlens/giftlens/internal/app"
	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/recommend"
)

type stubRecommender struct {
	err error
}

func (s stubRecommender) Recommend(context.Context, recommend.Request) (*recommend.Response, error) {
	return nil, s.err
}

func TestRecommendHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		retryAfter bool
	}{
		{name: "not ready", err: app.ErrNotReady, wantStatus: http.StatusServiceUnavailable, retryAfter: true},
		{name: "empty catalog", err: recommend.ErrNoProducts, wantStatus: http.StatusServiceUnavailable, retryAfter: true},
		{name: "circuit open", err: &llm.ExternalServiceError{Status: http.StatusServiceUnavailable, Err: llm.ErrCircuitOpen}, wantStatus: http.StatusServiceUnavailable, retryAfter: true},
		{name: "upstream status", err: &llm.ExternalServiceError{Status: http.StatusTooManyRequests, Body: "slow down"}, wantStatus: http.StatusBadGateway},
		{name: "upstream unreachable", err: fmt.Errorf("call: %w", llm.ErrExternalService), wantStatus: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
		{name: "upstream deadline", err: fmt.Errorf("generate: %w", &llm.ExternalServiceError{Err: context.DeadlineExceeded}), wantStatus: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("retrieve candidates: boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRecommendHandler(observability.NopLogger(), stubRecommender{err: tc.err})
			rec := httptest.NewRecorder()
			h.Recommend(rec, httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"prompt":"x"}`)))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.retryAfter, rec.Header().Get("Retry-After") != "")

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestDescribeValidation(t *testing.T) {
	v := newValidator()
	age := -3
	err := v.Struct(recommend.Request{RecipientProfile: &recommend.RecipientProfile{Age: &age}})
	require.Error(t, err)

	msg := describeValidation(err)
	assert.Contains(t, msg, "prompt is required")
	assert.Contains(t, msg, "recipient_profile.age must be at least 0")
}

func TestDecodeAndValidate_RejectsOversizedBody(t *testing.T) {
	body := `{"prompt":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(body))

	var dst recommend.Request
	msg, err := decodeAndValidate(rec, req, newValidator(), &dst)
	require.Error(t, err)
	assert.Equal(t, "invalid request body", msg)
}
