package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftlens/giftlens/internal/observability"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func okResponse(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}},
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil, nil)
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, 60*time.Second, c.timeout)
}

func TestGenerate(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost:8000", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Gift Recommendation AI", r.Header.Get("X-Title"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 2048, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be helpful", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		okResponse("1. Yoga Mat")(w, r)
	})

	metrics := observability.NewMetrics()
	c := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Referer: "http://localhost:8000",
		Title:   "Gift Recommendation AI",
	}, nil, metrics)

	text, err := c.Generate(context.Background(), Request{
		System: "be helpful", User: "gift ideas", MaxTokens: 2048, Temperature: 0.7, Purpose: "recommend",
	})
	require.NoError(t, err)
	assert.Equal(t, "1. Yoga Mat", text)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("recommend", "ok")))
}

func TestGenerate_OmitsEmptySystem(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		okResponse("ok")(w, r)
	})

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil, nil)
	_, err := c.Generate(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
}

func TestGenerate_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("rate limited"))
			},
			wantStatus: http.StatusTooManyRequests,
			wantBody:   "rate limited",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   "no choices in response",
		},
		{
			name: "error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			},
			wantStatus: http.StatusOK,
			wantBody:   "model overloaded",
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantStatus: http.StatusOK,
			wantBody:   "<html>",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := chatServer(t, tc.handler)
			c := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil, nil)

			_, err := c.Generate(context.Background(), Request{User: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExternalService)

			var se *ExternalServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantStatus, se.Status)
			assert.Equal(t, tc.wantBody, se.Body)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil, nil)
	start := time.Now()
	_, err := c.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerate_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil, nil)
	_, err := c.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxFailures: 2, OpenTimeout: time.Minute}, nil, nil)
	for i := 0; i < 2; i++ {
		_, err := c.Generate(context.Background(), Request{User: "x"})
		require.Error(t, err)
	}

	_, err := c.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not call upstream")
}

func TestGenerate_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxFailures: 1}, nil, nil)
	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), Request{User: "x"})
		assert.False(t, errors.Is(err, ErrCircuitOpen))
	}
}

func TestExternalServiceError_Message(t *testing.T) {
	assert.Contains(t, (&ExternalServiceError{Status: 500, Body: "boom"}).Error(), "status 500: boom")
	assert.Contains(t, (&ExternalServiceError{Err: errors.New("dial")}).Error(), "dial")
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "server error", err: &ExternalServiceError{Status: 500}, want: true},
		{name: "rate limited", err: &ExternalServiceError{Status: 429}, want: true},
		{name: "bad request", err: &ExternalServiceError{Status: 400}, want: false},
		{name: "transport", err: &ExternalServiceError{Err: errors.New("dial")}, want: true},
		{name: "caller cancelled", err: &ExternalServiceError{Err: context.Canceled}, want: false},
		{name: "upstream timeout", err: &ExternalServiceError{Err: context.DeadlineExceeded}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, countsAsFailure(tc.err))
		})
	}
}
