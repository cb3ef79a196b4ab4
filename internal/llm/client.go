// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/giftlens/giftlens/internal/observability"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.0-flash-exp:free"

	// maxErrorBody bounds how much of an upstream error body is kept.
	maxErrorBody = 4096
)

// Generator produces text from a system instruction and user content.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one text-generation call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// Purpose labels metrics and logs, e.g. "recommend" or "greeting_card".
	Purpose string
}

// Config holds client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration // per call; Default: 60s
	Referer     string
	Title       string
	MaxFailures uint32        // consecutive failures before the breaker opens; Default: 5
	OpenTimeout time.Duration // time the breaker stays open; Default: 30s
}

// Client handles communication with the chat completions API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	referer    string
	title      string
	breaker    *gobreaker.CircuitBreaker[string]
	metrics    *observability.Metrics
	logger     *observability.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the API request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the API response body.
type ChatResponse struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// APIError is the error envelope some providers return with a 200.
type APIError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// NewClient creates a new chat client.
func NewClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		referer:    cfg.Referer,
		title:      cfg.Title,
		metrics:    metrics,
		logger:     logger.WithComponent("llm"),
	}

	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return c
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// Generate sends one chat completion and returns the first choice's content.
// The call is bounded by the configured timeout and is never retried.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.breaker.Execute(func() (string, error) {
		return c.do(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &ExternalServiceError{Status: http.StatusServiceUnavailable, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Warn().Err(err).Str("purpose", req.Purpose).Dur("duration", time.Since(start)).Msg("Text generation failed")
	}
	c.metrics.ObserveLLM(req.Purpose, outcome, time.Since(start).Seconds())
	return text, err
}

func (c *Client) do(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, Message{Role: "user", Content: req.User})

	body, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &ExternalServiceError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExternalServiceError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ExternalServiceError{Status: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
	}

	var chat ChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", &ExternalServiceError{Status: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody), Err: fmt.Errorf("decode response: %w", err)}
	}
	if chat.Error != nil {
		return "", &ExternalServiceError{Status: resp.StatusCode, Body: chat.Error.Message}
	}
	if len(chat.Choices) == 0 {
		return "", &ExternalServiceError{Status: resp.StatusCode, Body: "no choices in response"}
	}

	return chat.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Generator = (*Client)(nil)
