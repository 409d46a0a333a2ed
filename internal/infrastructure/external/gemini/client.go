// Package gemini implements the completion API client for the assistant.
// The Gemini platform exposes an OpenAI-compatible chat completions endpoint;
// this package handles request shaping, rate limiting, circuit breaking and
// response parsing for it.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the OpenAI-compatible Gemini endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ClientConfig contains configuration for the completion API client.
type ClientConfig struct {
	// BaseURL is the completion API base URL (without trailing slash)
	BaseURL string

	// APIKey authenticates requests. Empty means no real client should be
	// constructed; wiring falls back to the mock responder.
	APIKey string

	// Model is the completion model name
	Model string

	// Temperature for response sampling
	Temperature float64

	// MaxTokens caps the reply length
	MaxTokens int

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		APIKey:            apiKey,
		Model:             DefaultModel,
		Temperature:       0.7,
		MaxTokens:         1000,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the completion API client. It implements the assistant responder
// port used by the chat command handlers.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	mapper         *Mapper
}

// NewClient creates a new completion API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger
	breaker := circuitbreaker.CompletionAPIBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: breaker,
		mapper:         NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Respond generates an assistant reply for the given transcript. The history
// must be in chronological order; the persona prompt for agentType is
// prepended. Failures map to the shared upstream error taxonomy and the
// caller decides what to do with the open chat session.
func (c *Client) Respond(ctx context.Context, agentType chat.AgentType, history []*chat.Message) (string, error) {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			return "", shared.WrapError("assistant", "Respond", shared.ErrRateLimited, "completion rate limit exceeded", err)
		}
		return "", shared.WrapError("assistant", "Respond", shared.ErrTimeout, "rate limiter wait cancelled", err)
	}

	request := c.mapper.CompletionRequest(c.config.Model, agentType, history, c.config.Temperature, c.config.MaxTokens)

	var response CompletionResponseDTO
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.doRequest(ctx, "/chat/completions", request, &response)
	})
	if err != nil {
		return "", c.mapFailure(err)
	}

	reply, err := c.mapper.ReplyFromResponse(&response)
	if err != nil {
		return "", shared.WrapError("assistant", "Respond", shared.ErrInvalidFormat, "unusable completion response", err)
	}

	if c.config.Debug {
		c.logger.Debug("completion received",
			"model", response.Model,
			"agent_type", agentType.String(),
			"reply_len", len(reply),
		)
	}

	return reply, nil
}

// mapFailure translates transport and breaker errors into the domain taxonomy.
func (c *Client) mapFailure(err error) error {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return shared.WrapError("assistant", "Respond", shared.ErrServiceUnavailable, "completion circuit open", err)
	case errors.Is(err, context.DeadlineExceeded):
		return shared.WrapError("assistant", "Respond", shared.ErrTimeout, "completion request timed out", err)
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return shared.WrapError("assistant", "Respond", shared.ErrRateLimited, "completion quota exhausted", err)
		}
		if apiErr.Status >= 500 {
			return shared.WrapError("assistant", "Respond", shared.ErrServiceUnavailable, "completion upstream error", err)
		}
		return shared.WrapError("assistant", "Respond", shared.ErrExternalService, "completion request rejected", err)
	}

	return shared.WrapError("assistant", "Respond", shared.ErrServiceUnavailable, "completion request failed", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a single POST against the completion API.
func (c *Client) doRequest(ctx context.Context, path string, body interface{}, result interface{}) error {
	fullURL := strings.TrimSuffix(c.config.BaseURL, "/") + path

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	if c.config.Debug {
		c.logger.Debug("completion api request", "url", fullURL, "model", c.config.Model)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		c.rateLimiter.RecordRateLimitHit(retryAfter)
	}

	if resp.StatusCode >= 400 {
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error.Message != "" {
			envelope.Error.Status = resp.StatusCode
			return &envelope.Error
		}
		return &APIErrorDTO{Status: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// ClientStatus reports the client's protective state.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker circuitbreaker.Counts
	CircuitState   string
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.circuitBreaker.Counts(),
		CircuitState:   c.circuitBreaker.State().String(),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
