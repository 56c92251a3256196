// Package ai provides the DeepSeek chat-completions client used to generate
// portfolio recommendations.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrUnavailable signals that the reasoning service could not be reached
// within the configured timeout and retry budget. Callers recover from it
// locally; it never propagates to the user as an exception.
var ErrUnavailable = errors.New("ai: service unavailable")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("ai: api key not configured")

const model = "deepseek-chat"

// Client calls the DeepSeek chat-completions endpoint.
type Client struct {
	http       *resty.Client
	apiKey     string
	maxRetries int
	log        zerolog.Logger
}

// Config for the DeepSeek client.
type Config struct {
	APIKey     string
	APIURL     string // e.g. https://api.deepseek.com/v1
	Timeout    time.Duration
	MaxRetries int
}

// New creates a Client.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:       http,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		log:        log.With().Str("component", "deepseek").Logger(),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Complete sends a system+user prompt and returns the raw assistant text.
// Transport errors and 5xx responses are retried up to MaxRetries; on
// exhaustion the error wraps ErrUnavailable. 4xx responses fail immediately.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := completionRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
		Stream:      false,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		var result completionResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&result).
			Post("/chat/completions")
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("completion request failed")
			continue
		}

		switch {
		case resp.IsSuccess():
			if len(result.Choices) == 0 {
				return "", fmt.Errorf("%w: empty choices in response", ErrUnavailable)
			}
			return result.Choices[0].Message.Content, nil
		case resp.StatusCode() >= 500:
			lastErr = fmt.Errorf("status %s", resp.Status())
			c.log.Warn().Int("status", resp.StatusCode()).Int("attempt", attempt).Msg("completion server error")
		default:
			return "", fmt.Errorf("%w: status %s: %s", ErrUnavailable, resp.Status(), resp.String())
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
