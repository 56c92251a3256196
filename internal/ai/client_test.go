package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	b, _ := json.Marshal(completionResponse{
		Choices: []choice{{Message: message{Role: "assistant", Content: content}}},
	})
	return string(b)
}

func TestCompleteReturnsAssistantText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		assert.InDelta(t, 0.3, req.Temperature, 0.001)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("HOLD everything")))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", APIURL: srv.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	out, err := c.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "HOLD everything", out)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("recovered")))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", APIURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 2}, zerolog.Nop())
	out, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, calls)
}

func TestCompleteClientErrorFailsImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "bad-key", APIURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 3}, zerolog.Nop())
	_, err := c.Complete(context.Background(), "s", "u")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls, "4xx must not be retried")
}

func TestCompleteExhaustedRetriesWrapUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", APIURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, zerolog.Nop())
	_, err := c.Complete(context.Background(), "s", "u")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCompleteWithoutKey(t *testing.T) {
	c := New(Config{APIURL: "http://localhost:1"}, zerolog.Nop())
	assert.False(t, c.Configured())
	_, err := c.Complete(context.Background(), "s", "u")
	require.ErrorIs(t, err, ErrNotConfigured)
}
