package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorizedChat = 987654

// listenerServer serves one canned getUpdates batch, then empty batches, and
// records every sendMessage text.
type listenerServer struct {
	mu      sync.Mutex
	batch   string
	served  bool
	replies []string
}

func (s *listenerServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.served {
			time.Sleep(20 * time.Millisecond)
			w.Write([]byte(`{"ok": true, "result": []}`))
			return
		}
		s.served = true
		w.Write([]byte(s.batch))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.replies = append(s.replies, body.Text)
		s.mu.Unlock()
		w.Write([]byte(`{"ok": true, "result": []}`))
	default:
		w.Write([]byte(`{"ok": true, "result": []}`))
	}
}

func (s *listenerServer) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.replies...)
}

func TestListenDispatchesCommandsAndDropsStrangers(t *testing.T) {
	ls := &listenerServer{batch: `{"ok": true, "result": [
		{"update_id": 1, "message": {"text": "/analyze aggressive", "chat": {"id": 987654}, "from": {"id": 1, "username": "owner"}}},
		{"update_id": 2, "message": {"text": "/portfolio", "chat": {"id": 111}, "from": {"id": 2, "username": "stranger"}}},
		{"update_id": 3, "message": {"text": "not a command", "chat": {"id": 987654}, "from": {"id": 1, "username": "owner"}}}
	]}`}
	srv := httptest.NewServer(http.HandlerFunc(ls.handler))
	defer srv.Close()

	c := New("test-token", authorizedChat, zerolog.Nop()).WithEndpoint(srv.URL)

	type call struct {
		command string
		args    []string
	}
	var mu sync.Mutex
	var calls []call

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Listen(ctx, func(ctx context.Context, command string, args []string) string {
			mu.Lock()
			calls = append(calls, call{command, args})
			mu.Unlock()
			return "handled " + command
		}, func(ctx context.Context, data string) string { return "" })
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop on context cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1, "stranger and non-command messages must not dispatch")
	assert.Equal(t, "/analyze", calls[0].command)
	assert.Equal(t, []string{"aggressive"}, calls[0].args)
	assert.Contains(t, ls.sent(), "handled /analyze")
}

func TestListenDispatchesCallback(t *testing.T) {
	ls := &listenerServer{batch: `{"ok": true, "result": [
		{"update_id": 5, "callback_query": {"id": "cb-1", "data": "EXEC_token",
			"from": {"id": 1, "username": "owner"},
			"message": {"chat": {"id": 987654}}}}
	]}`}
	srv := httptest.NewServer(http.HandlerFunc(ls.handler))
	defer srv.Close()

	c := New("test-token", authorizedChat, zerolog.Nop()).WithEndpoint(srv.URL)

	var mu sync.Mutex
	var got string

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Listen(ctx,
			func(ctx context.Context, command string, args []string) string { return "" },
			func(ctx context.Context, data string) string {
				mu.Lock()
				got = data
				mu.Unlock()
				return ""
			})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != ""
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "EXEC_token", got)
}
