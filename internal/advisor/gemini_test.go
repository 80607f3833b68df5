package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(nil)
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c
}

func modelListJSON(names ...string) string {
	type model struct {
		Name    string   `json:"name"`
		Methods []string `json:"supportedGenerationMethods"`
	}
	var models []model
	for _, n := range names {
		models = append(models, model{Name: n, Methods: []string{"generateContent"}})
	}
	raw, _ := json.Marshal(map[string]any{"models": models})
	return string(raw)
}

func replyJSON(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(raw)
}

func TestChatReturnsModelReply(t *testing.T) {
	var gotPrompt string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/models":
			w.Write([]byte(modelListJSON("models/gemini-1.5-pro", "models/gemini-1.5-flash")))
		case strings.Contains(r.URL.Path, ":generateContent"):
			assert.Contains(t, r.URL.Path, "gemini-1.5-flash", "flash model preferred over pro")
			var req geminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotPrompt = req.Contents[0].Parts[0].Text
			w.Write([]byte(replyJSON("You spent most on food.")))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	expenses := []core.Expense{
		{Date: "2025-03-01", Amount: decimal.NewFromInt(42), Category: core.CategoryFood, Note: "groceries"},
	}
	reply, err := c.Chat(context.Background(), "key-1", "Where does my money go?", expenses)
	require.NoError(t, err)
	assert.Equal(t, "You spent most on food.", reply)
	assert.Contains(t, gotPrompt, "2025-03-01: 42 (Food) - groceries")
	assert.Contains(t, gotPrompt, "Where does my money go?")
}

func TestChatRequiresAPIKey(t *testing.T) {
	c := NewClient(nil)
	_, err := c.Chat(context.Background(), "", "hello", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestChatSurfacesRateLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(modelListJSON("models/gemini-1.5-flash")))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.Chat(context.Background(), "key-1", "hello", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestChatFallsBackWhenDiscoveryFails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Contains(t, r.URL.Path, fallbackModel)
		w.Write([]byte(replyJSON("ok")))
	}))

	reply, err := c.Chat(context.Background(), "key-1", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestChatCachesDiscoveredModel(t *testing.T) {
	var discoveries atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			discoveries.Add(1)
			w.Write([]byte(modelListJSON("models/gemini-1.5-flash")))
			return
		}
		w.Write([]byte(replyJSON("ok")))
	}))

	for range 3 {
		_, err := c.Chat(context.Background(), "key-1", "hello", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), discoveries.Load(), "model list fetched once per key")
}

func TestChatRejectsEmptyReply(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(modelListJSON("models/gemini-1.5-flash")))
			return
		}
		w.Write([]byte(`{"candidates":[]}`))
	}))

	_, err := c.Chat(context.Background(), "key-1", "hello", nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestPromptTruncatesHistory(t *testing.T) {
	expenses := make([]core.Expense, 30)
	for i := range expenses {
		expenses[i] = core.Expense{
			Date:     "2025-03-01",
			Amount:   decimal.NewFromInt(int64(i)),
			Category: core.CategoryFood,
		}
	}
	prompt := buildPrompt("q", expenses)
	assert.Equal(t, recentExpenseLimit, strings.Count(prompt, "2025-03-01"))
}
