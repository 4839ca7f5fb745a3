// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/pkg/types"
)

func init() {
	retryDelay = time.Millisecond
}

func TestClaudeGenerate(t *testing.T) {
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`))
	}))
	defer srv.Close()

	oldURL := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = oldURL }()

	c := NewClaude(types.LLMConfig{APIKey: "test-key", Model: "claude-sonnet-4-5", MaxTokens: 2048}, srv.Client())
	out, err := c.Generate(context.Background(), "say hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, "claude-sonnet-4-5", gotReq.Model)
	assert.Equal(t, 2048, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "say hello", gotReq.Messages[0].Content)
}

func TestClaudeGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, types.ErrRateLimited},
		{"server error", http.StatusInternalServerError, `boom`, types.ErrProviderUnavailable},
		{"no text blocks", http.StatusOK, `{"content":[]}`, types.ErrMalformedOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			oldURL := claudeAPIURL
			claudeAPIURL = srv.URL
			defer func() { claudeAPIURL = oldURL }()

			c := NewClaude(types.LLMConfig{APIKey: "k", Model: "m"}, srv.Client())
			_, err := c.Generate(context.Background(), "p", Options{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3", req.Model)
		_, _ = w.Write([]byte(`{"response":"forty-two","done":true}`))
	}))
	defer srv.Close()

	c := NewOllama(types.LLMConfig{Provider: "ollama", Model: "llama3", BaseURL: srv.URL}, srv.Client())
	out, err := c.Generate(context.Background(), "meaning of life", Options{})
	require.NoError(t, err)
	assert.Equal(t, "forty-two", out)
}

func TestOllamaGenerateDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOllama(types.LLMConfig{BaseURL: srv.URL}, srv.Client())
	_, err := c.Generate(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
}

func TestNewProviders(t *testing.T) {
	c, err := New(types.LLMConfig{Provider: "claude", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &Claude{}, c)

	c, err = New(types.LLMConfig{Provider: "ollama", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	_, err = New(types.LLMConfig{Provider: "gpt9"})
	assert.Error(t, err)
}

func TestGenerateWithRetry(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		m := &flakyClient{failures: 2, out: "ok"}
		out, err := GenerateWithRetry(context.Background(), m, "p", Options{}, 3)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 3, m.calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		m := &MockClient{Err: types.ErrProviderUnavailable}
		_, err := GenerateWithRetry(context.Background(), m, "p", Options{}, 2)
		assert.ErrorIs(t, err, types.ErrProviderUnavailable)
		assert.Equal(t, 3, m.Calls)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &MockClient{Err: types.ErrProviderUnavailable}
		_, err := GenerateWithRetry(ctx, m, "p", Options{}, 5)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// flakyClient fails the first N calls, then succeeds.
type flakyClient struct {
	failures int
	calls    int
	out      string
}

func (f *flakyClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", types.ErrProviderUnavailable
	}
	return f.out, nil
}

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Answer int `json:"answer"`
	}

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bare object", `{"answer": 42}`, 42},
		{"fenced with tag", "```json\n{\"answer\": 42}\n```", 42},
		{"fenced no tag", "```\n{\"answer\": 42}\n```", 42},
		{"prose before and after", "Sure! Here is the result:\n{\"answer\": 42}\nLet me know.", 42},
		{"brace in prose before value", "set {x} then {\"answer\": 42}", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, ExtractJSON(tt.raw, &p))
			assert.Equal(t, tt.want, p.Answer)
		})
	}

	t.Run("array payload", func(t *testing.T) {
		var list []string
		require.NoError(t, ExtractJSON("the items are: [\"a\", \"b\"]", &list))
		assert.Equal(t, []string{"a", "b"}, list)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		var p payload
		err := ExtractJSON("I could not produce a result.", &p)
		assert.ErrorIs(t, err, types.ErrMalformedOutput)
	})

	t.Run("truncated object", func(t *testing.T) {
		var p payload
		err := ExtractJSON(`{"answer": 4`, &p)
		assert.True(t, errors.Is(err, types.ErrMalformedOutput))
	})
}
