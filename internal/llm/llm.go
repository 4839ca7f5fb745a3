// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm exposes the language-model capability used for planning,
// query generation, and relevance judgments. Every response is untrusted
// input: callers validate shape via ExtractJSON and keep a deterministic
// fallback, so a failing or rambling model never aborts the pipeline.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/litreport/pkg/types"
)

// Options tunes a single generate call. Zero values fall back to the
// client's configured defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is the generate capability. Implementations convert transport and
// provider failures to ErrProviderUnavailable.
type Client interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// New builds the configured client. Unknown providers are a configuration
// error surfaced at startup, not at first call.
func New(cfg types.LLMConfig) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case "claude":
		return NewClaude(cfg, httpClient), nil
	case "ollama", "":
		return NewOllama(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want claude or ollama)", cfg.Provider)
	}
}

// GenerateWithRetry calls Generate up to maxRetries+1 times, backing off on
// transient failures. A final failure returns the last error.
func GenerateWithRetry(ctx context.Context, c Client, prompt string, opts Options, maxRetries int) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * retryDelay):
			}
		}
		out, err := c.Generate(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// retryDelay is the base inter-attempt delay. Tests override it.
var retryDelay = 500 * time.Millisecond
