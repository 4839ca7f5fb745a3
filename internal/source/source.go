// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source implements uniform adapters over external academic-metadata
// and full-text providers. Each adapter owns its request budget and retry
// policy, so callers need no provider-specific throttling knowledge: a call
// blocks under the budget and degrades to ErrProviderUnavailable after
// bounded retries instead of surfacing raw transport failures.
package source

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/litreport/internal/httputil"
	"github.com/pdiddy/litreport/pkg/types"
)

// Adapter is the uniform capability over one provider.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "arxiv").
	Name() string

	// Search executes one query against the provider and returns normalized
	// hits. page starts at 0; a provider with no further pages returns an
	// empty slice. Transient provider failures surface as
	// ErrProviderUnavailable after internal retries.
	Search(ctx context.Context, query types.SearchQuery, page int) ([]types.RawHit, error)

	// FetchArtifact attempts to retrieve the full-text binary for a record.
	// It returns ErrNotAvailable when the provider authoritatively has no
	// artifact for the record, and ErrProviderUnavailable on transient
	// failure.
	FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error)
}

// limiter enforces a per-adapter token-bucket request budget. Requests block
// until a token is available rather than failing.
type limiter struct {
	l *rate.Limiter
}

func newLimiter(perSecond float64, burst int) *limiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiter{l: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (lm *limiter) wait(ctx context.Context) error {
	return lm.l.Wait(ctx)
}

// doRequest waits for the adapter's budget, executes the request with
// retry/backoff, and classifies the terminal status. A nil error means a
// 200 response the caller must close. Other statuses map onto the shared
// failure taxonomy.
func doRequest(ctx context.Context, client *http.Client, lm *limiter, req *http.Request, maxRetries int, name string) (*http.Response, error) {
	if err := lm.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, maxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %v: %w", name, err, types.ErrProviderUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: HTTP 429 after retries: %w", name, types.ErrRateLimited)
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: HTTP %d after retries: %w", name, resp.StatusCode, types.ErrProviderUnavailable)
	default:
		code := resp.StatusCode
		resp.Body.Close()
		return nil, fmt.Errorf("%s: HTTP %d: %w", name, code, types.ErrNotAvailable)
	}
}

// Registry builds the enabled adapters from configuration. Adapter order is
// stable so merge results are reproducible in tests.
func Registry(cfg types.SourceConfig, client *http.Client) []Adapter {
	var adapters []Adapter
	if cfg.EnableArxiv {
		adapters = append(adapters, NewArxiv(cfg, client))
	}
	if cfg.EnableSemanticScholar {
		adapters = append(adapters, NewSemanticScholar(cfg, client))
	}
	if cfg.EnableCrossref {
		adapters = append(adapters, NewCrossref(cfg, client))
	}
	if cfg.EnableOpenAlex {
		adapters = append(adapters, NewOpenAlex(cfg, client))
	}
	return adapters
}
