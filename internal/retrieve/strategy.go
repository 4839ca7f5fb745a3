// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/litreport/internal/browser"
	"github.com/pdiddy/litreport/internal/httputil"
	"github.com/pdiddy/litreport/internal/source"
	"github.com/pdiddy/litreport/pkg/types"
)

// Strategy is one method of obtaining a record's artifact. Strategies run in
// order; a strategy returning ErrNotAvailable or a transient error yields to
// the next one, while ErrAuthoritativeUnavailable stops the whole record.
type Strategy interface {
	// Name identifies the strategy in the attempt log.
	Name() string

	// Applies reports whether the strategy can be tried for the record at
	// all. Inapplicable strategies are skipped without an attempt entry.
	Applies(rec *types.Record) bool

	// Fetch returns the raw artifact bytes.
	Fetch(ctx context.Context, rec *types.Record) ([]byte, error)
}

// directStrategy asks the record's own source adapters for the full text.
type directStrategy struct {
	adapters map[string]source.Adapter
}

// NewDirectStrategy builds the adapter-native fetch strategy.
func NewDirectStrategy(adapters []source.Adapter) Strategy {
	byName := make(map[string]source.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &directStrategy{adapters: byName}
}

func (d *directStrategy) Name() string { return "direct" }

func (d *directStrategy) Applies(rec *types.Record) bool {
	for _, src := range rec.Sources {
		if _, ok := d.adapters[src]; ok {
			return true
		}
	}
	return false
}

// Fetch tries each reporting adapter in the record's (sorted) source order.
// A transient failure from any adapter makes the whole attempt transient, so
// the outer retry loop gets another pass at it.
func (d *directStrategy) Fetch(ctx context.Context, rec *types.Record) ([]byte, error) {
	var transientErr error
	for _, src := range rec.Sources {
		adapter, ok := d.adapters[src]
		if !ok {
			continue
		}
		data, err := adapter.FetchArtifact(ctx, rec)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if types.IsTransient(err) {
			transientErr = err
		}
	}
	if transientErr != nil {
		return nil, transientErr
	}
	return nil, fmt.Errorf("no source adapter provided the artifact: %w", types.ErrNotAvailable)
}

// elsevierAPIBase is the Elsevier full-text API root. Package-level var for
// test substitution.
var elsevierAPIBase = "https://api.elsevier.com/content/article/doi"

// elsevierStrategy fetches via the Elsevier article API with an API key. It
// covers DOIs under the Elsevier registrant prefix only.
type elsevierStrategy struct {
	apiKey string
	client *http.Client
}

// NewElsevierStrategy builds the publisher-API strategy.
func NewElsevierStrategy(apiKey string, client *http.Client) Strategy {
	return &elsevierStrategy{apiKey: apiKey, client: client}
}

func (e *elsevierStrategy) Name() string { return "elsevier" }

func (e *elsevierStrategy) Applies(rec *types.Record) bool {
	return e.apiKey != "" && strings.HasPrefix(rec.DOI, "10.1016/")
}

// Fetch probes entitlement with a HEAD request before pulling the PDF, so a
// denial costs one cheap round trip. A 401/403/404 from the API is the
// publisher's own verdict and short-circuits the record.
func (e *elsevierStrategy) Fetch(ctx context.Context, rec *types.Record) ([]byte, error) {
	url := elsevierAPIBase + "/" + rec.DOI

	head, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	e.setHeaders(head)

	resp, err := httputil.DoWithRetry(ctx, e.client, head, 1)
	if err != nil {
		return nil, fmt.Errorf("probing Elsevier API: %w: %v", types.ErrProviderUnavailable, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err := e.classify(resp.StatusCode); err != nil {
		return nil, err
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	e.setHeaders(get)

	resp, err = httputil.DoWithRetry(ctx, e.client, get, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching from Elsevier API: %w: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if err := e.classify(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (e *elsevierStrategy) setHeaders(req *http.Request) {
	req.Header.Set("X-ELS-APIKey", e.apiKey)
	req.Header.Set("Accept", "application/pdf")
}

func (e *elsevierStrategy) classify(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return fmt.Errorf("Elsevier API returned %d: %w", status, types.ErrAuthoritativeUnavailable)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("Elsevier API: %w", types.ErrRateLimited)
	default:
		return fmt.Errorf("Elsevier API returned %d: %w", status, types.ErrProviderUnavailable)
	}
}

// browserStrategy drives a headless browser against the record's landing
// page. It is last in the strategy order: slow, stateful, and external.
type browserStrategy struct {
	driver browser.Driver
}

// NewBrowserStrategy builds the browser-automation strategy.
func NewBrowserStrategy(driver browser.Driver) Strategy {
	return &browserStrategy{driver: driver}
}

func (b *browserStrategy) Name() string { return "browser" }

func (b *browserStrategy) Applies(rec *types.Record) bool {
	return b.driver != nil && landingURL(rec) != ""
}

func (b *browserStrategy) Fetch(ctx context.Context, rec *types.Record) ([]byte, error) {
	return b.driver.Download(ctx, landingURL(rec))
}

// landingURL picks the page the browser should visit: the reported landing
// page, else the DOI resolver.
func landingURL(rec *types.Record) string {
	if rec.LandingURL != "" {
		return rec.LandingURL
	}
	if rec.DOI != "" {
		return "https://doi.org/" + rec.DOI
	}
	return ""
}
