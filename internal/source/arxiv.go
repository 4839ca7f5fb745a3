// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/litreport/internal/ident"
	"github.com/pdiddy/litreport/pkg/types"
)

// Base URLs for the arXiv API and PDF host. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org/pdf/"
)

// Arxiv queries the arXiv Atom API and serves arxiv.org PDFs.
type Arxiv struct {
	cfg     types.SourceConfig
	client  *http.Client
	limiter *limiter
}

// NewArxiv creates the arXiv adapter. arXiv asks for at most one request
// every three seconds, so the configured budget is capped there.
func NewArxiv(cfg types.SourceConfig, client *http.Client) *Arxiv {
	perSecond := cfg.RequestsPerSecond
	if perSecond <= 0 || perSecond > 1.0/3.0 {
		perSecond = 1.0 / 3.0
	}
	return &Arxiv{cfg: cfg, client: client, limiter: newLimiter(perSecond, 1)}
}

// Name returns the adapter identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// Search queries the arXiv API for one page of results.
func (a *Arxiv) Search(ctx context.Context, query types.SearchQuery, page int) ([]types.RawHit, error) {
	max := a.cfg.MaxResults
	if max <= 0 {
		max = 20
	}

	terms := strings.Fields(query.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, "all:"+url.QueryEscape(strings.Join(terms, " ")), page*max, max)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := doRequest(ctx, a.client, a.limiter, req, a.cfg.MaxRetries, a.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: parsing response: %v: %w", err, types.ErrProviderUnavailable)
	}

	var hits []types.RawHit
	for _, entry := range feed.Entries {
		arxivID := ident.NormalizeArxiv(entry.ID)
		if arxivID == "" {
			continue
		}

		h := types.RawHit{
			Source:   a.Name(),
			ArxivID:  arxivID,
			Title:    strings.Join(strings.Fields(entry.Title), " "),
			Abstract: strings.TrimSpace(entry.Summary),
			PDFURL:   arxivPDFBase + arxivID,
			Query:    query.Text,
			Section:  query.Section,
		}
		if entry.DOI != "" {
			h.DOI = entry.DOI
		}
		for _, au := range entry.Authors {
			h.Authors = append(h.Authors, strings.TrimSpace(au.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			h.Year = t.Year()
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// FetchArtifact downloads the arXiv PDF for a record. Records without an
// arXiv id are authoritatively unavailable from this provider.
func (a *Arxiv) FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error) {
	if rec.ArxivID == "" {
		return nil, fmt.Errorf("arxiv: record %s has no arXiv id: %w", rec.ID, types.ErrNotAvailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivPDFBase+rec.ArxivID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := doRequest(ctx, a.client, a.limiter, req, a.cfg.MaxRetries, a.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: reading PDF body: %v: %w", err, types.ErrProviderUnavailable)
	}
	return data, nil
}

// arXiv Atom feed XML structures. The entry <id> is the abs URL; the
// normalizer extracts the bare id from it.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"doi"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
