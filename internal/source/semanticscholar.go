// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pdiddy/litreport/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,citationCount,openAccessPdf,url"

// SemanticScholar queries the Semantic Scholar graph API and serves the
// open-access PDFs it reports.
type SemanticScholar struct {
	cfg     types.SourceConfig
	client  *http.Client
	limiter *limiter
}

// NewSemanticScholar creates the Semantic Scholar adapter. With an API key
// the budget rises to 10 requests per second; the anonymous pool is slower.
func NewSemanticScholar(cfg types.SourceConfig, client *http.Client) *SemanticScholar {
	perSecond := cfg.RequestsPerSecond
	burst := cfg.Burst
	if cfg.SemanticScholarAPIKey != "" && perSecond < 10 {
		perSecond = 10
		burst = 10
	}
	return &SemanticScholar{cfg: cfg, client: client, limiter: newLimiter(perSecond, burst)}
}

// Name returns the adapter identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search queries the graph API for one page of results.
func (s *SemanticScholar) Search(ctx context.Context, query types.SearchQuery, page int) ([]types.RawHit, error) {
	max := s.cfg.MaxResults
	if max <= 0 {
		max = 20
	}

	params := url.Values{
		"query":  {query.Text},
		"limit":  {fmt.Sprintf("%d", max)},
		"offset": {fmt.Sprintf("%d", page*max)},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if s.cfg.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", s.cfg.SemanticScholarAPIKey)
	}

	resp, err := doRequest(ctx, s.client, s.limiter, req, s.cfg.MaxRetries, s.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("semantic_scholar: parsing response: %v: %w", err, types.ErrProviderUnavailable)
	}

	var hits []types.RawHit
	for _, paper := range sr.Data {
		h := types.RawHit{
			Source:     s.Name(),
			DOI:        paper.ExternalIDs.DOI,
			ArxivID:    paper.ExternalIDs.ArXiv,
			Title:      paper.Title,
			Abstract:   paper.Abstract,
			Year:       paper.Year,
			Venue:      paper.Venue,
			Citations:  paper.CitationCount,
			LandingURL: paper.URL,
			Query:      query.Text,
			Section:    query.Section,
		}
		if paper.OpenAccessPdf != nil {
			h.PDFURL = paper.OpenAccessPdf.URL
		}
		for _, au := range paper.Authors {
			h.Authors = append(h.Authors, au.Name)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// FetchArtifact downloads the record's open-access PDF as reported by
// Semantic Scholar. Records without an open-access URL are authoritatively
// unavailable from this provider.
func (s *SemanticScholar) FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error) {
	if rec.PDFURL == "" {
		return nil, fmt.Errorf("semantic_scholar: record %s has no open-access PDF: %w", rec.ID, types.ErrNotAvailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.PDFURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := doRequest(ctx, s.client, s.limiter, req, s.cfg.MaxRetries, s.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("semantic_scholar: reading PDF body: %v: %w", err, types.ErrProviderUnavailable)
	}
	return data, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	URL           string              `json:"url"`
	OpenAccessPdf *semanticOpenAccess `json:"openAccessPdf"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
