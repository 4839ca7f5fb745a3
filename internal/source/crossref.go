// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/litreport/pkg/types"
)

// Crossref endpoints. Declared as vars so tests can substitute httptest
// servers. The doi.org resolver is used for RIS content negotiation.
var (
	crossrefAPIBase = "https://api.crossref.org/works"
	doiBase         = "https://doi.org/"
)

// Crossref queries the Crossref works API for metadata and negotiates RIS
// citations from the DOI resolver. It has no full-text holdings of its own:
// FetchArtifact resolves the DOI and follows redirects, which succeeds only
// for openly hosted PDFs.
type Crossref struct {
	cfg     types.SourceConfig
	client  *http.Client
	limiter *limiter
}

// NewCrossref creates the Crossref adapter.
func NewCrossref(cfg types.SourceConfig, client *http.Client) *Crossref {
	return &Crossref{cfg: cfg, client: client, limiter: newLimiter(cfg.RequestsPerSecond, cfg.Burst)}
}

// Name returns the adapter identifier.
func (c *Crossref) Name() string { return "crossref" }

// Search queries the works API for one page of results.
func (c *Crossref) Search(ctx context.Context, query types.SearchQuery, page int) ([]types.RawHit, error) {
	max := c.cfg.MaxResults
	if max <= 0 {
		max = 20
	}

	params := url.Values{
		"query":  {query.Text},
		"rows":   {fmt.Sprintf("%d", max)},
		"offset": {fmt.Sprintf("%d", page*max)},
	}
	if c.cfg.OpenAlexEmail != "" {
		// Crossref's polite pool uses the same convention as OpenAlex.
		params.Set("mailto", c.cfg.OpenAlexEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := doRequest(ctx, c.client, c.limiter, req, c.cfg.MaxRetries, c.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cr crossrefSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("crossref: parsing response: %v: %w", err, types.ErrProviderUnavailable)
	}

	var hits []types.RawHit
	for _, work := range cr.Message.Items {
		if work.DOI == "" || len(work.Title) == 0 {
			continue
		}

		h := types.RawHit{
			Source:     c.Name(),
			DOI:        work.DOI,
			Title:      work.Title[0],
			Abstract:   stripJATS(work.Abstract),
			LandingURL: work.URL,
			Citations:  work.IsReferencedBy,
			Query:      query.Text,
			Section:    query.Section,
		}
		if len(work.ContainerTitle) > 0 {
			h.Venue = work.ContainerTitle[0]
		}
		for _, au := range work.Author {
			name := strings.TrimSpace(au.Given + " " + au.Family)
			if name != "" {
				h.Authors = append(h.Authors, name)
			}
		}
		if len(work.Issued.DateParts) > 0 && len(work.Issued.DateParts[0]) > 0 {
			h.Year = work.Issued.DateParts[0][0]
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// FetchArtifact resolves the record's DOI and follows redirects requesting a
// PDF. Most paywalled publishers answer with HTML, which the retriever's
// validation rejects; openly hosted PDFs come through.
func (c *Crossref) FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error) {
	if rec.DOI == "" {
		return nil, fmt.Errorf("crossref: record %s has no DOI: %w", rec.ID, types.ErrNotAvailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doiBase+rec.DOI, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := doRequest(ctx, c.client, c.limiter, req, c.cfg.MaxRetries, c.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crossref: reading body: %v: %w", err, types.ErrProviderUnavailable)
	}
	return data, nil
}

// FetchRIS negotiates an RIS citation for a DOI from the resolver. The
// response must start with an RIS type tag; anything else is treated as
// unavailable.
func (c *Crossref) FetchRIS(ctx context.Context, doi string) ([]byte, error) {
	if doi == "" {
		return nil, fmt.Errorf("crossref: empty DOI: %w", types.ErrNotAvailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doiBase+doi, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/x-research-info-systems")

	resp, err := doRequest(ctx, c.client, c.limiter, req, c.cfg.MaxRetries, c.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crossref: reading RIS body: %v: %w", err, types.ErrProviderUnavailable)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "TY ") {
		return nil, fmt.Errorf("crossref: resolver returned non-RIS payload for %s: %w", doi, types.ErrNotAvailable)
	}
	return data, nil
}

// stripJATS removes the JATS XML tags Crossref embeds in abstracts.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Crossref API JSON structures.
type crossrefSearchResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefWork `json:"items"`
}

type crossrefWork struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Abstract       string           `json:"abstract"`
	URL            string           `json:"URL"`
	IsReferencedBy int              `json:"is-referenced-by-count"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}
