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

// openalexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openalexAPIBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex works API. Beyond search it resolves
// open-access PDF locations for DOIs, which makes it the workhorse of the
// direct retrieval strategy.
type OpenAlex struct {
	cfg     types.SourceConfig
	client  *http.Client
	limiter *limiter
}

// NewOpenAlex creates the OpenAlex adapter.
func NewOpenAlex(cfg types.SourceConfig, client *http.Client) *OpenAlex {
	return &OpenAlex{cfg: cfg, client: client, limiter: newLimiter(cfg.RequestsPerSecond, cfg.Burst)}
}

// Name returns the adapter identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Search queries the works API for one page of results.
func (o *OpenAlex) Search(ctx context.Context, query types.SearchQuery, page int) ([]types.RawHit, error) {
	max := o.cfg.MaxResults
	if max <= 0 {
		max = 20
	}

	params := url.Values{
		"search":   {query.Text},
		"per-page": {fmt.Sprintf("%d", max)},
		"page":     {fmt.Sprintf("%d", page+1)}, // OpenAlex pages are 1-based.
	}
	if o.cfg.OpenAlexEmail != "" {
		params.Set("mailto", o.cfg.OpenAlexEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openalexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.cfg.UserAgent)

	resp, err := doRequest(ctx, o.client, o.limiter, req, o.cfg.MaxRetries, o.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var or openalexListResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("openalex: parsing response: %v: %w", err, types.ErrProviderUnavailable)
	}

	var hits []types.RawHit
	for _, work := range or.Results {
		h := openalexWorkToHit(work, o.Name())
		h.Query = query.Text
		h.Section = query.Section
		hits = append(hits, h)
	}
	return hits, nil
}

// ResolvePDF looks up a DOI and returns the best open-access PDF URL OpenAlex
// knows, or "" when the work has none.
func (o *OpenAlex) ResolvePDF(ctx context.Context, doi string) (string, error) {
	if doi == "" {
		return "", fmt.Errorf("openalex: empty DOI: %w", types.ErrNotAvailable)
	}

	reqURL := openalexAPIBase + "/doi:" + url.PathEscape(doi)
	if o.cfg.OpenAlexEmail != "" {
		reqURL += "?mailto=" + url.QueryEscape(o.cfg.OpenAlexEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.cfg.UserAgent)

	resp, err := doRequest(ctx, o.client, o.limiter, req, o.cfg.MaxRetries, o.Name())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var work openalexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return "", fmt.Errorf("openalex: parsing work: %v: %w", err, types.ErrProviderUnavailable)
	}

	if work.BestOALocation != nil && work.BestOALocation.PdfURL != "" {
		return work.BestOALocation.PdfURL, nil
	}
	if work.OpenAccess.OAUrl != "" {
		return work.OpenAccess.OAUrl, nil
	}
	return "", nil
}

// FetchArtifact resolves the record's DOI to an open-access PDF location and
// downloads it. A work with no open-access location is authoritatively
// unavailable here.
func (o *OpenAlex) FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error) {
	pdfURL := rec.PDFURL
	if pdfURL == "" {
		resolved, err := o.ResolvePDF(ctx, rec.DOI)
		if err != nil {
			return nil, err
		}
		if resolved == "" {
			return nil, fmt.Errorf("openalex: no open-access location for %s: %w", rec.ID, types.ErrNotAvailable)
		}
		pdfURL = resolved
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := doRequest(ctx, o.client, o.limiter, req, o.cfg.MaxRetries, o.Name())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openalex: reading PDF body: %v: %w", err, types.ErrProviderUnavailable)
	}
	return data, nil
}

// openalexWorkToHit normalizes one OpenAlex work into a RawHit.
func openalexWorkToHit(work openalexWork, source string) types.RawHit {
	h := types.RawHit{
		Source:     source,
		DOI:        work.DOI,
		Title:      work.DisplayName,
		Year:       work.PublicationYear,
		Citations:  work.CitedByCount,
		LandingURL: work.ID,
		Abstract:   invertAbstract(work.AbstractInvertedIndex),
	}
	if work.PrimaryLocation != nil && work.PrimaryLocation.SourceInfo != nil {
		h.Venue = work.PrimaryLocation.SourceInfo.DisplayName
	}
	if work.BestOALocation != nil {
		h.PDFURL = work.BestOALocation.PdfURL
	}
	for _, a := range work.Authorships {
		if a.Author.DisplayName != "" {
			h.Authors = append(h.Authors, a.Author.DisplayName)
		}
	}
	return h
}

// invertAbstract reconstructs text from the inverted index OpenAlex uses in
// place of plain abstracts.
func invertAbstract(idx map[string][]int) string {
	if len(idx) == 0 {
		return ""
	}
	maxPos := -1
	for _, positions := range idx {
		for _, p := range positions {
			if p > maxPos {
				maxPos = p
			}
		}
	}
	words := make([]string, maxPos+1)
	for word, positions := range idx {
		for _, p := range positions {
			if p >= 0 && p <= maxPos {
				words[p] = word
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}

// OpenAlex API JSON structures.
type openalexListResponse struct {
	Results []openalexWork `json:"results"`
}

type openalexWork struct {
	ID                    string              `json:"id"`
	DOI                   string              `json:"doi"`
	DisplayName           string              `json:"display_name"`
	PublicationYear       int                 `json:"publication_year"`
	CitedByCount          int                 `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int    `json:"abstract_inverted_index"`
	Authorships           []openalexAuthorship `json:"authorships"`
	PrimaryLocation       *openalexLocation   `json:"primary_location"`
	BestOALocation        *openalexLocation   `json:"best_oa_location"`
	OpenAccess            openalexOpenAccess  `json:"open_access"`
}

type openalexAuthorship struct {
	Author openalexAuthor `json:"author"`
}

type openalexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openalexLocation struct {
	PdfURL     string          `json:"pdf_url"`
	SourceInfo *openalexSource `json:"source"`
}

type openalexSource struct {
	DisplayName string `json:"display_name"`
}

type openalexOpenAccess struct {
	OAUrl string `json:"oa_url"`
}
