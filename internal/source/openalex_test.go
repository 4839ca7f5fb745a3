// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/pkg/types"
)

const openalexListJSON = `{
  "results": [
    {
      "id": "https://openalex.org/W1",
      "doi": "https://doi.org/10.1000/xyz",
      "display_name": "Homomorphic Encryption Survey",
      "publication_year": 2021,
      "cited_by_count": 99,
      "abstract_inverted_index": {"We": [0], "survey": [1], "encryption.": [2]},
      "authorships": [{"author": {"display_name": "Carol White"}}],
      "primary_location": {"source": {"display_name": "ACM Computing Surveys"}},
      "best_oa_location": {"pdf_url": "https://host.example/he.pdf"}
    }
  ]
}`

func TestOpenAlexSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		fmt.Fprint(w, openalexListJSON)
	}))
	defer ts.Close()

	prev := openalexAPIBase
	openalexAPIBase = ts.URL
	defer func() { openalexAPIBase = prev }()

	o := NewOpenAlex(testCfg(), ts.Client())
	hits, err := o.Search(context.Background(), types.SearchQuery{Text: "homomorphic encryption"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, "openalex", h.Source)
	assert.Equal(t, "https://doi.org/10.1000/xyz", h.DOI)
	assert.Equal(t, "Homomorphic Encryption Survey", h.Title)
	assert.Equal(t, "We survey encryption.", h.Abstract)
	assert.Equal(t, "ACM Computing Surveys", h.Venue)
	assert.Equal(t, "https://host.example/he.pdf", h.PDFURL)
	assert.Equal(t, 99, h.Citations)
}

func TestOpenAlexResolvePDF(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/doi:"))
		fmt.Fprint(w, `{"best_oa_location": {"pdf_url": "https://host.example/oa.pdf"}}`)
	}))
	defer ts.Close()

	prev := openalexAPIBase
	openalexAPIBase = ts.URL
	defer func() { openalexAPIBase = prev }()

	o := NewOpenAlex(testCfg(), ts.Client())
	url, err := o.ResolvePDF(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://host.example/oa.pdf", url)
}

func TestOpenAlexResolvePDFNoLocation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"open_access": {}}`)
	}))
	defer ts.Close()

	prev := openalexAPIBase
	openalexAPIBase = ts.URL
	defer func() { openalexAPIBase = prev }()

	o := NewOpenAlex(testCfg(), ts.Client())
	url, err := o.ResolvePDF(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestOpenAlexFetchArtifactNoOA(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer ts.Close()

	prev := openalexAPIBase
	openalexAPIBase = ts.URL
	defer func() { openalexAPIBase = prev }()

	o := NewOpenAlex(testCfg(), ts.Client())
	_, err := o.FetchArtifact(context.Background(), &types.Record{ID: "doi:10.1000/xyz", DOI: "10.1000/xyz"})
	assert.ErrorIs(t, err, types.ErrNotAvailable)
}

func TestInvertAbstract(t *testing.T) {
	tests := []struct {
		name string
		in   map[string][]int
		want string
	}{
		{"empty", nil, ""},
		{"ordered", map[string][]int{"b": {1}, "a": {0}}, "a b"},
		{"repeated word", map[string][]int{"the": {0, 2}, "cat": {1}}, "the cat the"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := invertAbstract(tt.in); got != tt.want {
				t.Errorf("invertAbstract = %q, want %q", got, tt.want)
			}
		})
	}
}
