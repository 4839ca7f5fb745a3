// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Federated  Learning for
  Healthcare</title>
    <summary> Privacy-preserving training across hospitals. </summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/malformed</id>
    <title>Broken entry</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "search_query=")
		fmt.Fprint(w, arxivFeedXML)
	}))
	defer ts.Close()

	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	a := NewArxiv(testCfg(), ts.Client())
	hits, err := a.Search(context.Background(), types.SearchQuery{Text: "federated learning", Section: "Background"}, 0)
	require.NoError(t, err)

	// The entry with an unparseable id is dropped.
	require.Len(t, hits, 1)
	h := hits[0]
	assert.Equal(t, "arxiv", h.Source)
	assert.Equal(t, "2301.07041", h.ArxivID)
	assert.Equal(t, "Federated Learning for Healthcare", h.Title)
	assert.Equal(t, "Privacy-preserving training across hospitals.", h.Abstract)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, h.Authors)
	assert.Equal(t, 2023, h.Year)
	assert.Equal(t, "federated learning", h.Query)
	assert.Equal(t, "Background", h.Section)
	assert.NotEmpty(t, h.PDFURL)
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	a := NewArxiv(testCfg(), http.DefaultClient)
	hits, err := a.Search(context.Background(), types.SearchQuery{Text: "   "}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestArxivFetchArtifact(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2301.07041", r.URL.Path)
		w.Write([]byte("%PDF-1.5 body"))
	}))
	defer ts.Close()

	prev := arxivPDFBase
	arxivPDFBase = ts.URL + "/"
	defer func() { arxivPDFBase = prev }()

	a := NewArxiv(testCfg(), ts.Client())
	data, err := a.FetchArtifact(context.Background(), &types.Record{ID: "arxiv:2301.07041", ArxivID: "2301.07041"})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.5 body", string(data))
}

func TestArxivFetchArtifactNoID(t *testing.T) {
	a := NewArxiv(testCfg(), http.DefaultClient)
	_, err := a.FetchArtifact(context.Background(), &types.Record{ID: "doi:10.1000/xyz"})
	assert.ErrorIs(t, err, types.ErrNotAvailable)
}

func TestArxivSearchProviderDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	prev := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = prev }()

	a := NewArxiv(testCfg(), ts.Client())
	_, err := a.Search(context.Background(), types.SearchQuery{Text: "q"}, 0)
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
}
