// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/internal/source"
	"github.com/pdiddy/litreport/pkg/types"
)

// fakeAdapter returns canned hits per query text.
type fakeAdapter struct {
	name string
	hits map[string][]types.RawHit
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, q types.SearchQuery, page int) ([]types.RawHit, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[q.Text], nil
}

func (f *fakeAdapter) FetchArtifact(ctx context.Context, rec *types.Record) ([]byte, error) {
	return nil, types.ErrNotAvailable
}

func newTestSession() *types.Session {
	return types.NewSession("sess-1", "topic", time.Now())
}

func adapterSlice(adapters ...*fakeAdapter) []source.Adapter {
	out := make([]source.Adapter, len(adapters))
	for i, a := range adapters {
		out[i] = a
	}
	return out
}

func TestFoldMergesAcrossAdapters(t *testing.T) {
	a := New(nil, 1, zerolog.Nop())
	sess := newTestSession()

	arxivHit := types.RawHit{
		Source:  "arxiv",
		DOI:     "10.1000/xyz",
		Title:   "A Study",
		Authors: []string{"Ada Lovelace"},
		PDFURL:  "https://arxiv.org/pdf/2101.00001",
	}
	crossrefHit := types.RawHit{
		Source:    "crossref",
		DOI:       "https://doi.org/10.1000/XYZ",
		Title:     "A Study",
		Venue:     "Journal of Studies",
		Year:      2021,
		Citations: 12,
	}

	a.Fold(sess, []types.RawHit{arxivHit})
	a.Fold(sess, []types.RawHit{crossrefHit})

	require.Len(t, sess.Records, 1)
	rec := sess.Records["doi:10.1000/xyz"]
	require.NotNil(t, rec)
	assert.Equal(t, []string{"arxiv", "crossref"}, rec.Sources)
	assert.Equal(t, "A Study", rec.Title)
	assert.Equal(t, "Journal of Studies", rec.Venue)
	assert.Equal(t, 2021, rec.Year)
	assert.Equal(t, 12, rec.Citations)
	assert.Equal(t, "https://arxiv.org/pdf/2101.00001", rec.PDFURL)
	assert.Equal(t, types.ArtifactUnresolved, rec.ArtifactStatus)
}

func TestFoldOrderIndependent(t *testing.T) {
	hits := []types.RawHit{
		{Source: "arxiv", ArxivID: "2101.00001v2", Title: "Paper", Authors: []string{"X"}},
		{Source: "semantic_scholar", ArxivID: "2101.00001", Title: "Paper", Citations: 5, Year: 2021},
		{Source: "openalex", DOI: "10.48550/arXiv.2101.00001", Title: "Paper", Venue: "arXiv"},
	}

	fold := func(order []int) *types.Session {
		a := New(nil, 1, zerolog.Nop())
		sess := newTestSession()
		for _, i := range order {
			a.Fold(sess, []types.RawHit{hits[i]})
		}
		return sess
	}

	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}
	var first *types.Record
	for _, p := range perms {
		sess := fold(p)
		require.Len(t, sess.Records, 1, "permutation %v", p)
		rec := sess.Records["arxiv:2101.00001"]
		require.NotNil(t, rec, "permutation %v", p)
		if first == nil {
			first = rec
			continue
		}
		assert.Equal(t, first.Sources, rec.Sources)
		assert.Equal(t, first.Title, rec.Title)
		assert.Equal(t, first.Year, rec.Year)
		assert.Equal(t, first.Venue, rec.Venue)
		assert.Equal(t, first.Citations, rec.Citations)
	}
}

func TestFoldIdempotent(t *testing.T) {
	a := New(nil, 1, zerolog.Nop())
	sess := newTestSession()
	hit := types.RawHit{Source: "arxiv", ArxivID: "2101.00001", Title: "Paper", Citations: 3}

	a.Fold(sess, []types.RawHit{hit})
	a.Fold(sess, []types.RawHit{hit})

	require.Len(t, sess.Records, 1)
	rec := sess.Records["arxiv:2101.00001"]
	assert.Equal(t, []string{"arxiv"}, rec.Sources)
	assert.Equal(t, 3, rec.Citations)
}

func TestFoldConcurrent(t *testing.T) {
	a := New(nil, 1, zerolog.Nop())
	sess := newTestSession()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				a.Fold(sess, []types.RawHit{
					{Source: fmt.Sprintf("src%d", g%3), DOI: fmt.Sprintf("10.1000/p%d", i%10), Title: "T"},
				})
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, sess.Records, 10)
	for _, rec := range sess.Records {
		assert.Equal(t, []string{"src0", "src1", "src2"}, rec.Sources)
	}
}

func TestRunFansOutAndMerges(t *testing.T) {
	hit := func(src string) []types.RawHit {
		return []types.RawHit{{Source: src, DOI: "10.1/a", Title: "Shared"}}
	}
	a1 := &fakeAdapter{name: "arxiv", hits: map[string][]types.RawHit{"q1": hit("arxiv")}}
	a2 := &fakeAdapter{name: "crossref", hits: map[string][]types.RawHit{"q1": hit("crossref"), "q2": hit("crossref")}}

	sess := newTestSession()
	sess.Queries = []types.SearchQuery{{Text: "q1"}, {Text: "q2"}}

	run := New(adapterSlice(a1, a2), 2, zerolog.Nop())
	require.NoError(t, run.Run(context.Background(), sess))

	assert.Equal(t, types.StageAggregated, sess.Stage)
	require.Len(t, sess.Records, 1)
	assert.Equal(t, []string{"arxiv", "crossref"}, sess.Records["doi:10.1/a"].Sources)
	assert.Equal(t, 2, a1.calls)
	assert.Equal(t, 2, a2.calls)
}

func TestRunHonorsSourceHint(t *testing.T) {
	a1 := &fakeAdapter{name: "arxiv", hits: map[string][]types.RawHit{}}
	a2 := &fakeAdapter{name: "crossref", hits: map[string][]types.RawHit{}}

	sess := newTestSession()
	sess.Queries = []types.SearchQuery{{Text: "q", SourceHint: "arxiv"}}

	require.NoError(t, New(adapterSlice(a1, a2), 2, zerolog.Nop()).Run(context.Background(), sess))
	assert.Equal(t, 1, a1.calls)
	assert.Equal(t, 0, a2.calls)
}

func TestRunSurvivesAdapterFailure(t *testing.T) {
	good := &fakeAdapter{name: "arxiv", hits: map[string][]types.RawHit{
		"q": {{Source: "arxiv", ArxivID: "2101.00001", Title: "P"}},
	}}
	bad := &fakeAdapter{name: "crossref", err: types.ErrProviderUnavailable}

	sess := newTestSession()
	sess.Queries = []types.SearchQuery{{Text: "q"}}

	require.NoError(t, New(adapterSlice(good, bad), 2, zerolog.Nop()).Run(context.Background(), sess))
	assert.Len(t, sess.Records, 1)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := newTestSession()
	sess.Queries = []types.SearchQuery{{Text: "q"}}
	ad := &fakeAdapter{name: "arxiv"}

	err := New(adapterSlice(ad), 1, zerolog.Nop()).Run(ctx, sess)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, types.StageAggregated, sess.Stage)
}

func TestFoldSkipsEmptyHits(t *testing.T) {
	a := New(nil, 1, zerolog.Nop())
	sess := newTestSession()
	a.Fold(sess, []types.RawHit{{Source: "arxiv"}})
	assert.Empty(t, sess.Records)
}
