// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.StoreConfig{DataDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession() *types.Session {
	sess := types.NewSession("sess-1", "graph neural networks", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	sess.Stage = types.StageRanked
	sess.Outline = []types.OutlineSection{{Title: "Background", Description: "d"}}
	sess.Queries = []types.SearchQuery{{Text: "gnn survey", Section: "Background"}}
	score := 0.8
	sess.Records["doi:10.1/a"] = &types.Record{
		ID:             "doi:10.1/a",
		Sources:        []string{"arxiv", "crossref"},
		Title:          "A Study",
		Relevance:      &score,
		ArtifactStatus: types.ArtifactQueued,
		Attempts: []types.Attempt{
			{Strategy: "direct", Outcome: types.OutcomeTransient, At: time.Now().UTC()},
		},
	}
	return sess
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Topic, got.Topic)
	assert.Equal(t, types.StageRanked, got.Stage)
	assert.Equal(t, sess.Outline, got.Outline)
	assert.Equal(t, sess.Queries, got.Queries)
	require.Contains(t, got.Records, "doi:10.1/a")
	rec := got.Records["doi:10.1/a"]
	assert.Equal(t, []string{"arxiv", "crossref"}, rec.Sources)
	assert.InDelta(t, 0.8, rec.Score(), 1e-9)
	require.Len(t, rec.Attempts, 1)
}

func TestLoadMissing(t *testing.T) {
	store := testStore(t)
	got, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveOverwrites(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))

	sess.Stage = types.StageRetrieved
	sess.Records["doi:10.1/b"] = &types.Record{ID: "doi:10.1/b", ArtifactStatus: types.ArtifactUnresolved}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.StageRetrieved, got.Stage)
	assert.Len(t, got.Records, 2)
}

func TestSaveRevertsDownloadingToQueued(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sess := sampleSession()
	sess.Records["doi:10.1/a"].ArtifactStatus = types.ArtifactDownloading
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, types.ArtifactQueued, got.Records["doi:10.1/a"].ArtifactStatus)
	// The in-memory session reflects the revert too.
	assert.Equal(t, types.ArtifactQueued, sess.Records["doi:10.1/a"].ArtifactStatus)
}

func TestLoadCorruptPayloadIsAbsent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	// Truncate the stored payload behind the checksum's back.
	_, err := store.db.Exec(`UPDATE sessions SET payload = substr(payload, 1, 20) WHERE id = 'sess-1'`)
	require.NoError(t, err)

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadChecksumMismatchIsAbsent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	_, err := store.db.Exec(`UPDATE sessions SET checksum = 'deadbeef' WHERE id = 'sess-1'`)
	require.NoError(t, err)

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListOrderedByUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	older := types.NewSession("old", "t1", time.Now())
	newer := types.NewSession("new", "t2", time.Now())

	store.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, store.Save(ctx, older))
	store.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, store.Save(ctx, newer))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Equal(t, "t2", list[0].Topic)
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Unknown ids are fine.
	require.NoError(t, store.Delete(ctx, "never-existed"))
}
