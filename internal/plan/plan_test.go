// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreport/internal/llm"
	"github.com/pdiddy/litreport/pkg/types"
)

func testPlanner(client llm.Client) *Planner {
	cfg := types.PlannerConfig{QueriesPerSection: 2, MaxSections: 4}
	return New(client, cfg, 0, zerolog.Nop())
}

func newSession(topic string) *types.Session {
	return types.NewSession("sess-1", topic, time.Now())
}

func TestPlanHappyPath(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"sections": [
			{"title": "Background", "description": "History of the field."},
			{"title": "Methods", "description": "Core techniques."}
		]}`,
		`{"section_queries": {
			"Background": ["topic history survey", "topic origins"],
			"Methods": ["topic methods benchmark", "topic evaluation"]
		}}`,
	}}

	sess := newSession("graph neural networks")
	require.NoError(t, testPlanner(mock).Plan(context.Background(), sess))

	assert.Equal(t, types.StagePlanned, sess.Stage)
	require.Len(t, sess.Outline, 2)
	assert.Equal(t, "Background", sess.Outline[0].Title)

	require.Len(t, sess.Queries, 4)
	// Queries follow outline order with increasing priority.
	assert.Equal(t, "topic history survey", sess.Queries[0].Text)
	assert.Equal(t, "Background", sess.Queries[0].Section)
	assert.Equal(t, "Methods", sess.Queries[2].Section)
	for i, q := range sess.Queries {
		assert.Equal(t, i, q.Priority)
	}
	assert.Equal(t, 2, mock.Calls)
}

func TestPlanFencedAndNoisyOutput(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		"Here is the outline:\n```json\n{\"sections\": [{\"title\": \"Overview\", \"description\": \"d\"}]}\n```",
		"```\n{\"section_queries\": {\"Overview\": [\"q one\", \"q two\", \"q three\"]}}\n```\nHope this helps!",
	}}

	sess := newSession("topic")
	require.NoError(t, testPlanner(mock).Plan(context.Background(), sess))

	require.Len(t, sess.Outline, 1)
	// Per-section cap applies even when the model over-produces.
	assert.Len(t, sess.Queries, 2)
}

func TestPlanLLMUnavailableFallsBack(t *testing.T) {
	mock := &llm.MockClient{Err: types.ErrProviderUnavailable}

	sess := newSession("quantum error correction")
	require.NoError(t, testPlanner(mock).Plan(context.Background(), sess))

	assert.Equal(t, types.StagePlanned, sess.Stage)
	require.NotEmpty(t, sess.Outline)
	require.NotEmpty(t, sess.Queries)
	// The topic itself is always the first fallback query.
	assert.Equal(t, "quantum error correction", sess.Queries[0].Text)
}

func TestPlanMalformedQueriesFallsBack(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"sections": [{"title": "Background", "description": "machine learning for protein folding structures"}]}`,
		`I am unable to produce queries right now.`,
	}}

	sess := newSession("protein folding")
	require.NoError(t, testPlanner(mock).Plan(context.Background(), sess))

	require.Len(t, sess.Outline, 1)
	require.NotEmpty(t, sess.Queries)
	assert.Equal(t, "protein folding", sess.Queries[0].Text)
	// Section queries carry provenance.
	found := false
	for _, q := range sess.Queries[1:] {
		if q.Section == "Background" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPlanEmptyTopic(t *testing.T) {
	sess := newSession("   ")
	err := testPlanner(&llm.MockClient{}).Plan(context.Background(), sess)
	assert.Error(t, err)
}

func TestPlanOutlineCapped(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"sections": [
			{"title": "A"}, {"title": "B"}, {"title": "C"},
			{"title": "D"}, {"title": "E"}, {"title": "F"}
		]}`,
		`{"section_queries": {"A": ["qa"], "B": ["qb"], "C": ["qc"], "D": ["qd"]}}`,
	}}

	p := New(mock, types.PlannerConfig{QueriesPerSection: 2, MaxSections: 3}, 0, zerolog.Nop())
	sess := newSession("topic")
	require.NoError(t, p.Plan(context.Background(), sess))

	assert.Len(t, sess.Outline, 3)
	// Queries for truncated sections are dropped with the section.
	for _, q := range sess.Queries {
		assert.NotEqual(t, "D", q.Section)
	}
}

func TestFallbackQueriesAlwaysNonEmpty(t *testing.T) {
	queries := FallbackQueries("t", nil, 4)
	require.Len(t, queries, 1)
	assert.Equal(t, "t", queries[0].Text)

	queries = FallbackQueries("deep learning", []types.OutlineSection{
		{Title: "Background", Description: "the history of neural networks and their early applications"},
	}, 3)
	require.NotEmpty(t, queries)
	assert.Equal(t, "deep learning", queries[0].Text)
	// No duplicates regardless of description content.
	seen := map[string]bool{}
	for _, q := range queries {
		assert.False(t, seen[q.Text], "duplicate query %q", q.Text)
		seen[q.Text] = true
	}
}

func TestSortQueries(t *testing.T) {
	queries := []types.SearchQuery{
		{Text: "c", Priority: 2},
		{Text: "a", Priority: 0},
		{Text: "b", Priority: 1},
	}
	SortQueries(queries)
	assert.Equal(t, "a", queries[0].Text)
	assert.Equal(t, "c", queries[2].Text)
}
