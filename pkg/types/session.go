// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage identifies the last completed pipeline stage for a session. Resumed
// runs start at the first stage whose output is missing.
type Stage string

const (
	StageCreated    Stage = "created"
	StagePlanned    Stage = "planned"
	StageAggregated Stage = "aggregated"
	StageRanked     Stage = "ranked"
	StageRetrieved  Stage = "retrieved"
)

// stageOrder maps stages to their position in the pipeline.
var stageOrder = map[Stage]int{
	StageCreated:    0,
	StagePlanned:    1,
	StageAggregated: 2,
	StageRanked:     3,
	StageRetrieved:  4,
}

// AtLeast reports whether s is at or past other in pipeline order.
func (s Stage) AtLeast(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// OutlineSection is one section of the planned report outline.
type OutlineSection struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SearchQuery is one planned query. Priority determines execution order when
// adapters are rate limited; lower values run first.
type SearchQuery struct {
	Text string `json:"text" yaml:"text"`

	// SourceHint optionally restricts the query to one adapter. Empty means
	// all enabled adapters.
	SourceHint string `json:"source_hint,omitempty" yaml:"source_hint,omitempty"`

	// Section is the outline section this query was derived from.
	Section string `json:"section,omitempty" yaml:"section,omitempty"`

	Priority int `json:"priority" yaml:"priority"`
}

// Session is the persisted unit of work for one research run. It owns the
// topic, outline, queries, and record map for the lifetime of the run, and is
// saved after every stage transition so a crash loses at most in-flight work.
type Session struct {
	ID      string           `json:"id" yaml:"id"`
	Topic   string           `json:"topic" yaml:"topic"`
	Outline []OutlineSection `json:"outline,omitempty" yaml:"outline,omitempty"`
	Queries []SearchQuery    `json:"queries,omitempty" yaml:"queries,omitempty"`

	// Records maps canonical id to the single record for that paper.
	Records map[string]*Record `json:"records" yaml:"records"`

	Stage     Stage     `json:"stage" yaml:"stage"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewSession creates an empty session for a topic.
func NewSession(id, topic string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Topic:     topic,
		Records:   make(map[string]*Record),
		Stage:     StageCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PendingRetrieval reports whether any record still has non-terminal
// artifact status, meaning the retrieval stage has unresolved work.
func (s *Session) PendingRetrieval() bool {
	for _, r := range s.Records {
		if !r.ArtifactStatus.Terminal() {
			return true
		}
	}
	return false
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Topic     string    `json:"topic" yaml:"topic"`
	Stage     Stage     `json:"stage" yaml:"stage"`
	Records   int       `json:"records" yaml:"records"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
