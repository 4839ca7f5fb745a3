// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litreport pipeline:
// raw provider hits, canonical paper records, sessions, and stage
// configuration.
package types

import "time"

// ArtifactStatus tracks the retrieval state of a record's full-text artifact.
type ArtifactStatus string

const (
	ArtifactUnresolved  ArtifactStatus = "unresolved"
	ArtifactQueued      ArtifactStatus = "queued"
	ArtifactDownloading ArtifactStatus = "downloading"
	ArtifactDownloaded  ArtifactStatus = "downloaded"
	ArtifactFailed      ArtifactStatus = "failed"
)

// Terminal reports whether the status is a final state that resumed runs
// must not retry.
func (s ArtifactStatus) Terminal() bool {
	return s == ArtifactDownloaded || s == ArtifactFailed
}

// AttemptOutcome classifies the result of one retrieval strategy attempt.
type AttemptOutcome string

const (
	OutcomeSuccess       AttemptOutcome = "success"
	OutcomeNotAvailable  AttemptOutcome = "not_available"
	OutcomeTransient     AttemptOutcome = "transient_failure"
	OutcomeInvalid       AttemptOutcome = "invalid_artifact"
	OutcomeAuthoritative AttemptOutcome = "authoritative_failure"
)

// Attempt is one entry in a record's retrieval log. The log is append-only:
// resumed runs read it to decide what is left to try, and the export surfaces
// it so failed records carry their history instead of vanishing.
type Attempt struct {
	Strategy string         `json:"strategy" yaml:"strategy"`
	Outcome  AttemptOutcome `json:"outcome" yaml:"outcome"`
	Detail   string         `json:"detail,omitempty" yaml:"detail,omitempty"`
	At       time.Time      `json:"at" yaml:"at"`
}

// RawHit is one search result as reported by a single provider, already
// normalized out of the provider's own response shape. Adapters construct
// RawHits; nothing downstream sees provider-specific JSON or XML.
type RawHit struct {
	// Source is the reporting adapter name (e.g. "arxiv", "semantic_scholar").
	Source string `json:"source" yaml:"source"`

	// DOI is the raw DOI as reported, possibly with URL prefix. May be empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is the raw arXiv identifier, possibly versioned. May be empty.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Venue    string   `json:"venue,omitempty" yaml:"venue,omitempty"`

	// PDFURL is a direct open-access PDF location when the provider reports one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// LandingURL is the publisher landing page, used by the browser strategy.
	LandingURL string `json:"landing_url,omitempty" yaml:"landing_url,omitempty"`

	Citations int `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Query and Section record which planned query produced this hit.
	Query   string `json:"query,omitempty" yaml:"query,omitempty"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
}

// Record is the canonical paper record: exactly one exists per canonical id
// within a session, regardless of how many providers reported the paper.
type Record struct {
	// ID is the canonical key: normalized DOI, else normalized arXiv id,
	// else a title+first-author hash. See internal/ident.
	ID string `json:"id" yaml:"id"`

	// Sources lists the adapter names that reported this paper, sorted.
	Sources []string `json:"sources" yaml:"sources"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Venue    string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArxivID    string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	PDFURL     string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	LandingURL string `json:"landing_url,omitempty" yaml:"landing_url,omitempty"`
	Citations  int    `json:"citations,omitempty" yaml:"citations,omitempty"`

	Query   string `json:"query,omitempty" yaml:"query,omitempty"`
	Section string `json:"section,omitempty" yaml:"section,omitempty"`

	// Relevance is nil until the ranking stage has scored the record.
	Relevance *float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`

	ArtifactStatus ArtifactStatus `json:"artifact_status" yaml:"artifact_status"`

	// ArtifactPath is set only when ArtifactStatus is downloaded.
	ArtifactPath string `json:"artifact_path,omitempty" yaml:"artifact_path,omitempty"`

	// RISPath is the citation file coupled to a downloaded PDF, when available.
	RISPath string `json:"ris_path,omitempty" yaml:"ris_path,omitempty"`

	// Attempts is the append-only retrieval log. It is never cleared.
	Attempts []Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Score returns the relevance score, or 0 when the record is unscored.
func (r *Record) Score() float64 {
	if r.Relevance == nil {
		return 0
	}
	return *r.Relevance
}

// FirstAuthor returns the first listed author, or "" when none are known.
func (r *Record) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}
