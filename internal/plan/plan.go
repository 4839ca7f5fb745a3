// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan turns a free-text research topic into a report outline and a
// set of search queries. It asks the model twice (outline first, then queries
// per section) and falls back to deterministic keyword queries when the model
// is unreachable or keeps producing unusable output, so planning always
// yields at least one query.
package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/internal/llm"
	"github.com/pdiddy/litreport/pkg/types"
)

// Planner generates the outline and query plan for a topic.
type Planner struct {
	client llm.Client
	cfg    types.PlannerConfig
	// retries bounds model attempts per prompt before falling back.
	retries int
	log     zerolog.Logger
}

// New builds a Planner. llmRetries comes from the LLM config so planning and
// ranking share one retry policy.
func New(client llm.Client, cfg types.PlannerConfig, llmRetries int, log zerolog.Logger) *Planner {
	if cfg.QueriesPerSection <= 0 {
		cfg.QueriesPerSection = 4
	}
	if cfg.MaxSections <= 0 {
		cfg.MaxSections = 8
	}
	if llmRetries < 0 {
		llmRetries = 0
	}
	return &Planner{client: client, cfg: cfg, retries: llmRetries, log: log}
}

// Plan fills sess.Outline and sess.Queries and advances the stage. Queries
// carry section provenance and a stable priority order.
func (p *Planner) Plan(ctx context.Context, sess *types.Session) error {
	if strings.TrimSpace(sess.Topic) == "" {
		return fmt.Errorf("session %s has an empty topic", sess.ID)
	}

	outline, err := p.outline(ctx, sess.Topic)
	if err != nil {
		p.log.Warn().Err(err).Msg("outline generation failed, using single-section fallback")
		outline = []types.OutlineSection{{Title: sess.Topic, Description: "Overview of " + sess.Topic}}
	}
	if len(outline) > p.cfg.MaxSections {
		outline = outline[:p.cfg.MaxSections]
	}

	queries, err := p.sectionQueries(ctx, sess.Topic, outline)
	if err != nil {
		p.log.Warn().Err(err).Msg("query generation failed, using keyword fallback")
		queries = FallbackQueries(sess.Topic, outline, p.cfg.QueriesPerSection)
	}
	if len(queries) == 0 {
		queries = FallbackQueries(sess.Topic, outline, p.cfg.QueriesPerSection)
	}

	sess.Outline = outline
	sess.Queries = queries
	sess.Stage = types.StagePlanned
	p.log.Info().
		Int("sections", len(outline)).
		Int("queries", len(queries)).
		Msg("plan complete")
	return nil
}

// outlinePayload mirrors the JSON the outline prompt asks for.
type outlinePayload struct {
	Sections []types.OutlineSection `json:"sections"`
}

func (p *Planner) outline(ctx context.Context, topic string) ([]types.OutlineSection, error) {
	prompt, err := renderOutlinePrompt(topic, p.cfg.MaxSections)
	if err != nil {
		return nil, err
	}

	raw, err := llm.GenerateWithRetry(ctx, p.client, prompt, llm.Options{}, p.retries)
	if err != nil {
		return nil, fmt.Errorf("generating outline: %w", err)
	}

	var payload outlinePayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing outline: %w", err)
	}

	var sections []types.OutlineSection
	for _, s := range payload.Sections {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		sections = append(sections, types.OutlineSection{
			Title:       strings.TrimSpace(s.Title),
			Description: strings.TrimSpace(s.Description),
		})
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("outline had no usable sections: %w", types.ErrMalformedOutput)
	}
	return sections, nil
}

// queriesPayload mirrors the JSON the query prompt asks for: a map from
// section title to query strings.
type queriesPayload struct {
	SectionQueries map[string][]string `json:"section_queries"`
}

func (p *Planner) sectionQueries(ctx context.Context, topic string, outline []types.OutlineSection) ([]types.SearchQuery, error) {
	prompt, err := renderQueriesPrompt(topic, outline, p.cfg.QueriesPerSection)
	if err != nil {
		return nil, err
	}

	raw, err := llm.GenerateWithRetry(ctx, p.client, prompt, llm.Options{}, p.retries)
	if err != nil {
		return nil, fmt.Errorf("generating queries: %w", err)
	}

	var payload queriesPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing queries: %w", err)
	}

	// Walk the outline, not the map, so query order is deterministic.
	var queries []types.SearchQuery
	seen := make(map[string]bool)
	priority := 0
	for _, section := range outline {
		texts := payload.SectionQueries[section.Title]
		if len(texts) > p.cfg.QueriesPerSection {
			texts = texts[:p.cfg.QueriesPerSection]
		}
		for _, text := range texts {
			text = strings.TrimSpace(text)
			if text == "" || seen[strings.ToLower(text)] {
				continue
			}
			seen[strings.ToLower(text)] = true
			queries = append(queries, types.SearchQuery{
				Text:     text,
				Section:  section.Title,
				Priority: priority,
			})
			priority++
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries for any outline section: %w", types.ErrMalformedOutput)
	}
	return queries, nil
}

// FallbackQueries derives queries from the topic and outline alone. The topic
// itself is always a query, followed by topic+section keyword combinations,
// so the plan survives a completely unavailable model.
func FallbackQueries(topic string, outline []types.OutlineSection, perSection int) []types.SearchQuery {
	var queries []types.SearchQuery
	seen := map[string]bool{}
	add := func(text, section string) {
		text = strings.TrimSpace(text)
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			return
		}
		seen[key] = true
		queries = append(queries, types.SearchQuery{Text: text, Section: section, Priority: len(queries)})
	}

	add(topic, "")
	for _, section := range outline {
		add(topic+" "+section.Title, section.Title)
		words := keywords(section.Description)
		// Chunk description keywords into short phrases.
		for i := 0; i < len(words) && i/3 < perSection-1; i += 3 {
			end := i + 3
			if end > len(words) {
				end = len(words)
			}
			add(topic+" "+strings.Join(words[i:end], " "), section.Title)
		}
	}
	return queries
}

// fallbackStopWords are function words excluded from keyword queries.
var fallbackStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"to": true, "with": true, "this": true, "these": true, "how": true,
	"what": true, "which": true, "their": true, "its": true,
}

func keywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) < 3 || fallbackStopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// SortQueries orders queries by priority. Aggregation consumes them in this
// order so higher-priority queries hit rate-limited adapters first.
func SortQueries(queries []types.SearchQuery) {
	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Priority < queries[j].Priority
	})
}
