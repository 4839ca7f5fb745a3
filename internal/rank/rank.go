// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores aggregated records for relevance to the session topic.
// Each record gets a weighted blend of a lexical-overlap heuristic and a
// model judgment; batches where the model fails fall back to the heuristic
// alone, so ranking completes even with no model at all.
package rank

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/internal/llm"
	"github.com/pdiddy/litreport/pkg/types"
)

// Ranker assigns relevance scores and orders records.
type Ranker struct {
	client  llm.Client
	cfg     types.RankConfig
	retries int
	log     zerolog.Logger
}

// New builds a Ranker. A nil client disables model judgment entirely; scores
// then come from the heuristic alone at full weight.
func New(client llm.Client, cfg types.RankConfig, llmRetries int, log zerolog.Logger) *Ranker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.HeuristicWeight == 0 && cfg.LLMWeight == 0 {
		cfg.HeuristicWeight = 0.4
		cfg.LLMWeight = 0.6
	}
	if llmRetries < 0 {
		llmRetries = 0
	}
	return &Ranker{client: client, cfg: cfg, retries: llmRetries, log: log}
}

// Run scores every record in the session and advances the stage. Records
// judged irrelevant by the model keep their heuristic component, so ordering
// still separates them; nothing is dropped.
func (r *Ranker) Run(ctx context.Context, sess *types.Session) error {
	records := Ordered(sess.Records)

	judgments := make(map[string]*judgment, len(records))
	if r.client != nil {
		for start := 0; start < len(records); start += r.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := start + r.cfg.BatchSize
			if end > len(records) {
				end = len(records)
			}
			batch := records[start:end]
			got, err := r.judgeBatch(ctx, sess.Topic, batch)
			if err != nil {
				r.log.Warn().Err(err).
					Int("batch_start", start).
					Int("batch_size", len(batch)).
					Msg("model judgment failed, batch falls back to heuristic")
				continue
			}
			for id, j := range got {
				judgments[id] = j
			}
		}
	}

	for _, rec := range records {
		h := Heuristic(sess.Topic, rec)
		score := h
		if j, ok := judgments[rec.ID]; ok {
			model := j.Score / 100
			if !j.Relevant {
				model = 0
			}
			score = r.cfg.HeuristicWeight*h + r.cfg.LLMWeight*model
		}
		s := score
		rec.Relevance = &s
	}

	sess.Stage = types.StageRanked
	r.log.Info().
		Int("records", len(records)).
		Int("judged", len(judgments)).
		Msg("ranking complete")
	return nil
}

// Heuristic returns the lexical overlap between the topic and the record's
// title plus abstract, in [0,1]. It is deterministic and model-free.
func Heuristic(topic string, rec *types.Record) float64 {
	topicTerms := terms(topic)
	if len(topicTerms) == 0 {
		return 0
	}
	docTerms := make(map[string]bool)
	for t := range terms(rec.Title) {
		docTerms[t] = true
	}
	for t := range terms(rec.Abstract) {
		docTerms[t] = true
	}

	matched := 0
	for t := range topicTerms {
		if docTerms[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(topicTerms))
}

func terms(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) < 3 {
			continue
		}
		out[w] = true
	}
	return out
}

// Ordered returns the session's records sorted by score descending, then by
// source count descending, then by id ascending. Before ranking all scores
// are zero and the ordering is still deterministic.
func Ordered(records map[string]*types.Record) []*types.Record {
	out := make([]*types.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si != sj {
			return si > sj
		}
		if len(out[i].Sources) != len(out[j].Sources) {
			return len(out[i].Sources) > len(out[j].Sources)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
