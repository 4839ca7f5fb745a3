// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/litreport/internal/llm"
	"github.com/pdiddy/litreport/pkg/types"
)

// judgePromptTmpl asks the model to judge a batch of candidate papers
// against the topic, returning strict JSON keyed by the ids it was given.
var judgePromptTmpl = template.Must(template.New("judge").Parse(`You are assessing whether academic papers are relevant to a literature report topic.

Topic: {{.Topic}}

For each paper below, judge its relevance to the topic:
- relevant: true if the paper should appear in the report, false otherwise
- score: an integer 0-100, where 100 means the paper is centrally about the topic

Respond with a JSON object containing a "results" array. Each element must have "id" (copied exactly from the paper), "relevant", and "score". Do not include any text outside the JSON object.

Example response:
{"results": [{"id": "doi:10.1000/xyz", "relevant": true, "score": 85}]}

Papers:
{{range .Records}}---
id: {{.ID}}
title: {{.Title}}
{{if .Venue}}venue: {{.Venue}}{{end}}
{{if .Abstract}}abstract: {{.Abstract}}{{end}}
{{end}}`))

// judgment is one model verdict for a record.
type judgment struct {
	Relevant bool
	Score    float64
}

// judgeResults mirrors the JSON shape the judge prompt asks for.
type judgeResults struct {
	Results []struct {
		ID       string  `json:"id"`
		Relevant bool    `json:"relevant"`
		Score    float64 `json:"score"`
	} `json:"results"`
}

// judgeBatch asks the model about one batch and returns verdicts keyed by
// record id. Results for ids not in the batch are dropped; missing ids simply
// get no judgment and fall back to the heuristic.
func (r *Ranker) judgeBatch(ctx context.Context, topic string, batch []*types.Record) (map[string]*judgment, error) {
	var buf bytes.Buffer
	err := judgePromptTmpl.Execute(&buf, struct {
		Topic   string
		Records []*types.Record
	}{topic, batch})
	if err != nil {
		return nil, fmt.Errorf("rendering judge prompt: %w", err)
	}

	raw, err := llm.GenerateWithRetry(ctx, r.client, buf.String(), llm.Options{}, r.retries)
	if err != nil {
		return nil, fmt.Errorf("judging batch: %w", err)
	}

	var parsed judgeResults
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing judgments: %w", err)
	}

	inBatch := make(map[string]bool, len(batch))
	for _, rec := range batch {
		inBatch[rec.ID] = true
	}

	out := make(map[string]*judgment)
	for _, res := range parsed.Results {
		if !inBatch[res.ID] {
			continue
		}
		score := res.Score
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		out[res.ID] = &judgment{Relevant: res.Relevant, Score: score}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no judgments matched batch ids: %w", types.ErrMalformedOutput)
	}
	return out, nil
}
