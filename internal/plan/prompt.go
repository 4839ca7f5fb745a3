// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/litreport/pkg/types"
)

// outlinePromptTmpl asks the model for a report outline as strict JSON.
var outlinePromptTmpl = template.Must(template.New("outline").Parse(`You are planning a literature report on a research topic. Produce an outline of at most {{.MaxSections}} sections that together cover the topic for an academic reader.

For each section provide:
- title: a short section heading
- description: one or two sentences describing what the section covers

Respond with a JSON object containing a "sections" array. Do not include any text outside the JSON object.

Example response:
{"sections": [{"title": "Background", "description": "Key definitions and the historical development of the field."}]}

Topic:
{{.Topic}}
`))

// queriesPromptTmpl asks for search queries per outline section as strict JSON.
var queriesPromptTmpl = template.Must(template.New("queries").Parse(`You are generating search queries for academic paper databases (arXiv, Semantic Scholar, Crossref, OpenAlex). For each section of the report outline below, write {{.PerSection}} search queries that would find papers relevant to that section.

Queries must be short keyword phrases, not questions or full sentences. Use the terminology of the field.

Respond with a JSON object containing a "section_queries" object that maps each section title (exactly as given) to an array of query strings. Do not include any text outside the JSON object.

Example response:
{"section_queries": {"Background": ["transformer architecture survey", "attention mechanism origins"]}}

Topic: {{.Topic}}

Outline:
{{range .Outline}}- {{.Title}}: {{.Description}}
{{end}}`))

func renderOutlinePrompt(topic string, maxSections int) (string, error) {
	var buf bytes.Buffer
	err := outlinePromptTmpl.Execute(&buf, struct {
		Topic       string
		MaxSections int
	}{topic, maxSections})
	if err != nil {
		return "", fmt.Errorf("rendering outline prompt: %w", err)
	}
	return buf.String(), nil
}

func renderQueriesPrompt(topic string, outline []types.OutlineSection, perSection int) (string, error) {
	var buf bytes.Buffer
	err := queriesPromptTmpl.Execute(&buf, struct {
		Topic      string
		Outline    []types.OutlineSection
		PerSection int
	}{topic, outline, perSection})
	if err != nil {
		return "", fmt.Errorf("rendering queries prompt: %w", err)
	}
	return buf.String(), nil
}
