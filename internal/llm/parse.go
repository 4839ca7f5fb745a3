// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/litreport/pkg/types"
)

// ExtractJSON locates the first decodable JSON object or array inside raw
// model output and unmarshals it into v. Models wrap payloads in code fences
// and prose; the scan tolerates both. No decodable value yields
// ErrMalformedOutput.
func ExtractJSON(raw string, v any) error {
	text := stripFences(raw)

	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no JSON value in model output: %w", types.ErrMalformedOutput)
}

// stripFences removes Markdown code fences, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
