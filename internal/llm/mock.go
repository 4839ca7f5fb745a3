// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "context"

// MockClient returns canned responses in order, then repeats the last one.
// Used by package tests across the pipeline.
type MockClient struct {
	Responses []string
	Err       error
	Calls     int
	Prompts   []string
}

// Generate records the prompt and returns the next canned response.
func (m *MockClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}
