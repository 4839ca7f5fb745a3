// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/internal/aggregate"
	"github.com/pdiddy/litreport/internal/browser"
	"github.com/pdiddy/litreport/internal/llm"
	"github.com/pdiddy/litreport/internal/plan"
	"github.com/pdiddy/litreport/internal/rank"
	"github.com/pdiddy/litreport/internal/retrieve"
	"github.com/pdiddy/litreport/internal/source"
	"github.com/pdiddy/litreport/pkg/types"
)

// Build assembles a Runner from configuration: source adapters, the model
// client, and the retrieval strategy chain in its fixed order (direct,
// publisher API, browser).
func Build(cfg types.PipelineConfig, store Store, progress Progress, log zerolog.Logger) (*Runner, error) {
	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("building model client: %w", err)
	}

	searchClient := &http.Client{Timeout: timeoutOr(cfg.Source.Timeout, 30*time.Second)}
	adapters := source.Registry(cfg.Source, searchClient)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no source adapters enabled")
	}

	fetchClient := &http.Client{Timeout: timeoutOr(cfg.Retrieval.Timeout, 60*time.Second)}
	strategies := []retrieve.Strategy{retrieve.NewDirectStrategy(adapters)}
	if cfg.Retrieval.ElsevierAPIKey != "" {
		strategies = append(strategies, retrieve.NewElsevierStrategy(cfg.Retrieval.ElsevierAPIKey, fetchClient))
	}
	if cfg.Retrieval.EnableBrowser {
		driver := browser.NewChromium(cfg.Retrieval.BrowserBinary, cfg.Retrieval.BrowserTimeout)
		strategies = append(strategies, retrieve.NewBrowserStrategy(driver))
	}

	// The Crossref adapter doubles as the citation-file source.
	var ris retrieve.RISFetcher
	for _, a := range adapters {
		if f, ok := a.(retrieve.RISFetcher); ok {
			ris = f
			break
		}
	}

	planner := plan.New(client, cfg.Planner, cfg.LLM.MaxRetries, log)
	aggregator := aggregate.New(adapters, 2*len(adapters), log)
	ranker := rank.New(client, cfg.Rank, cfg.LLM.MaxRetries, log)
	retriever := retrieve.New(strategies, ris, cfg.Retrieval, log)

	return NewRunner(planner, aggregator, ranker, retriever, store, progress, log), nil
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
