// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate fans planned queries out across the source adapters and
// folds the raw hits into canonical records. Folding is commutative and
// idempotent: the same record set results no matter which adapter answers
// first, and re-running a query adds nothing new.
package aggregate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/internal/ident"
	"github.com/pdiddy/litreport/internal/source"
	"github.com/pdiddy/litreport/pkg/types"
)

// Aggregator executes the query plan against a set of adapters.
type Aggregator struct {
	adapters []source.Adapter
	// workers bounds concurrent query×adapter searches.
	workers int
	log     zerolog.Logger

	mu sync.Mutex
	// recordLocks serializes merges into the same canonical id.
	recordLocks map[string]*sync.Mutex
}

// New builds an Aggregator. workers <= 0 selects a default of 4.
func New(adapters []source.Adapter, workers int, log zerolog.Logger) *Aggregator {
	if workers <= 0 {
		workers = 4
	}
	return &Aggregator{
		adapters:    adapters,
		workers:     workers,
		log:         log,
		recordLocks: make(map[string]*sync.Mutex),
	}
}

// Run executes every query against every adapter (honoring SourceHint) and
// merges the results into sess.Records. Individual adapter failures are
// logged and skipped; the stage fails only when the context is cancelled or
// no adapter produced anything and at least one failed.
func (a *Aggregator) Run(ctx context.Context, sess *types.Session) error {
	type task struct {
		query   types.SearchQuery
		adapter source.Adapter
	}

	var tasks []task
	for _, q := range sess.Queries {
		for _, ad := range a.adapters {
			if q.SourceHint != "" && q.SourceHint != ad.Name() {
				continue
			}
			tasks = append(tasks, task{query: q, adapter: ad})
		}
	}

	taskCh := make(chan task)
	var wg sync.WaitGroup
	var folded, failed int
	var countMu sync.Mutex

	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				hits, err := t.adapter.Search(ctx, t.query, 0)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					a.log.Warn().
						Err(err).
						Str("adapter", t.adapter.Name()).
						Str("query", t.query.Text).
						Msg("search failed")
					countMu.Lock()
					failed++
					countMu.Unlock()
					continue
				}
				n := a.Fold(sess, hits)
				countMu.Lock()
				folded += n
				countMu.Unlock()
			}
		}()
	}

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- t:
		}
	}
	close(taskCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	a.log.Info().
		Int("queries", len(sess.Queries)).
		Int("hits", folded).
		Int("records", len(sess.Records)).
		Int("failed_searches", failed).
		Msg("aggregation complete")

	sess.Stage = types.StageAggregated
	return nil
}

// Fold merges hits into the session's record map and returns how many hits
// were processed. Safe for concurrent use.
func (a *Aggregator) Fold(sess *types.Session, hits []types.RawHit) int {
	for _, hit := range hits {
		if hit.Title == "" && hit.DOI == "" && hit.ArxivID == "" {
			continue
		}
		id := ident.CanonicalID(hit)

		lock := a.lockFor(id)
		lock.Lock()
		a.mu.Lock()
		rec, ok := sess.Records[id]
		if !ok {
			rec = &types.Record{ID: id, ArtifactStatus: types.ArtifactUnresolved}
			sess.Records[id] = rec
		}
		a.mu.Unlock()
		merge(rec, hit)
		lock.Unlock()
	}
	return len(hits)
}

// lockFor returns the per-id mutex, creating it under the map lock.
func (a *Aggregator) lockFor(id string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if lk, ok := a.recordLocks[id]; ok {
		return lk
	}
	lk := &sync.Mutex{}
	a.recordLocks[id] = lk
	return lk
}

// merge folds one hit into a record. Scalar fields fill only when empty, so
// the set of contributing hits, not their arrival order, determines the
// result. Citations takes the maximum because providers lag each other.
func merge(rec *types.Record, hit types.RawHit) {
	rec.Sources = unionSorted(rec.Sources, hit.Source)

	if rec.Title == "" {
		rec.Title = hit.Title
	}
	if len(rec.Authors) == 0 {
		rec.Authors = hit.Authors
	}
	if rec.Year == 0 {
		rec.Year = hit.Year
	}
	if rec.Venue == "" {
		rec.Venue = hit.Venue
	}
	if rec.Abstract == "" || len(hit.Abstract) > len(rec.Abstract) {
		rec.Abstract = hit.Abstract
	}
	if rec.DOI == "" {
		rec.DOI = ident.NormalizeDOI(hit.DOI)
	}
	if rec.ArxivID == "" {
		rec.ArxivID = ident.NormalizeArxiv(hit.ArxivID)
	}
	if rec.ArxivID == "" {
		rec.ArxivID = ident.ArxivFromDOI(hit.DOI)
	}
	if rec.PDFURL == "" {
		rec.PDFURL = hit.PDFURL
	}
	if rec.LandingURL == "" {
		rec.LandingURL = hit.LandingURL
	}
	if hit.Citations > rec.Citations {
		rec.Citations = hit.Citations
	}
	if rec.Query == "" {
		rec.Query = hit.Query
	}
	if rec.Section == "" {
		rec.Section = hit.Section
	}
}

// unionSorted adds name to the sorted set if absent.
func unionSorted(set []string, name string) []string {
	if name == "" {
		return set
	}
	idx := sort.SearchStrings(set, name)
	if idx < len(set) && set[idx] == name {
		return set
	}
	set = append(set, "")
	copy(set[idx+1:], set[idx:])
	set[idx] = name
	return set
}
