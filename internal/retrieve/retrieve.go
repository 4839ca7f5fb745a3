// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve acquires full-text artifacts for ranked records. For each
// record it walks an ordered strategy list (adapter-native fetch, publisher
// API, browser automation), logging every attempt on the record and keeping
// artifact status transitions consistent. One record's failure never stops
// the stage.
package retrieve

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/internal/rank"
	"github.com/pdiddy/litreport/pkg/types"
)

// pdfMagic is the required prefix of a valid PDF artifact.
var pdfMagic = []byte("%PDF-")

// transientRetries is how many extra tries a strategy gets after a
// transient failure.
const transientRetries = 1

// retryDelay spaces transient strategy retries. Package var for tests.
var retryDelay = 2 * time.Second

// RISFetcher obtains a citation file for a DOI. The Crossref adapter
// implements it; retrieval treats it as optional.
type RISFetcher interface {
	FetchRIS(ctx context.Context, doi string) ([]byte, error)
}

// Retriever runs the artifact-retrieval stage.
type Retriever struct {
	strategies []Strategy
	ris        RISFetcher
	cfg        types.RetrievalConfig
	log        zerolog.Logger
	now        func() time.Time

	// mu guards status transitions; records are otherwise independent.
	mu sync.Mutex
}

// New builds a Retriever with the given strategy order. ris may be nil.
func New(strategies []Strategy, ris RISFetcher, cfg types.RetrievalConfig, log zerolog.Logger) *Retriever {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	return &Retriever{
		strategies: strategies,
		ris:        ris,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Run retrieves artifacts for every non-terminal record, most relevant
// first, with bounded concurrency across records. Attempts for one record
// are strictly sequential. The stage completes even when every record fails;
// only cancellation or an unusable artifacts directory aborts it.
func (r *Retriever) Run(ctx context.Context, sess *types.Session) error {
	for _, dir := range []string{r.pdfDir(), r.risDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating artifacts dir: %w", err)
		}
	}

	var pending []*types.Record
	for _, rec := range rank.Ordered(sess.Records) {
		if r.skip(rec) {
			continue
		}
		r.transition(rec, types.ArtifactQueued)
		pending = append(pending, rec)
	}

	recCh := make(chan *types.Record)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range recCh {
				r.retrieveRecord(ctx, rec)
			}
		}()
	}

	for _, rec := range pending {
		select {
		case <-ctx.Done():
			close(recCh)
			wg.Wait()
			return ctx.Err()
		case recCh <- rec:
		}
	}
	close(recCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	downloaded, failed := 0, 0
	for _, rec := range sess.Records {
		switch rec.ArtifactStatus {
		case types.ArtifactDownloaded:
			downloaded++
		case types.ArtifactFailed:
			failed++
		}
	}
	r.log.Info().
		Int("attempted", len(pending)).
		Int("downloaded", downloaded).
		Int("failed", failed).
		Msg("retrieval complete")

	sess.Stage = types.StageRetrieved
	return nil
}

// skip reports whether the record needs no work: already failed, or already
// downloaded with the artifact still on disk. A downloaded record whose file
// vanished is retried.
func (r *Retriever) skip(rec *types.Record) bool {
	switch rec.ArtifactStatus {
	case types.ArtifactFailed:
		return true
	case types.ArtifactDownloaded:
		if rec.ArtifactPath != "" {
			if _, err := os.Stat(rec.ArtifactPath); err == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// retrieveRecord walks the strategy list for one record. Strategies that
// report "not available" or keep failing transiently yield to the next; an
// authoritative negative fails the record immediately.
func (r *Retriever) retrieveRecord(ctx context.Context, rec *types.Record) {
	r.transition(rec, types.ArtifactDownloading)

	for _, strat := range r.strategies {
		if !strat.Applies(rec) {
			continue
		}
		data, outcome := r.runStrategy(ctx, strat, rec)
		switch outcome {
		case types.OutcomeSuccess:
			if err := r.store(ctx, rec, data); err != nil {
				r.log.Error().Err(err).Str("record", rec.ID).Msg("storing artifact failed")
				r.appendAttempt(rec, strat.Name(), types.OutcomeInvalid, err.Error())
				continue
			}
			r.transition(rec, types.ArtifactDownloaded)
			return
		case types.OutcomeAuthoritative:
			r.transition(rec, types.ArtifactFailed)
			return
		default:
			// not available, invalid, or transient after retries: next strategy.
		}
		if ctx.Err() != nil {
			// Leave the record downloading; persistence reverts it to queued.
			return
		}
	}

	r.transition(rec, types.ArtifactFailed)
}

// runStrategy invokes one strategy, retrying transient failures a bounded
// number of times. Every invocation appends to the attempt log.
func (r *Retriever) runStrategy(ctx context.Context, strat Strategy, rec *types.Record) ([]byte, types.AttemptOutcome) {
	for try := 0; ; try++ {
		data, err := strat.Fetch(ctx, rec)
		if err == nil {
			if !validPDF(data) {
				r.appendAttempt(rec, strat.Name(), types.OutcomeInvalid, "artifact failed validation")
				return nil, types.OutcomeInvalid
			}
			r.appendAttempt(rec, strat.Name(), types.OutcomeSuccess, "")
			return data, types.OutcomeSuccess
		}

		if ctx.Err() != nil {
			return nil, types.OutcomeTransient
		}
		if types.IsAuthoritative(err) {
			r.appendAttempt(rec, strat.Name(), types.OutcomeAuthoritative, err.Error())
			return nil, types.OutcomeAuthoritative
		}
		if types.IsTransient(err) {
			r.appendAttempt(rec, strat.Name(), types.OutcomeTransient, err.Error())
			if try < transientRetries {
				select {
				case <-ctx.Done():
					return nil, types.OutcomeTransient
				case <-time.After(retryDelay):
				}
				continue
			}
			return nil, types.OutcomeTransient
		}
		r.appendAttempt(rec, strat.Name(), types.OutcomeNotAvailable, err.Error())
		return nil, types.OutcomeNotAvailable
	}
}

// store validates and writes the artifact, then tries to couple a citation
// file to it. The write goes to a temp file first so a crash never leaves a
// half-written PDF at the final path.
func (r *Retriever) store(ctx context.Context, rec *types.Record, data []byte) error {
	path := filepath.Join(r.pdfDir(), safeFilename(rec.ID)+".pdf")
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	rec.ArtifactPath = path

	if r.ris != nil && rec.DOI != "" {
		ris, err := r.ris.FetchRIS(ctx, rec.DOI)
		if err != nil {
			r.log.Debug().Err(err).Str("record", rec.ID).Msg("no citation file")
		} else {
			risPath := filepath.Join(r.risDir(), safeFilename(rec.ID)+".ris")
			if err := writeAtomic(risPath, ris); err == nil {
				rec.RISPath = risPath
			}
		}
	}
	return nil
}

func (r *Retriever) pdfDir() string { return filepath.Join(r.cfg.ArtifactsDir, "pdf") }
func (r *Retriever) risDir() string { return filepath.Join(r.cfg.ArtifactsDir, "ris") }

func (r *Retriever) transition(rec *types.Record, status types.ArtifactStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ArtifactStatus = status
}

func (r *Retriever) appendAttempt(rec *types.Record, strategy string, outcome types.AttemptOutcome, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Attempts = append(rec.Attempts, types.Attempt{
		Strategy: strategy,
		Outcome:  outcome,
		Detail:   detail,
		At:       r.now(),
	})
}

// validPDF checks the artifact is non-empty and carries the PDF magic.
func validPDF(data []byte) bool {
	return len(data) > len(pdfMagic) && bytes.HasPrefix(data, pdfMagic)
}

// writeAtomic writes data via a temp file and rename in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("placing artifact: %w", err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// safeFilename maps a canonical id to a filesystem-safe name. DOI slashes
// and colons become underscores.
func safeFilename(id string) string {
	return unsafeFilenameChars.ReplaceAllString(id, "_")
}
