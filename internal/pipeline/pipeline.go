// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a session through the stages: plan, aggregate,
// rank, retrieve. The session is checkpointed after every stage, and a
// resumed run restarts at the first stage whose output is missing, never
// repeating completed work.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/pkg/types"
)

// timeNow is a hook for tests.
var timeNow = time.Now

// Stage runners. The concrete implementations live in internal/plan,
// internal/aggregate, internal/rank, and internal/retrieve; the runner only
// needs their entry points.
type (
	Planner interface {
		Plan(ctx context.Context, sess *types.Session) error
	}
	Aggregator interface {
		Run(ctx context.Context, sess *types.Session) error
	}
	Ranker interface {
		Run(ctx context.Context, sess *types.Session) error
	}
	Retriever interface {
		Run(ctx context.Context, sess *types.Session) error
	}
)

// Store is the persistence surface the runner needs.
type Store interface {
	Load(ctx context.Context, id string) (*types.Session, error)
	Save(ctx context.Context, sess *types.Session) error
}

// Progress is invoked after each stage completes and checkpoints. Callers
// use it for display; the pipeline ignores its cost.
type Progress func(sess *types.Session)

// Runner executes the pipeline for one session at a time.
type Runner struct {
	planner    Planner
	aggregator Aggregator
	ranker     Ranker
	retriever  Retriever
	store      Store
	progress   Progress
	log        zerolog.Logger
	newID      func() string
}

// NewRunner wires the stage implementations together. progress may be nil.
func NewRunner(planner Planner, aggregator Aggregator, ranker Ranker, retriever Retriever, store Store, progress Progress, log zerolog.Logger) *Runner {
	return &Runner{
		planner:    planner,
		aggregator: aggregator,
		ranker:     ranker,
		retriever:  retriever,
		store:      store,
		progress:   progress,
		log:        log,
		newID:      func() string { return uuid.NewString() },
	}
}

// Run creates a fresh session for the topic and executes all stages.
func (r *Runner) Run(ctx context.Context, topic string) (*types.Session, error) {
	sess := types.NewSession(r.newID(), topic, timeNow())
	if err := r.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	r.log.Info().Str("session", sess.ID).Str("topic", topic).Msg("session created")
	return sess, r.execute(ctx, sess)
}

// Resume loads an existing session and continues from its first incomplete
// stage. An unknown or unreadable id is an error: the caller asked for
// specific prior work that does not exist.
func (r *Runner) Resume(ctx context.Context, id string) (*types.Session, error) {
	sess, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	r.log.Info().
		Str("session", sess.ID).
		Str("stage", string(sess.Stage)).
		Int("records", len(sess.Records)).
		Msg("session resumed")
	return sess, r.execute(ctx, sess)
}

// execute runs the stages the session still needs. Every completed stage is
// persisted before the next starts; a save failure is fatal because the
// store is the source of truth for resumption.
func (r *Runner) execute(ctx context.Context, sess *types.Session) error {
	type step struct {
		name   string
		needed bool
		run    func(context.Context, *types.Session) error
	}

	steps := []step{
		{"plan", !sess.Stage.AtLeast(types.StagePlanned), r.planner.Plan},
		{"aggregate", !sess.Stage.AtLeast(types.StageAggregated), r.aggregator.Run},
		{"rank", !sess.Stage.AtLeast(types.StageRanked), r.ranker.Run},
		{"retrieve", !sess.Stage.AtLeast(types.StageRetrieved) || sess.PendingRetrieval(), r.retriever.Run},
	}

	for _, st := range steps {
		if !st.needed {
			continue
		}
		r.log.Info().Str("session", sess.ID).Str("stage", st.name).Msg("stage starting")
		if err := st.run(ctx, sess); err != nil {
			// Persist whatever the stage managed before it failed.
			if saveErr := r.store.Save(context.WithoutCancel(ctx), sess); saveErr != nil {
				r.log.Error().Err(saveErr).Str("session", sess.ID).Msg("checkpoint after failure lost")
			}
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
		if err := r.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("checkpointing after %s: %w", st.name, err)
		}
		if r.progress != nil {
			r.progress(sess)
		}
	}
	return nil
}
