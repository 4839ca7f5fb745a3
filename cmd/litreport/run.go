// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreport/internal/pipeline"
	"github.com/pdiddy/litreport/internal/rank"
	"github.com/pdiddy/litreport/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <topic...>",
	Short: "Run the full pipeline for a research topic",
	Long: `Run creates a new session for the topic and executes every stage: plan,
aggregate, rank, retrieve. The session id is printed first so the run can be
resumed if interrupted. Partial results are always persisted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("no-browser", false, "disable the browser-automation retrieval strategy")
	runCmd.Flags().Int("top", 0, "print only the top N records when done (0 = all)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser {
		cfg.Retrieval.EnableBrowser = false
	}

	log := newLogger(cmd)
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := pipeline.Build(cfg, store, printProgress, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := runner.Run(ctx, topic)
	if sess != nil {
		fmt.Fprintf(os.Stderr, "Session: %s\n", sess.ID)
	}
	if err != nil {
		if sess != nil {
			fmt.Fprintf(os.Stderr, "Run stopped; resume with: litreport resume %s\n", sess.ID)
		}
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	printRecords(sess, top)
	return nil
}

// printProgress reports each completed stage on stderr.
func printProgress(sess *types.Session) {
	switch sess.Stage {
	case types.StagePlanned:
		fmt.Fprintf(os.Stderr, "Planned: %d sections, %d queries\n", len(sess.Outline), len(sess.Queries))
	case types.StageAggregated:
		fmt.Fprintf(os.Stderr, "Aggregated: %d candidate papers\n", len(sess.Records))
	case types.StageRanked:
		fmt.Fprintf(os.Stderr, "Ranked: %d papers scored\n", len(sess.Records))
	case types.StageRetrieved:
		downloaded := 0
		for _, rec := range sess.Records {
			if rec.ArtifactStatus == types.ArtifactDownloaded {
				downloaded++
			}
		}
		fmt.Fprintf(os.Stderr, "Retrieved: %d of %d artifacts\n", downloaded, len(sess.Records))
	}
}

// printRecords writes the ranked result table to stdout.
func printRecords(sess *types.Session, top int) {
	records := rank.Ordered(sess.Records)
	if top > 0 && len(records) > top {
		records = records[:top]
	}
	for i, rec := range records {
		marker := " "
		switch rec.ArtifactStatus {
		case types.ArtifactDownloaded:
			marker = "+"
		case types.ArtifactFailed:
			marker = "x"
		}
		fmt.Printf("%3d. [%s] %.3f  %s", i+1, marker, rec.Score(), rec.Title)
		if rec.Year > 0 {
			fmt.Printf(" (%d)", rec.Year)
		}
		fmt.Printf("\n       %s  sources: %s\n", rec.ID, strings.Join(rec.Sources, ","))
	}
}
