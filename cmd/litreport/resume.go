// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreport/internal/pipeline"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume an interrupted session",
	Long: `Resume continues a stored session at its first incomplete stage. Completed
stages are never repeated: already-merged records stay merged and successful
downloads are not re-issued.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().Bool("no-browser", false, "disable the browser-automation retrieval strategy")
	resumeCmd.Flags().Int("top", 0, "print only the top N records when done (0 = all)")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
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

	sess, err := runner.Resume(ctx, args[0])
	if err != nil {
		return err
	}

	top, _ := cmd.Flags().GetInt("top")
	printRecords(sess, top)
	return nil
}
