// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreport/internal/rank"
	"github.com/pdiddy/litreport/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session as a structured report",
	Long: `Export writes the session's outline and ranked records as YAML. Failed
records are included with their attempt history; nothing is silently
dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

// report is the exported document shape.
type report struct {
	Session string                 `yaml:"session"`
	Topic   string                 `yaml:"topic"`
	Stage   types.Stage            `yaml:"stage"`
	Outline []types.OutlineSection `yaml:"outline,omitempty"`
	Queries []types.SearchQuery    `yaml:"queries,omitempty"`
	Papers  []*types.Record        `yaml:"papers"`
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", args[0])
	}

	doc := report{
		Session: sess.ID,
		Topic:   sess.Topic,
		Stage:   sess.Stage,
		Outline: sess.Outline,
		Queries: sess.Queries,
		Papers:  rank.Ordered(sess.Records),
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d papers to %s\n", len(doc.Papers), output)
	return nil
}
