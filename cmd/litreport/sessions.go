// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreport/pkg/types"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's records and artifact status",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Long: `Delete removes the session from the store. Sessions are never deleted
automatically; this is the only way to remove one. Downloaded artifacts on
disk are left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tRECORDS\tUPDATED\tTOPIC")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Stage, s.Records, s.UpdatedAt.Format("2006-01-02 15:04"), s.Topic)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Session:  %s\nTopic:    %s\nStage:    %s\nUpdated:  %s\n\n",
		sess.ID, sess.Topic, sess.Stage, sess.UpdatedAt.Format("2006-01-02 15:04"))

	if len(sess.Outline) > 0 {
		fmt.Println("Outline:")
		for _, s := range sess.Outline {
			fmt.Printf("  - %s\n", s.Title)
		}
		fmt.Println()
	}

	byStatus := map[types.ArtifactStatus]int{}
	for _, rec := range sess.Records {
		byStatus[rec.ArtifactStatus]++
	}
	fmt.Printf("Records: %d", len(sess.Records))
	for _, st := range []types.ArtifactStatus{
		types.ArtifactDownloaded, types.ArtifactQueued, types.ArtifactFailed, types.ArtifactUnresolved,
	} {
		if byStatus[st] > 0 {
			fmt.Printf("  %s=%d", st, byStatus[st])
		}
	}
	fmt.Println()

	printRecords(sess, 0)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}
