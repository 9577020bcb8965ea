// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/websearch-pro/internal/checkpoint"
	"github.com/pdiddy/websearch-pro/internal/journal"
	"github.com/pdiddy/websearch-pro/internal/report"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved search sessions",
	Long: `Sessions lists, inspects, and deletes checkpointed search sessions.
Paused sessions can be resumed; completed sessions can be re-rendered with
the report command.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpointed sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's task states and counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session's checkpoint and journal rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the journal of past sessions",
	RunE:  runSessionsHistory,
}

func init() {
	sessionsHistoryCmd.Flags().Int("limit", 20, "maximum entries to show (0 for all)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsHistoryCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openStore() (*checkpoint.Store, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return checkpoint.NewStore(cfg.Checkpoint)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-20s  %s\n", "Session", "Status", "Saved", "Query")
	fmt.Println(strings.Repeat("-", 100))
	for _, m := range metas {
		fmt.Printf("%-36s  %-10s  %-20s  %s\n",
			m.CheckpointID, m.Status, m.SavedAt.Local().Format("2006-01-02 15:04:05"), m.Query)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sess, err := store.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session:  %s\n", sess.ID)
	fmt.Printf("Query:    %s\n", sess.Query.Original)
	fmt.Printf("Status:   %s", sess.Status)
	if sess.StoppedReason != "" {
		fmt.Printf(" (%s)", sess.StoppedReason)
	}
	fmt.Println()
	fmt.Printf("Created:  %s\n", sess.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("Elapsed:  %s\n", sess.Elapsed.Round(time.Millisecond))
	fmt.Printf("Results:  %d candidates, %d ranked\n", len(sess.Candidates), len(sess.Ranked))
	fmt.Printf("Tasks:    %d remaining of %d\n\n", len(sess.PendingTasks()), len(sess.Tasks))

	report.FormatTasks(sess, os.Stdout)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	store, err := checkpoint.NewStore(cfg.Checkpoint)
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}

	jour, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer jour.Close()
	if err := jour.Delete(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsHistory(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	jour, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer jour.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := jour.History(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-8s  %-7s  %s\n", "Session", "Status", "Elapsed", "Results", "Query")
	fmt.Println(strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Printf("%-36s  %-10s  %-8s  %-7d  %s\n",
			e.ID, e.Status, e.Elapsed.Round(time.Second), e.RankedCount, e.Query)
	}
	return nil
}
