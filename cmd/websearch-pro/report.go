// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/websearch-pro/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Render a saved session's results",
	Long: `Report re-renders a checkpointed session without re-running any engine.
The default output is a table; --markdown produces a full report with
per-factor score breakdowns, --json the raw ranked results.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Bool("json", false, "output results as JSON")
	reportCmd.Flags().Bool("markdown", false, "output a full Markdown report")
	reportCmd.Flags().String("output", "", "write to a file instead of stdout")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sess, err := store.Load(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(sess, out)
	}
	if md, _ := cmd.Flags().GetBool("markdown"); md {
		report.FormatMarkdown(sess, out)
		return nil
	}
	report.FormatTable(sess, out)
	return nil
}
