// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/websearch-pro/internal/orchestrator"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <checkpoint-id>",
	Short: "Resume a paused search session",
	Long: `Resume rebuilds a paused session from its checkpoint and continues the
tier plan. Engines that already succeeded are not re-run; failed and
cancelled engines get another attempt. Ctrl-C pauses again.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().Bool("json", false, "output results as JSON")
	resumeCmd.Flags().Bool("markdown", false, "output a full Markdown report")
	resumeCmd.Flags().String("save", "", "save the query and results to a YAML file")
	resumeCmd.Flags().Duration("timeout", 0, "global session timeout (pauses, does not fail)")
	resumeCmd.Flags().Int("max-results", 0, "maximum results per engine")
	resumeCmd.Flags().Bool("quiet", false, "suppress progress output")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.journal.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	h, err := env.orch.Resume(args[0], orchestrator.Options{
		Progress:      progressPrinter(cmd),
		GlobalTimeout: timeout,
	})
	if err != nil {
		return err
	}

	return superviseSession(cmd, env, h)
}
