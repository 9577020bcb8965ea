// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/websearch-pro/internal/checkpoint"
	"github.com/pdiddy/websearch-pro/internal/engines"
	"github.com/pdiddy/websearch-pro/internal/journal"
	"github.com/pdiddy/websearch-pro/internal/orchestrator"
	"github.com/pdiddy/websearch-pro/internal/query"
	"github.com/pdiddy/websearch-pro/internal/report"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a tiered search for a query",
	Long: `Search parses the query, runs it through the configured engine tiers,
deduplicates the results, and prints them ranked by relevance.

The query supports web-search syntax: "exact phrases", -excluded terms,
(a OR b) groups, and the operators site:, filetype:, intitle:, inurl:,
after: and before:.

Ctrl-C pauses the search into a checkpoint instead of aborting it; resume
later with the resume command.

With --from-file, the query (and tier plan, if one was saved) comes from a
YAML file written by a previous run's --save flag, and no query argument is
given.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("from-file", "", "re-run the query from a saved search file")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("markdown", false, "output a full Markdown report")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML file")
	searchCmd.Flags().Duration("timeout", 0, "global session timeout (pauses, does not fail)")
	searchCmd.Flags().Int("max-results", 0, "maximum results per engine")
	searchCmd.Flags().Bool("quiet", false, "suppress progress output")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, plan, err := resolveQuery(cmd, args)
	if err != nil {
		return err
	}

	env, err := buildEnv(cmd)
	if err != nil {
		return err
	}
	defer env.journal.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	h, err := env.orch.Start(q, plan, orchestrator.Options{
		Progress:      progressPrinter(cmd),
		GlobalTimeout: timeout,
	})
	if err != nil {
		return err
	}

	return superviseSession(cmd, env, h)
}

// resolveQuery picks the query and tier plan from either the command line or
// a saved search file.
func resolveQuery(cmd *cobra.Command, args []string) (types.SearchQuery, types.TierPlan, error) {
	fromFile, _ := cmd.Flags().GetString("from-file")
	if fromFile == "" {
		if len(args) == 0 {
			return types.SearchQuery{}, types.TierPlan{}, fmt.Errorf("a query argument or --from-file is required")
		}
		q, err := query.Parse(strings.Join(args, " "))
		return q, tierPlan(), err
	}

	if len(args) > 0 {
		return types.SearchQuery{}, types.TierPlan{}, fmt.Errorf("--from-file and a query argument are mutually exclusive")
	}
	saved, err := query.ReadSavedSearch(fromFile)
	if err != nil {
		return types.SearchQuery{}, types.TierPlan{}, err
	}
	plan := tierPlan()
	if len(saved.Plan.Tiers) > 0 {
		plan = saved.Plan
	}
	return saved.Query, plan, nil
}

// env bundles the collaborators every session-running command needs.
type env struct {
	cfg     types.Config
	store   *checkpoint.Store
	journal *journal.Journal
	orch    *orchestrator.Orchestrator
}

func buildEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	if maxResults, _ := cmd.Flags().GetInt("max-results"); maxResults > 0 {
		cfg.Orchestrator.MaxResultsPerEngine = maxResults
	}

	store, err := checkpoint.NewStore(cfg.Checkpoint)
	if err != nil {
		return nil, err
	}
	jour, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, err
	}

	registry := engines.DefaultRegistry(httpClient(cfg), cfg.HTTP, loadedSecrets)
	return &env{
		cfg:     cfg,
		store:   store,
		journal: jour,
		orch:    orchestrator.New(cfg, registry, store),
	}, nil
}

// progressPrinter returns a progress sink writing to stderr, or nil when
// --quiet is set.
func progressPrinter(cmd *cobra.Command) orchestrator.ProgressFunc {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return nil
	}
	return func(ev orchestrator.Event) {
		if ev.Engine == "" {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Tier, ev.Message)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s/%s] %s: %s\n", ev.Tier, ev.Engine, ev.Phase, ev.Message)
	}
}

// superviseSession waits for the session, turning the first interrupt into
// a pause. On normal completion it ranks, persists, and renders the output.
func superviseSession(cmd *cobra.Command, env *env, h *orchestrator.SessionHandle) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Fprintln(os.Stderr, "Interrupt received, pausing...")
		checkpointID, err := env.orch.Pause(h.ID)
		if err != nil {
			return err
		}
		if sess, sessErr := env.orch.Session(h.ID); sessErr == nil {
			env.journal.Record(context.Background(), sess)
			fmt.Printf("Session paused with %d of %d tasks remaining. Resume with:\n  websearch-pro resume %s\n",
				len(sess.PendingTasks()), len(sess.Tasks), checkpointID)
		} else {
			fmt.Printf("Session paused. Resume with:\n  websearch-pro resume %s\n", checkpointID)
		}
		return nil

	case <-h.Done():
	}

	if err := h.Wait(context.Background()); err != nil {
		return err
	}

	sess := h.Session()
	if sess.Status == types.SessionPaused {
		// Global timeout elapsed; the run loop already checkpointed.
		env.journal.Record(context.Background(), sess)
		fmt.Printf("Global timeout reached after %s. Resume with:\n  websearch-pro resume %s\n",
			sess.Elapsed.Round(time.Second), h.ID)
		return nil
	}

	if _, err := env.orch.Finish(context.Background(), h.ID); err != nil {
		return err
	}
	sess = h.Session()

	// Persist the completed session so report/sessions commands can read it.
	if _, err := env.store.Save(sess); err != nil {
		fmt.Fprintf(os.Stderr, "warning: saving session: %v\n", err)
	}
	if err := env.journal.Record(context.Background(), sess); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording journal entry: %v\n", err)
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := query.WriteSavedSearch(path, sess); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved search to %s\n", path)
	}

	return renderSession(cmd, sess)
}

func renderSession(cmd *cobra.Command, sess types.SearchSession) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return report.FormatJSON(sess, os.Stdout)
	}
	if md, _ := cmd.Flags().GetBool("markdown"); md {
		report.FormatMarkdown(sess, os.Stdout)
		return nil
	}
	report.FormatTable(sess, os.Stdout)
	return nil
}
