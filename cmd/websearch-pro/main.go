// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the websearch-pro CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/websearch-pro/internal/safety"
	"github.com/pdiddy/websearch-pro/internal/secrets"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the websearch-pro CLI.
var rootCmd = &cobra.Command{
	Use:   "websearch-pro",
	Short: "Tiered meta-search across web search engines",
	Long: `websearch-pro runs a structured query through tiers of search engines,
deduplicates what they return, and ranks the survivors by a weighted
relevance score. Long searches can be paused into a checkpoint with Ctrl-C
and resumed later without re-running engines that already finished.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./websearch-pro.yaml or ~/.config/websearch-pro/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory for checkpoints and the journal (default: ~/.websearch-pro)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("websearch-pro")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "websearch-pro"))
		}
	}

	viper.SetEnvPrefix("WEBSEARCH_PRO")
	viper.AutomaticEnv()

	viper.SetDefault("http.timeout", "20s")
	viper.SetDefault("http.user_agent", "websearch-pro/"+version)
	viper.SetDefault("orchestrator.task_timeout", "30s")
	viper.SetDefault("orchestrator.grace_period", "5s")
	viper.SetDefault("orchestrator.max_results_per_engine", 30)
	viper.SetDefault("dedup.similarity_threshold", 0.8)
	viper.SetDefault("safety.enabled", true)
	viper.SetDefault("safety.min_score", 0.4)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// dataDir resolves the directory holding checkpoints and the journal.
func dataDir() (string, error) {
	if dir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dir != "" {
		return dir, nil
	}
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".websearch-pro"), nil
}

// buildConfig assembles the full configuration from viper.
func buildConfig() (types.Config, error) {
	dir, err := dataDir()
	if err != nil {
		return types.Config{}, err
	}

	weights := make(map[string]int)
	for factor, w := range viper.GetStringMap("rank.weights") {
		if n, ok := w.(int); ok {
			weights[factor] = n
		}
	}

	blacklistFile := viper.GetString("safety.blacklist_file")
	if blacklistFile == "" {
		blacklistFile = filepath.Join(dir, "blacklist.txt")
	}
	blacklist, err := safety.LoadBlacklist(blacklistFile)
	if err != nil {
		return types.Config{}, err
	}
	blacklist = append(blacklist, viper.GetStringSlice("safety.blacklist")...)

	return types.Config{
		HTTP: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
		Orchestrator: types.OrchestratorConfig{
			GlobalTimeout:       viper.GetDuration("orchestrator.global_timeout"),
			TaskTimeout:         viper.GetDuration("orchestrator.task_timeout"),
			GracePeriod:         viper.GetDuration("orchestrator.grace_period"),
			MaxResultsPerEngine: viper.GetInt("orchestrator.max_results_per_engine"),
		},
		Dedup: types.DedupConfig{
			SimilarityThreshold: viper.GetFloat64("dedup.similarity_threshold"),
		},
		Safety: types.SafetyConfig{
			Enabled:   viper.GetBool("safety.enabled"),
			MinScore:  viper.GetFloat64("safety.min_score"),
			Blacklist: blacklist,
			Whitelist: viper.GetStringSlice("safety.whitelist"),
		},
		Rank: types.RankConfig{Weights: weights},
		Checkpoint: types.CheckpointConfig{
			SessionsDir: filepath.Join(dir, "sessions"),
		},
		Journal: types.JournalConfig{
			Dir: filepath.Join(dir, "journal"),
		},
	}, nil
}

// tierPlan builds the tier plan from configuration, falling back to the
// built-in default: the fast engines first, Hacker News as a slower
// extended tier.
func tierPlan() types.TierPlan {
	var plan types.TierPlan
	if err := viper.UnmarshalKey("tiers", &plan.Tiers); err == nil && len(plan.Tiers) > 0 {
		return plan
	}
	return types.TierPlan{Tiers: []types.Tier{
		{Name: "major", Engines: []string{"duckduckgo", "wikipedia"}, Concurrency: 2, Enabled: true},
		{Name: "extended", Engines: []string{"hackernews"}, Concurrency: 1, Delay: time.Second, Enabled: true},
	}}
}

// httpClient builds the shared client for all engine adapters.
func httpClient(cfg types.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
