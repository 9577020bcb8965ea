package types

import "time"

// HTTPConfig holds shared HTTP settings used by engine adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "websearch-pro/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OrchestratorConfig holds settings for the tiered search orchestrator.
type OrchestratorConfig struct {
	// GlobalTimeout bounds the whole session; zero disables it. Expiry
	// checkpoints the session rather than failing it.
	GlobalTimeout time.Duration `json:"global_timeout" yaml:"global_timeout"`

	// TaskTimeout bounds each engine task; a timeout fails only that task.
	TaskTimeout time.Duration `json:"task_timeout" yaml:"task_timeout"`

	// GracePeriod is how long Pause waits for in-flight tasks before
	// force-marking them cancelled (default 5s).
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period"`

	// MaxResultsPerEngine caps how many results each adapter may return
	// (default 30).
	MaxResultsPerEngine int `json:"max_results_per_engine" yaml:"max_results_per_engine"`
}

// DedupConfig holds settings for the deduplication stage.
type DedupConfig struct {
	// SimilarityThreshold is the minimum title token-overlap ratio for two
	// results to merge in the similarity fallback (default 0.8).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// SafetyConfig holds settings for the result safety filter.
type SafetyConfig struct {
	// Enabled turns the filter on; when false every result passes.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MinScore is the combined safety score below which a result is
	// dropped (default 0.4).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// Blacklist and Whitelist are domain lists. A blacklisted domain is
	// always dropped; a whitelisted one always passes.
	Blacklist []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	Whitelist []string `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
}

// RankConfig holds settings for the ranking stage.
type RankConfig struct {
	// Weights maps factor name to its integer weight. Empty means the
	// built-in defaults, which sum to 100.
	Weights map[string]int `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// CheckpointConfig holds settings for the checkpoint store.
type CheckpointConfig struct {
	// SessionsDir is the directory holding one checkpoint file per session.
	SessionsDir string `json:"sessions_dir" yaml:"sessions_dir"`
}

// JournalConfig holds settings for the search journal.
type JournalConfig struct {
	// Dir is the directory holding the journal SQLite database.
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all stage configurations.
type Config struct {
	HTTP         HTTPConfig         `json:"http" yaml:"http"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	Dedup        DedupConfig        `json:"dedup" yaml:"dedup"`
	Safety       SafetyConfig       `json:"safety" yaml:"safety"`
	Rank         RankConfig         `json:"rank" yaml:"rank"`
	Checkpoint   CheckpointConfig   `json:"checkpoint" yaml:"checkpoint"`
	Journal      JournalConfig      `json:"journal" yaml:"journal"`
}
