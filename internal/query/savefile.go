// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// SavedSearch is the on-disk representation of a query and its ranked
// results. A search can be saved to a file and reloaded later without
// re-querying any engine.
type SavedSearch struct {
	Query   types.SearchQuery    `yaml:"query"`
	Plan    types.TierPlan       `yaml:"plan,omitempty"`
	Results []types.RankedResult `yaml:"results,omitempty"`
	Summary SavedSummary         `yaml:"summary"`
}

// SavedSummary stores result statistics and provenance.
type SavedSummary struct {
	SessionID string    `yaml:"session_id,omitempty"`
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteSavedSearch saves a completed session's query and results to YAML.
func WriteSavedSearch(path string, sess types.SearchSession) error {
	sf := SavedSearch{
		Query:   sess.Query,
		Plan:    sess.Plan,
		Results: sess.Ranked,
		Summary: SavedSummary{
			SessionID: sess.ID,
			Total:     len(sess.Ranked),
			Timestamp: time.Now(),
		},
	}

	data, err := yaml.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("marshaling saved search: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSavedSearch loads a previously saved search from disk.
func ReadSavedSearch(path string) (*SavedSearch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading saved search: %w", err)
	}
	var sf SavedSearch
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing saved search: %w", err)
	}
	return &sf, nil
}
