// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CandidateResult is a single raw item returned by one engine adapter.
// Adapters create it and never touch it again; the deduplicator annotates
// the surviving representative of each duplicate group.
type CandidateResult struct {
	// Title is the result title as scraped or returned by the engine.
	Title string `json:"title" yaml:"title"`

	// URL is the target link, unmodified.
	URL string `json:"url" yaml:"url"`

	// Snippet is the short description or excerpt, possibly empty.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Engine identifies which adapter produced this result.
	Engine string `json:"engine" yaml:"engine"`

	// Tier is the name of the tier the engine ran in.
	Tier string `json:"tier" yaml:"tier"`

	// TierIndex is the position of that tier in the plan; it defines the
	// first component of the stable candidate ordering.
	TierIndex int `json:"tier_index" yaml:"tier_index"`

	// EngineIndex is the position of the engine within its tier.
	EngineIndex int `json:"engine_index" yaml:"engine_index"`

	// Rank is the position of this result within its engine's returned list.
	Rank int `json:"rank" yaml:"rank"`

	// FetchedAt records when the adapter returned this result.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`

	// ContentType is the declared content type, if the engine reports one.
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`

	// PublishedDate is a declared or detected publication date string,
	// empty when unknown. The ranker parses it for the freshness factor.
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// NormalizedURL is set by the deduplicator on surviving representatives.
	NormalizedURL string `json:"normalized_url,omitempty" yaml:"normalized_url,omitempty"`

	// FoundBy lists every engine that contributed a member to this result's
	// duplicate group. Empty until deduplication runs; then it contains at
	// least the producing engine.
	FoundBy []string `json:"found_by,omitempty" yaml:"found_by,omitempty"`

	// FoundInTiers lists the tiers of the contributing engines.
	FoundInTiers []string `json:"found_in_tiers,omitempty" yaml:"found_in_tiers,omitempty"`

	// GroupID is the stable identifier of the duplicate group this result
	// represents; set by the deduplicator.
	GroupID string `json:"group_id,omitempty" yaml:"group_id,omitempty"`
}

// RankedResult is a deduplicated candidate with its composite relevance
// score and the per-factor contribution breakdown.
type RankedResult struct {
	CandidateResult `yaml:",inline"`

	// Score is the composite relevance score, an integer in [0,100].
	Score int `json:"score" yaml:"score"`

	// Breakdown maps factor name to its weighted contribution to the
	// composite score (pre-rounding contributions sum to the composite).
	Breakdown map[string]float64 `json:"breakdown" yaml:"breakdown"`
}
