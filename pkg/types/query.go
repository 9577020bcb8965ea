// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the websearch-pro pipeline:
// structured queries, tier plans, engine tasks, candidate and ranked results,
// and search sessions.
package types

import "time"

// SearchQuery is the structured form of a user query, produced by the query
// parser. The orchestrator passes it to engine adapters opaquely; the ranker
// reads the term lists and filters for scoring.
type SearchQuery struct {
	// Original is the raw query text as the user typed it.
	Original string `json:"original" yaml:"original"`

	// RequiredTerms must all appear for a result to be a strong match.
	RequiredTerms []string `json:"required_terms,omitempty" yaml:"required_terms,omitempty"`

	// OptionalTerms broaden the query (OR semantics).
	OptionalTerms []string `json:"optional_terms,omitempty" yaml:"optional_terms,omitempty"`

	// ExcludedTerms must not appear (minus-prefixed terms).
	ExcludedTerms []string `json:"excluded_terms,omitempty" yaml:"excluded_terms,omitempty"`

	// Phrases are exact-match quoted phrases.
	Phrases []string `json:"phrases,omitempty" yaml:"phrases,omitempty"`

	// OrGroups holds parenthesized OR alternatives, one group per slice.
	OrGroups [][]string `json:"or_groups,omitempty" yaml:"or_groups,omitempty"`

	// SiteFilter restricts results to one host (site: operator).
	SiteFilter string `json:"site_filter,omitempty" yaml:"site_filter,omitempty"`

	// FiletypeFilter restricts results to one file extension (filetype: operator).
	FiletypeFilter string `json:"filetype_filter,omitempty" yaml:"filetype_filter,omitempty"`

	// InTitle holds terms that must appear in the title (intitle: operator).
	InTitle []string `json:"intitle,omitempty" yaml:"intitle,omitempty"`

	// InURL holds terms that must appear in the URL (inurl: operator).
	InURL []string `json:"inurl,omitempty" yaml:"inurl,omitempty"`

	// DateAfter and DateBefore bound the publication date (after:/before:).
	DateAfter  time.Time `json:"date_after,omitempty" yaml:"date_after,omitempty"`
	DateBefore time.Time `json:"date_before,omitempty" yaml:"date_before,omitempty"`
}

// IsEmpty reports whether the query contains no searchable terms.
func (q SearchQuery) IsEmpty() bool {
	return len(q.RequiredTerms) == 0 && len(q.OptionalTerms) == 0 &&
		len(q.Phrases) == 0 && len(q.OrGroups) == 0
}

// Terms returns the flattened list of terms relevant for ranking: required
// terms first, then phrase words, then optional terms. Order is stable so
// scoring is deterministic.
func (q SearchQuery) Terms() []string {
	var terms []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	for _, t := range q.RequiredTerms {
		add(t)
	}
	for _, t := range q.OptionalTerms {
		add(t)
	}
	return terms
}
