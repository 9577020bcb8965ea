// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses near-duplicate search results. Deduplication is a
// pure function of its input set: given the same candidates it produces the
// same groups with the same representatives, so the orchestrator can re-run
// it incrementally after every tier.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// stripParams are query parameters removed during URL normalization:
// tracking, session, analytics, and cache-buster noise.
var stripParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"fbclid": true, "gclid": true, "msclkid": true, "dclid": true,
	"ref": true, "referer": true, "referrer": true, "source": true,
	"session": true, "sessionid": true, "sid": true, "jsessionid": true,
	"ga_source": true, "ga_medium": true, "ga_campaign": true,
	"_ga": true, "_gl": true, "_hsenc": true, "_hsmi": true,
	"share": true, "shared": true, "social": true,
	"timestamp": true, "ts": true, "nocache": true, "cache": true, "cb": true,
	"ver": true, "version": true, "v": true,
}

// domainAliases maps hosts that serve the same content under different
// names onto one canonical host.
var domainAliases = map[string]string{
	"old.reddit.com":      "reddit.com",
	"np.reddit.com":       "reddit.com",
	"m.reddit.com":        "reddit.com",
	"amp.reddit.com":      "reddit.com",
	"mobile.twitter.com":  "twitter.com",
	"m.youtube.com":       "youtube.com",
	"youtu.be":            "youtube.com",
	"en.m.wikipedia.org":  "en.wikipedia.org",
}

// indexFiles are default documents stripped from path ends.
var indexFiles = []string{"/index.html", "/index.htm", "/index.php", "/default.html"}

// Deduplicate collapses the candidate set into one representative per
// duplicate group. Input order does not matter: candidates are first put in
// their stable total order (tier, engine, rank within engine), which defines
// "first seen" deterministically. The surviving record keeps the first-seen
// URL/title/snippet and accumulates the contributing engine and tier sets.
func Deduplicate(candidates []types.CandidateResult, cfg types.DedupConfig) []types.CandidateResult {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.8
	}

	ordered := make([]types.CandidateResult, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.TierIndex != b.TierIndex {
			return a.TierIndex < b.TierIndex
		}
		if a.EngineIndex != b.EngineIndex {
			return a.EngineIndex < b.EngineIndex
		}
		return a.Rank < b.Rank
	})

	var groups []types.CandidateResult
	byURL := make(map[string]int)         // normalized URL → group index
	byFingerprint := make(map[string]int) // content fingerprint → group index
	titleTokens := make([][]string, 0)    // per-group, representative title tokens

	for _, c := range ordered {
		normalized := NormalizeURL(c.URL)
		fp := Fingerprint(c.Title, c.Snippet)

		idx := -1
		if normalized != "" {
			if i, ok := byURL[normalized]; ok {
				idx = i
			}
		}
		if idx < 0 {
			if i, ok := byFingerprint[fp]; ok {
				idx = i
			}
		}
		if idx < 0 {
			tokens := tokenize(c.Title)
			for i := range groups {
				if titleSimilarity(tokens, titleTokens[i]) >= threshold {
					idx = i
					break
				}
			}
		}

		if idx >= 0 {
			mergeInto(&groups[idx], c)
			continue
		}

		rep := c
		rep.NormalizedURL = normalized
		// A candidate that is itself the output of an earlier dedup pass
		// already carries its contributing sets; keep them.
		if len(rep.FoundBy) == 0 && c.Engine != "" {
			rep.FoundBy = []string{c.Engine}
		}
		if len(rep.FoundInTiers) == 0 && c.Tier != "" {
			rep.FoundInTiers = []string{c.Tier}
		}
		rep.GroupID = groupID(normalized, fp)

		groups = append(groups, rep)
		titleTokens = append(titleTokens, tokenize(c.Title))
		if normalized != "" {
			byURL[normalized] = len(groups) - 1
		}
		byFingerprint[fp] = len(groups) - 1
	}

	return groups
}

// mergeInto accumulates the duplicate's engine and tier into the group
// representative. The representative's URL, title, and snippet stay as the
// first-seen candidate's; only empty metadata is filled in.
func mergeInto(dst *types.CandidateResult, src types.CandidateResult) {
	addUnique(&dst.FoundBy, src.Engine)
	for _, e := range src.FoundBy {
		addUnique(&dst.FoundBy, e)
	}
	addUnique(&dst.FoundInTiers, src.Tier)
	for _, t := range src.FoundInTiers {
		addUnique(&dst.FoundInTiers, t)
	}
	if dst.PublishedDate == "" && src.PublishedDate != "" {
		dst.PublishedDate = src.PublishedDate
	}
	if dst.ContentType == "" && src.ContentType != "" {
		dst.ContentType = src.ContentType
	}
}

func addUnique(list *[]string, s string) {
	if s == "" {
		return
	}
	for _, v := range *list {
		if v == s {
			return
		}
	}
	*list = append(*list, s)
}

// NormalizeURL canonicalizes a URL for duplicate detection: the scheme and
// fragment are dropped, the host is lowercased with "www." and default ports
// stripped and aliases applied, index files and trailing slashes are removed
// from the path, and tracking parameters are filtered out of the sorted query.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")
	if alias, ok := domainAliases[host]; ok {
		host = alias
	}

	path := u.EscapedPath()
	for _, index := range indexFiles {
		if strings.HasSuffix(path, index) {
			path = path[:len(path)-len(index)]
			break
		}
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	query := ""
	if u.RawQuery != "" {
		values := u.Query()
		kept := url.Values{}
		for k, vs := range values {
			if !stripParams[strings.ToLower(k)] {
				kept[k] = vs
			}
		}
		query = kept.Encode() // Encode sorts keys for a stable form.
	}

	normalized := host + path
	if query != "" {
		normalized += "?" + query
	}
	return normalized
}

// Fingerprint hashes the case-folded, whitespace-collapsed concatenation of
// title and snippet. Equal fingerprints mean the same content indexed at
// different (mirrored) URLs.
func Fingerprint(title, snippet string) string {
	t := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	s := strings.Join(strings.Fields(strings.ToLower(snippet)), " ")
	sum := sha256.Sum256([]byte(t + "|" + s))
	return hex.EncodeToString(sum[:])
}

// groupID derives the stable group identifier from the normalized URL, or
// from the content fingerprint for results without a usable URL.
func groupID(normalizedURL, fingerprint string) string {
	basis := normalizedURL
	if basis == "" {
		basis = fingerprint
	}
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:6])
}

// tokenize splits a title into lowercased word tokens, dropping one-character
// fragments.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// titleSimilarity is the Jaccard ratio of two token sets.
func titleSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
