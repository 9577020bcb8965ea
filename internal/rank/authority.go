// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"net/url"
	"strings"
)

// authorityScores maps known domains (and TLD suffixes, dot-prefixed) to a
// static authority value in [0,100].
var authorityScores = map[string]int{
	".gov": 95,
	".edu": 90,
	".org": 70,

	"github.com":        85,
	"stackoverflow.com": 85,
	"microsoft.com":     80,
	"apple.com":         80,
	"google.com":        80,

	"arxiv.org":               90,
	"scholar.google.com":      85,
	"pubmed.ncbi.nlm.nih.gov": 90,
	"ncbi.nlm.nih.gov":        90,
	"researchgate.net":        75,
	"semanticscholar.org":     80,
	"nature.com":              90,
	"sciencedirect.com":       85,
	"ieee.org":                85,
	"acm.org":                 85,

	"reuters.com":        80,
	"bbc.com":            75,
	"nytimes.com":        75,
	"washingtonpost.com": 75,
	"theguardian.com":    75,

	"docs.python.org":       85,
	"developer.mozilla.org": 85,
	"w3.org":                90,
	"wikipedia.org":         75,

	"archive.org":     80,
	"web.archive.org": 80,

	"reddit.com":           60,
	"medium.com":           55,
	"dev.to":               60,
	"news.ycombinator.com": 65,
}

const defaultAuthority = 50

// scoreAuthority rates how authoritative the result's host is, in [0,1].
// Exact domain matches win, then TLD suffixes, then subdomains of known
// domains at a small discount. Unknown HTTPS hosts get a slight edge over
// the baseline.
func (r *Ranker) scoreAuthority(raw string) float64 {
	if raw == "" {
		return float64(defaultAuthority) / 100
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return float64(defaultAuthority) / 100
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if score, ok := authorityScores[host]; ok {
		return float64(score) / 100
	}
	for key, score := range authorityScores {
		if strings.HasPrefix(key, ".") && strings.HasSuffix(host, key) {
			return float64(score) / 100
		}
	}
	for key, score := range authorityScores {
		if !strings.HasPrefix(key, ".") && strings.HasSuffix(host, "."+key) {
			return float64(score) / 100 * 0.9
		}
	}

	base := float64(defaultAuthority)
	if u.Scheme == "https" {
		base += 5
	}
	return base / 100
}

// Terms suggesting substantive content, and terms suggesting spam or ads.
var (
	qualityPositive = []string{
		"documentation", "tutorial", "guide", "official",
		"reference", "manual", "specification", "research",
		"peer-reviewed", "published", "study", "analysis",
	}
	qualityNegative = []string{
		"spam", "click here", "buy now", "advertisement",
		"sponsored", "affiliate", "cheap", "discount",
		"limited time", "act now", "free trial",
	}
)

// scoreContentQuality estimates quality from boilerplate markers, URL path
// hints, and title/snippet shape, in [0,1].
func scoreContentQuality(title, snippet, raw string) float64 {
	text := strings.ToLower(title + " " + snippet)
	score := 50.0

	for _, marker := range qualityPositive {
		if strings.Contains(text, marker) {
			score += 5
		}
	}
	for _, marker := range qualityNegative {
		if strings.Contains(text, marker) {
			score -= 10
		}
	}

	if raw != "" {
		if u, err := url.Parse(raw); err == nil {
			path := strings.ToLower(u.Path)
			if strings.Contains(path, "/docs/") || strings.Contains(path, "/documentation/") {
				score += 10
			}
			if strings.Contains(path, "/api/") || strings.Contains(path, "/reference/") {
				score += 5
			}
			if strings.Contains(path, "/research/") || strings.Contains(path, "/paper/") {
				score += 10
			}
			if strings.Contains(path, "/ad/") || strings.Contains(path, "/ads/") {
				score -= 15
			}
			if strings.Contains(path, "tracking") {
				score -= 10
			}
		}
	}

	if title != "" {
		if len(title) < 10 {
			score -= 10
		} else if len(title) > 200 {
			score -= 5
		}
		if title == strings.ToUpper(title) && title != strings.ToLower(title) {
			score -= 15
		}
	}
	if len(snippet) < 20 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score / 100
}
