// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package safety screens candidate results for blacklisted domains, phishing
// URLs, and scam-shaped content before they reach ranking. Scores run from
// 0.0 (dangerous) to 1.0 (safe); the URL check carries more weight than the
// content check because a bad domain is a stronger signal than bad copy.
package safety

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

const defaultMinScore = 0.4

// suspiciousTLDs are top-level domains with disproportionate abuse rates.
var suspiciousTLDs = []string{
	".xyz", ".top", ".club", ".work", ".click", ".link",
	".gdn", ".men", ".loan", ".win", ".review", ".stream",
}

// phishingPatterns match URL shapes common in credential-harvesting pages.
var phishingPatterns = compileAll([]string{
	`login.*verify`,
	`secure.*update`,
	`account.*confirm`,
	`paypal.*login`,
	`bank.*verify`,
	`signin.*secure`,
	`update.*billing`,
	`verify.*identity`,
})

// scamPatterns match title/snippet text typical of scams and spam.
var scamPatterns = compileAll([]string{
	`your account has been (suspended|compromised)`,
	`verify your (identity|account|payment)`,
	`click here (immediately|now|urgently)`,
	`winner.*lottery`,
	`free (iphone|gift|prize)`,
	`limited time offer`,
	`act now before`,
	`wire transfer`,
	`nigerian prince`,
})

var urgencyWords = []string{"urgent", "immediately", "now", "hurry", "limited", "act fast"}

// safeIndicators nudge the URL score up for reputable signals.
var safeIndicators = []string{
	"https://", ".gov", ".edu", "wikipedia.org", "github.com", "stackoverflow.com",
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// Verdict is one result's safety assessment.
type Verdict struct {
	Safe   bool
	Score  float64
	Reason string
}

// Checker screens results against the configured domain lists and the
// built-in patterns. Construct with New; a zero-value config disables it.
type Checker struct {
	enabled   bool
	minScore  float64
	blacklist map[string]bool
	whitelist map[string]bool
}

// New builds a Checker from configuration. A zero MinScore falls back to the
// default (0.4).
func New(cfg types.SafetyConfig) *Checker {
	c := &Checker{
		enabled:   cfg.Enabled,
		minScore:  cfg.MinScore,
		blacklist: make(map[string]bool),
		whitelist: make(map[string]bool),
	}
	if c.minScore <= 0 {
		c.minScore = defaultMinScore
	}
	for _, d := range cfg.Blacklist {
		c.blacklist[domainOf(d)] = true
	}
	for _, d := range cfg.Whitelist {
		c.whitelist[domainOf(d)] = true
	}
	return c
}

// LoadBlacklist reads a domain-per-line blacklist file, skipping blank lines
// and # comments. A missing file yields an empty list, not an error.
func LoadBlacklist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening blacklist %s: %w", path, err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading blacklist %s: %w", path, err)
	}
	return domains, nil
}

// domainOf extracts the bare lowercase domain from a URL or domain string.
func domainOf(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimPrefix(raw, "http://"))
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Check assesses one candidate. The combined score weighs the URL check 0.6
// and the content check 0.4; hard failures (blacklist, phishing pattern)
// are unsafe regardless of the combined score.
func (c *Checker) Check(r types.CandidateResult) Verdict {
	if !c.enabled {
		return Verdict{Safe: true, Score: 1.0, Reason: "safety checking disabled"}
	}

	urlSafe, urlScore, urlReason := c.checkURL(r.URL)
	contentSafe, contentScore, contentReason := c.checkContent(r.Title, r.Snippet)

	combined := urlScore*0.6 + contentScore*0.4
	v := Verdict{
		Safe:  urlSafe && contentSafe && combined >= c.minScore,
		Score: combined,
	}
	switch {
	case !urlSafe:
		v.Reason = urlReason
	case !contentSafe:
		v.Reason = contentReason
	case !v.Safe:
		v.Reason = "low combined safety score"
	default:
		v.Reason = "appears safe"
	}
	return v
}

// Filter partitions candidates into the safe set and a dropped count.
func (c *Checker) Filter(in []types.CandidateResult) ([]types.CandidateResult, int) {
	if !c.enabled {
		return in, 0
	}
	safe := in[:0:0]
	dropped := 0
	for _, r := range in {
		if c.Check(r).Safe {
			safe = append(safe, r)
		} else {
			dropped++
		}
	}
	return safe, dropped
}

func (c *Checker) checkURL(raw string) (bool, float64, string) {
	if raw == "" {
		return true, 0.5, "no url"
	}
	domain := domainOf(raw)
	if c.whitelist[domain] {
		return true, 1.0, "whitelisted"
	}
	if c.blacklist[domain] {
		return false, 0.0, "blacklisted domain"
	}
	for blocked := range c.blacklist {
		if strings.HasSuffix(domain, "."+blocked) {
			return false, 0.1, "subdomain of blacklisted " + blocked
		}
	}

	lower := strings.ToLower(raw)
	for _, p := range phishingPatterns {
		if p.MatchString(lower) {
			return false, 0.1, "phishing url pattern"
		}
	}

	score := 0.7
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(domain, tld) {
			score -= 0.3
		}
	}
	for _, indicator := range safeIndicators {
		if strings.Contains(lower, indicator) {
			score += 0.1
		}
	}
	if hasSuspiciousURLChars(lower) {
		score -= 0.2
	}
	score = clamp(score)

	if score < 0.3 {
		return false, score, "low url safety score"
	}
	return true, score, "url appears safe"
}

func (c *Checker) checkContent(title, snippet string) (bool, float64, string) {
	content := strings.ToLower(title + " " + snippet)
	score := 0.8

	for _, p := range scamPatterns {
		if p.MatchString(content) {
			score -= 0.3
			if score < 0.3 {
				return false, clamp(score), "scam content pattern"
			}
		}
	}

	urgency := 0
	for _, word := range urgencyWords {
		if strings.Contains(content, word) {
			urgency++
		}
	}
	if urgency >= 2 {
		score -= 0.2
	}
	if len(title) > 10 && title == strings.ToUpper(title) && title != strings.ToLower(title) {
		score -= 0.2
	}
	score = clamp(score)

	if score < 0.3 {
		return false, score, "suspicious content"
	}
	return true, score, "content appears safe"
}

// hasSuspiciousURLChars flags embedded credentials, encoded control bytes,
// backslashes, and traversal sequences.
func hasSuspiciousURLChars(lower string) bool {
	for _, s := range []string{"@", "%00", "%0d", "%0a", `\`, ".."} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
