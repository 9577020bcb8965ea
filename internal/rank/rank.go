// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank assigns composite relevance scores to deduplicated results.
// Seven weighted factors contribute; every sub-score is normalized to [0,1]
// before weighting so the composite lands in [0,100]. Ranking is
// deterministic: equal scores fall back to tier order, then discovery order.
package rank

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// Factor names used in weight maps and score breakdowns.
const (
	FactorAuthority = "source_authority"
	FactorTitle     = "title_match"
	FactorDensity   = "keyword_density"
	FactorProximity = "keyword_proximity"
	FactorDomain    = "domain_relevance"
	FactorFreshness = "content_freshness"
	FactorQuality   = "content_quality"
)

// factorOrder fixes the summation order of the composite. Float addition is
// not associative, so iterating a map could flip a result sitting exactly on
// a rounding boundary between runs.
var factorOrder = []string{
	FactorAuthority, FactorTitle, FactorDensity, FactorProximity,
	FactorDomain, FactorFreshness, FactorQuality,
}

// DefaultWeights sum to 100.
var DefaultWeights = map[string]int{
	FactorAuthority: 25,
	FactorTitle:     20,
	FactorDensity:   15,
	FactorProximity: 10,
	FactorDomain:    10,
	FactorFreshness: 10,
	FactorQuality:   10,
}

// Ranker scores deduplicated candidates against a query. Construct one per
// configuration; weights are fixed at construction.
type Ranker struct {
	weights map[string]float64 // factor → effective weight, summing to 100

	// Now is the clock used for freshness scoring. Overridable in tests;
	// nil means time.Now.
	Now func() time.Time
}

// New builds a Ranker. Custom weights are renormalized so they always sum
// to 100; an empty map selects DefaultWeights.
func New(cfg types.RankConfig) *Ranker {
	src := cfg.Weights
	if len(src) == 0 {
		src = DefaultWeights
	}
	total := 0
	for _, w := range src {
		total += w
	}
	weights := make(map[string]float64, len(src))
	for k, w := range src {
		weights[k] = float64(w) / float64(total) * 100
	}
	return &Ranker{weights: weights}
}

// Rank scores every candidate and returns them ordered by score descending,
// tie-broken by tier order ascending and then discovery order.
func (r *Ranker) Rank(candidates []types.CandidateResult, query types.SearchQuery) []types.RankedResult {
	ranked := make([]types.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		score, breakdown := r.Score(c, query)
		ranked = append(ranked, types.RankedResult{
			CandidateResult: c,
			Score:           score,
			Breakdown:       breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TierIndex != b.TierIndex {
			return a.TierIndex < b.TierIndex
		}
		if a.EngineIndex != b.EngineIndex {
			return a.EngineIndex < b.EngineIndex
		}
		return a.Rank < b.Rank
	})
	return ranked
}

// Score computes the composite score and the per-factor weighted
// contributions for one candidate. Contributions sum (pre-rounding) to the
// composite.
func (r *Ranker) Score(c types.CandidateResult, query types.SearchQuery) (int, map[string]float64) {
	terms := lowerAll(query.Terms())

	subs := map[string]float64{
		FactorAuthority: r.scoreAuthority(c.URL),
		FactorTitle:     scoreTitleMatch(c.Title, terms, query.Original),
		FactorDensity:   scoreKeywordDensity(c.Title, c.Snippet, terms),
		FactorProximity: scoreKeywordProximity(c.Title+" "+c.Snippet, terms),
		FactorDomain:    scoreDomainRelevance(c.URL, terms, query.SiteFilter),
		FactorFreshness: r.scoreFreshness(c),
		FactorQuality:   scoreContentQuality(c.Title, c.Snippet, c.URL),
	}

	breakdown := make(map[string]float64, len(subs))
	composite := 0.0
	for _, factor := range factorOrder {
		contribution := r.weights[factor] * subs[factor]
		breakdown[factor] = contribution
		composite += contribution
	}

	score := int(math.Round(composite))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, breakdown
}

func (r *Ranker) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

// scoreTitleMatch is the fraction of query terms present in the title. An
// exact occurrence of the whole original query in the title scores 1.0.
func scoreTitleMatch(title string, terms []string, original string) float64 {
	if title == "" {
		return 0
	}
	titleLower := strings.ToLower(title)
	if original != "" && strings.Contains(titleLower, strings.ToLower(original)) {
		return 1.0
	}
	if len(terms) == 0 {
		return 0.5
	}
	found := 0
	for _, term := range terms {
		if strings.Contains(titleLower, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

// scoreKeywordDensity measures term frequency in title+snippet. The curve
// peaks in the 2-5% range; very dense text reads as keyword stuffing and
// scores lower.
func scoreKeywordDensity(title, snippet string, terms []string) float64 {
	if len(terms) == 0 {
		return 0.5
	}
	text := strings.ToLower(title + " " + snippet)
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	count := 0
	for _, term := range terms {
		count += strings.Count(text, term)
	}
	density := float64(count) / float64(words) * 100

	switch {
	case density < 1:
		return density * 0.30
	case density <= 5:
		return math.Min(1, 0.50+density*0.10)
	case density <= 10:
		return (100 - (density-5)*5) / 100
	default:
		return math.Max(0.5, (100-density*3)/100)
	}
}

// scoreKeywordProximity rewards query terms that appear close together.
// With fewer than two terms present, proximity does not apply and the
// factor is neutral-high.
func scoreKeywordProximity(text string, terms []string) float64 {
	if len(terms) < 2 {
		return 1.0
	}
	words := strings.Fields(strings.ToLower(text))

	positions := make(map[string][]int, len(terms))
	for i, word := range words {
		for _, term := range terms {
			if strings.Contains(word, term) {
				positions[term] = append(positions[term], i)
			}
		}
	}
	for _, term := range terms {
		if len(positions[term]) == 0 {
			return 0.3
		}
	}

	minSpan := math.MaxInt
	for i, t1 := range terms {
		for _, t2 := range terms[i+1:] {
			for _, p1 := range positions[t1] {
				for _, p2 := range positions[t2] {
					span := p1 - p2
					if span < 0 {
						span = -span
					}
					if span < minSpan {
						minSpan = span
					}
				}
			}
		}
	}

	switch {
	case minSpan <= 1:
		return 1.0
	case minSpan <= 3:
		return 0.9
	case minSpan <= 5:
		return 0.8
	case minSpan <= 10:
		return 0.7
	default:
		return math.Max(0.5, (100-float64(minSpan)*2)/100)
	}
}

// scoreDomainRelevance checks whether query terms, or the query's site:
// filter, appear in the result's host and path.
func scoreDomainRelevance(raw string, terms []string, siteFilter string) float64 {
	if raw == "" {
		return 0.5
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return 0.5
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	path := strings.ToLower(u.Path)

	if siteFilter != "" {
		site := strings.ToLower(strings.TrimPrefix(siteFilter, "www."))
		if host == site || strings.HasSuffix(host, "."+site) {
			return 1.0
		}
	}
	if len(terms) == 0 {
		return 0.5
	}

	inHost, inPath := 0, 0
	for _, term := range terms {
		if strings.Contains(host, term) {
			inHost++
		}
		if strings.Contains(path, term) {
			inPath++
		}
	}
	score := 0.5 +
		float64(inHost)/float64(len(terms))*0.5 +
		float64(inPath)/float64(len(terms))*0.3
	return math.Min(1, score)
}

// freshnessFormats are the declared-date layouts the ranker understands.
var freshnessFormats = []string{
	"2006-01-02", "2006/01/02", "January 2, 2006", "2 January 2006", time.RFC3339,
}

// scoreFreshness decays with content age. Results without any detectable
// date are neutral (0.5) rather than penalized.
func (r *Ranker) scoreFreshness(c types.CandidateResult) float64 {
	now := r.now()

	if c.PublishedDate != "" {
		for _, layout := range freshnessFormats {
			t, err := time.Parse(layout, c.PublishedDate)
			if err != nil {
				continue
			}
			return freshnessForAge(now.Sub(t))
		}
		return 0.5
	}

	// No declared date: look for a recent year in the snippet.
	currentYear := now.Year()
	for year := currentYear; year > currentYear-5; year-- {
		if strings.Contains(c.Snippet, yearString(year)) {
			age := currentYear - year
			return math.Max(0.5, 1.0-float64(age)*0.1)
		}
	}
	return 0.5
}

func yearString(year int) string {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}

func freshnessForAge(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days < 7:
		return 1.0
	case days < 30:
		return 0.9
	case days < 90:
		return 0.8
	case days < 365:
		return 0.7
	case days < 730:
		return 0.6
	default:
		return 0.5
	}
}
