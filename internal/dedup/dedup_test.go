package dedup

import (
	"reflect"
	"testing"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

func cfg() types.DedupConfig {
	return types.DedupConfig{SimilarityThreshold: 0.8}
}

func candidate(engine, tier string, tierIdx, engineIdx, rank int, url, title, snippet string) types.CandidateResult {
	return types.CandidateResult{
		Title:       title,
		URL:         url,
		Snippet:     snippet,
		Engine:      engine,
		Tier:        tier,
		TierIndex:   tierIdx,
		EngineIndex: engineIdx,
		Rank:        rank,
	}
}

// --- URL normalization ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://x.com/a", "x.com/a"},
		{"http://www.x.com/a/", "x.com/a"},
		{"https://X.COM:443/a", "x.com/a"},
		{"http://x.com:80/a", "x.com/a"},
		{"http://x.com/a?utm_source=feed&id=7", "x.com/a?id=7"},
		{"http://x.com/a?b=2&a=1", "x.com/a?a=1&b=2"},
		{"http://x.com/docs/index.html", "x.com/docs"},
		{"http://x.com/a#section", "x.com/a"},
		{"http://old.reddit.com/r/golang", "reddit.com/r/golang"},
		{"http://youtu.be/abc", "youtube.com/abc"},
		{"http://x.com/", "x.com"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// --- Deduplication stages ---

func TestDeduplicateByURL(t *testing.T) {
	in := []types.CandidateResult{
		candidate("engine_a", "major", 0, 0, 0, "http://x.com/a", "Python Tutorial", ""),
		candidate("engine_b", "major", 0, 1, 0, "http://www.x.com/a/", "Python Tutorial", ""),
	}

	out := Deduplicate(in, cfg())
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	r := out[0]
	if r.NormalizedURL != "x.com/a" {
		t.Errorf("NormalizedURL = %q, want %q", r.NormalizedURL, "x.com/a")
	}
	if !reflect.DeepEqual(r.FoundBy, []string{"engine_a", "engine_b"}) {
		t.Errorf("FoundBy = %v", r.FoundBy)
	}
	if r.GroupID == "" {
		t.Error("GroupID should be set")
	}
}

func TestDeduplicateByFingerprint(t *testing.T) {
	// Same page indexed at two mirrored URLs.
	in := []types.CandidateResult{
		candidate("engine_a", "major", 0, 0, 0, "http://mirror1.example/post", "Go Concurrency Patterns", "A deep dive into goroutines."),
		candidate("engine_b", "major", 0, 1, 0, "http://mirror2.example/post", "Go  Concurrency   Patterns", "A deep dive  into goroutines."),
	}

	out := Deduplicate(in, cfg())
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	// First-seen representative wins.
	if out[0].URL != "http://mirror1.example/post" {
		t.Errorf("representative URL = %q", out[0].URL)
	}
}

func TestDeduplicateBySimilarity(t *testing.T) {
	in := []types.CandidateResult{
		candidate("engine_a", "major", 0, 0, 0, "http://a.example/1", "Introduction to Rust Programming Language", "snippet one"),
		candidate("engine_b", "major", 0, 1, 0, "http://b.example/2", "Introduction to Rust Programming", "snippet two"),
		candidate("engine_a", "major", 0, 0, 1, "http://c.example/3", "Completely Different Topic", "snippet three"),
	}

	out := Deduplicate(in, cfg())
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestDeduplicateKeepsDistinct(t *testing.T) {
	in := []types.CandidateResult{
		candidate("engine_a", "major", 0, 0, 0, "http://x.com/a", "Paper A", "first"),
		candidate("engine_a", "major", 0, 0, 1, "http://x.com/b", "Paper B", "second"),
	}
	out := Deduplicate(in, cfg())
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

// --- Determinism ---

func TestDeduplicateIdempotent(t *testing.T) {
	in := []types.CandidateResult{
		candidate("engine_b", "extended", 1, 0, 0, "http://x.com/a?utm_source=rss", "Python Tutorial", "learn python"),
		candidate("engine_a", "major", 0, 0, 0, "http://x.com/a", "Python Tutorial", "learn python"),
		candidate("engine_a", "major", 0, 0, 1, "http://y.com/b", "Other Result", "something else"),
	}

	first := Deduplicate(in, cfg())
	second := Deduplicate(in, cfg())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("dedup not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	// Representative must be the tier-0 candidate regardless of input order.
	if first[0].Engine != "engine_a" || first[0].Tier != "major" {
		t.Errorf("representative = %s/%s, want major/engine_a", first[0].Tier, first[0].Engine)
	}
}

func TestDeduplicateInputOrderIrrelevant(t *testing.T) {
	a := candidate("engine_a", "major", 0, 0, 0, "http://x.com/a", "Python Tutorial", "")
	b := candidate("engine_b", "extended", 1, 0, 0, "http://www.x.com/a", "Python Tutorial", "")

	out1 := Deduplicate([]types.CandidateResult{a, b}, cfg())
	out2 := Deduplicate([]types.CandidateResult{b, a}, cfg())
	if !reflect.DeepEqual(out1, out2) {
		t.Errorf("output depends on input order:\n%v\n%v", out1, out2)
	}
}

// --- Merge invariant ---

func TestDeduplicateMergeInvariant(t *testing.T) {
	in := []types.CandidateResult{
		candidate("a", "major", 0, 0, 0, "http://x.com/1", "One", ""),
		candidate("b", "major", 0, 1, 0, "http://x.com/1", "One", ""),
		candidate("a", "major", 0, 0, 1, "http://x.com/2", "Two", ""),
		candidate("b", "major", 0, 1, 1, "http://x.com/3", "Three", ""),
	}

	out := Deduplicate(in, cfg())
	if len(out) > len(in) {
		t.Errorf("dedup grew the set: %d > %d", len(out), len(in))
	}

	// Every input engine contribution must land in exactly one group.
	total := 0
	for _, g := range out {
		if len(g.FoundBy) == 0 {
			t.Errorf("group %s has no contributing engines", g.GroupID)
		}
		total += len(g.FoundBy)
	}
	if total != len(in) {
		t.Errorf("contributions = %d, want %d", total, len(in))
	}
}

func TestRededupPreservesContributors(t *testing.T) {
	// Tier-by-tier accumulation reduplicates earlier representatives
	// together with fresh candidates; the merged sets must survive.
	tier0 := Deduplicate([]types.CandidateResult{
		candidate("engine_a", "major", 0, 0, 0, "http://x.com/a", "Python Tutorial", ""),
		candidate("engine_b", "major", 0, 1, 0, "http://x.com/a", "Python Tutorial", ""),
	}, cfg())

	all := append(tier0,
		candidate("engine_c", "extended", 1, 0, 0, "http://x.com/a?utm_source=rss", "Python Tutorial", ""))
	out := Deduplicate(all, cfg())
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if !reflect.DeepEqual(out[0].FoundBy, []string{"engine_a", "engine_b", "engine_c"}) {
		t.Errorf("FoundBy = %v", out[0].FoundBy)
	}
	if !reflect.DeepEqual(out[0].FoundInTiers, []string{"major", "extended"}) {
		t.Errorf("FoundInTiers = %v", out[0].FoundInTiers)
	}
}

func TestMergeFillsEmptyMetadata(t *testing.T) {
	a := candidate("a", "major", 0, 0, 0, "http://x.com/1", "One", "snippet")
	b := candidate("b", "major", 0, 1, 0, "http://x.com/1", "One", "snippet")
	b.PublishedDate = "2024-05-01"
	b.ContentType = "text/html"

	out := Deduplicate([]types.CandidateResult{a, b}, cfg())
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].PublishedDate != "2024-05-01" {
		t.Errorf("PublishedDate = %q, want filled from duplicate", out[0].PublishedDate)
	}
	if out[0].ContentType != "text/html" {
		t.Errorf("ContentType = %q, want filled from duplicate", out[0].ContentType)
	}
}

// --- Helpers ---

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Go Concurrency", "goroutines and channels")
	b := Fingerprint("go  concurrency", "Goroutines  and channels")
	if a != b {
		t.Error("fingerprint should be case- and whitespace-insensitive")
	}
	c := Fingerprint("Go Concurrency", "different snippet")
	if a == c {
		t.Error("different content should produce different fingerprints")
	}
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "learn go fast", "learn go fast", 1.0, 1.0},
		{"disjoint", "learn go fast", "完全 different words here", 0.0, 0.0},
		{"partial", "learn go fast now", "learn go fast", 0.7, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleSimilarity(tokenize(tt.a), tokenize(tt.b))
			if got < tt.min || got > tt.max {
				t.Errorf("similarity = %f, want in [%f, %f]", got, tt.min, tt.max)
			}
		})
	}
}
