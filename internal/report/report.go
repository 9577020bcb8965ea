// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders ranked search results and session diagnostics as
// plain-text tables, JSON, or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(sess types.SearchSession, w io.Writer) {
	if len(sess.Ranked) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-55s  %-35s  %s\n",
		"Rank", "Score", "Title", "Host", "Found by")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range sess.Ranked {
		fmt.Fprintf(w, "%-4d  %-5d  %-55s  %-35s  %s\n",
			i+1, r.Score, truncate(r.Title, 55), truncate(hostOf(r), 35), strings.Join(r.FoundBy, ","))
	}

	fmt.Fprintf(w, "\n%d results for %q\n", len(sess.Ranked), sess.Query.Original)
}

// FormatJSON writes the ranked results as indented JSON to w.
func FormatJSON(sess types.SearchSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sess.Ranked)
}

// FormatMarkdown writes a full session report: query, summary, ranked
// results with factor breakdowns, and the per-engine task table.
func FormatMarkdown(sess types.SearchSession, w io.Writer) {
	fmt.Fprintf(w, "# Search Report: %s\n\n", sess.Query.Original)
	fmt.Fprintf(w, "- Session: `%s`\n", sess.ID)
	fmt.Fprintf(w, "- Status: %s\n", sess.Status)
	if !sess.CreatedAt.IsZero() {
		fmt.Fprintf(w, "- Started: %s\n", sess.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "- Elapsed: %s\n", sess.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "- Unique results: %d\n\n", len(sess.Ranked))

	if len(sess.Ranked) > 0 {
		fmt.Fprintln(w, "## Results")
		fmt.Fprintln(w)
		for i, r := range sess.Ranked {
			fmt.Fprintf(w, "### %d. [%s](%s) — score %d\n\n", i+1, r.Title, r.URL, r.Score)
			if r.Snippet != "" {
				fmt.Fprintf(w, "%s\n\n", r.Snippet)
			}
			fmt.Fprintf(w, "Found by %s in tier %s.\n\n", strings.Join(r.FoundBy, ", "), strings.Join(r.FoundInTiers, ", "))
			if links := ArchiveLinks(r.URL); len(links) > 0 {
				parts := make([]string, len(links))
				for j, l := range links {
					parts[j] = fmt.Sprintf("[%s](%s)", l.Service, l.URL)
				}
				fmt.Fprintf(w, "Archived copies: %s\n\n", strings.Join(parts, " · "))
			}
			fmt.Fprintln(w, "| Factor | Contribution |")
			fmt.Fprintln(w, "|---|---|")
			for _, factor := range sortedFactors(r.Breakdown) {
				fmt.Fprintf(w, "| %s | %.1f |\n", factor, r.Breakdown[factor])
			}
			fmt.Fprintln(w)
		}
	}

	FormatTasksMarkdown(sess, w)
}

// FormatTasks writes the session's task-state table, the diagnostic view of
// which engines ran, failed, or were cancelled.
func FormatTasks(sess types.SearchSession, w io.Writer) {
	if len(sess.Tasks) == 0 {
		fmt.Fprintln(w, "No engine tasks.")
		return
	}

	fmt.Fprintf(w, "%-12s  %-14s  %-10s  %-8s  %s\n",
		"Tier", "Engine", "State", "Results", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, t := range sess.Tasks {
		fmt.Fprintf(w, "%-12s  %-14s  %-10s  %-8d  %s\n",
			t.Tier, t.Engine, t.State, t.ResultCount, truncate(t.Error, 40))
	}
}

// FormatTasksMarkdown writes the task-state table as a Markdown section.
func FormatTasksMarkdown(sess types.SearchSession, w io.Writer) {
	if len(sess.Tasks) == 0 {
		return
	}
	fmt.Fprintln(w, "## Engines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Tier | Engine | State | Results | Error |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, t := range sess.Tasks {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s |\n",
			t.Tier, t.Engine, t.State, t.ResultCount, t.Error)
	}
	fmt.Fprintln(w)
}

// hostOf extracts the host, preferring the scheme-less normalized URL.
func hostOf(r types.RankedResult) string {
	u := r.NormalizedURL
	if u == "" {
		u = r.URL
		if i := strings.Index(u, "://"); i >= 0 {
			u = u[i+3:]
		}
	}
	if i := strings.Index(u, "/"); i >= 0 {
		u = u[:i]
	}
	return u
}

func sortedFactors(breakdown map[string]float64) []string {
	factors := make([]string, 0, len(breakdown))
	for f := range breakdown {
		factors = append(factors, f)
	}
	// Largest contribution first; ties alphabetical.
	sort.Slice(factors, func(i, j int) bool {
		a, b := factors[i], factors[j]
		if breakdown[a] != breakdown[b] {
			return breakdown[a] > breakdown[b]
		}
		return a < b
	})
	return factors
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
