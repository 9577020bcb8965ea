// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import "net/url"

// ArchiveLink points at a web-archive service's view of a result URL.
type ArchiveLink struct {
	Service string
	URL     string
}

// ArchiveLinks builds archive lookup links for a result URL without any
// network round-trip: the Wayback Machine wildcard search and the
// archive.today lookup both resolve in the reader's browser.
func ArchiveLinks(raw string) []ArchiveLink {
	if raw == "" {
		return nil
	}
	encoded := url.QueryEscape(raw)
	return []ArchiveLink{
		{Service: "Wayback Machine", URL: "https://web.archive.org/web/*/" + encoded},
		{Service: "archive.today", URL: "https://archive.today/" + encoded},
	}
}
