// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pdiddy/websearch-pro/internal/httputil"
	"github.com/pdiddy/websearch-pro/internal/query"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

// duckduckgoAPIBase is the DuckDuckGo HTML endpoint. Declared as a var so
// tests can substitute an httptest server.
var duckduckgoAPIBase = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It understands the
// full operator syntax, so the structured query is rendered back into a
// search string verbatim.
type DuckDuckGo struct {
	Client *http.Client
	Config types.HTTPConfig
}

// Name returns the engine identifier.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches one results page and parses it into candidates.
func (d *DuckDuckGo) Search(ctx context.Context, q types.SearchQuery, limit int) ([]types.CandidateResult, error) {
	text := query.Render(q)
	if text == "" {
		return nil, fmt.Errorf("empty duckduckgo query")
	}

	reqURL := duckduckgoAPIBase + "?q=" + url.QueryEscape(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, d.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing duckduckgo response: %w", err)
	}

	now := time.Now().UTC()
	var results []types.CandidateResult
	for _, block := range findByClass(doc, "div", "result") {
		if limit > 0 && len(results) >= limit {
			break
		}

		link := firstByClass(block, "a", "result__a")
		if link == nil {
			continue
		}
		target := resolveRedirect(attr(link, "href"))
		title := strings.TrimSpace(textContent(link))
		if target == "" || title == "" {
			continue
		}

		var snippet string
		if sn := firstByClass(block, "a", "result__snippet"); sn != nil {
			snippet = strings.TrimSpace(textContent(sn))
		}

		results = append(results, types.CandidateResult{
			Title:     title,
			URL:       target,
			Snippet:   snippet,
			Engine:    d.Name(),
			Rank:      len(results) + 1,
			FetchedAt: now,
		})
	}
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<encoded> redirect links.
// Direct links pass through unchanged.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// findByClass walks the tree collecting elements of the given tag carrying
// the given class.
func findByClass(n *html.Node, tag, class string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag && hasClass(node, class) {
			found = append(found, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// firstByClass returns the first matching descendant, or nil.
func firstByClass(n *html.Node, tag, class string) *html.Node {
	if found := findByClass(n, tag, class); len(found) > 0 {
		return found[0]
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates all text nodes under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
