// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/websearch-pro/internal/httputil"
	"github.com/pdiddy/websearch-pro/internal/query"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

// hackernewsAPIBase is the Algolia Hacker News search endpoint. Declared as
// a var so tests can substitute an httptest server.
var hackernewsAPIBase = "https://hn.algolia.com/api/v1/search"

// HackerNews queries the Algolia Hacker News index, relevance-ordered.
type HackerNews struct {
	Client *http.Client
	Config types.HTTPConfig

	// APIKey is the optional Algolia API key. The public index answers
	// anonymous requests but rate-limits them harder.
	APIKey string
}

// Name returns the engine identifier.
func (h *HackerNews) Name() string { return "hackernews" }

type hnResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	StoryText string `json:"story_text"`
	ObjectID  string `json:"objectID"`
	CreatedAt string `json:"created_at"`
	Points    int    `json:"points"`
}

// Search queries the Algolia index for stories. Hits without an external
// URL link to the discussion page instead.
func (h *HackerNews) Search(ctx context.Context, q types.SearchQuery, limit int) ([]types.CandidateResult, error) {
	text := query.RenderBare(q)
	if text == "" {
		return nil, fmt.Errorf("empty hackernews query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":       {text},
		"tags":        {"story"},
		"hitsPerPage": {fmt.Sprint(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hackernewsAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", h.Config.UserAgent)
	if h.APIKey != "" {
		req.Header.Set("X-Algolia-API-Key", h.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("hackernews request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews returned HTTP %d", resp.StatusCode)
	}

	var body hnResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing hackernews response: %w", err)
	}

	now := time.Now().UTC()
	var results []types.CandidateResult
	for _, hit := range body.Hits {
		if limit > 0 && len(results) >= limit {
			break
		}
		if hit.Title == "" {
			continue
		}

		target := hit.URL
		if target == "" {
			target = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		published := ""
		if t, parseErr := time.Parse(time.RFC3339, hit.CreatedAt); parseErr == nil {
			published = t.Format("2006-01-02")
		}

		results = append(results, types.CandidateResult{
			Title:         hit.Title,
			URL:           target,
			Snippet:       hit.StoryText,
			Engine:        h.Name(),
			Rank:          len(results) + 1,
			FetchedAt:     now,
			PublishedDate: published,
		})
	}
	return results, nil
}
