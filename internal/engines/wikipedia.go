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

// wikipediaAPIBase is the MediaWiki API endpoint. Declared as a var so
// tests can substitute an httptest server.
var wikipediaAPIBase = "https://en.wikipedia.org/w/api.php"

// Wikipedia queries the MediaWiki opensearch API. The API has no operator
// syntax, so only terms and phrases are sent.
type Wikipedia struct {
	Client *http.Client
	Config types.HTTPConfig
}

// Name returns the engine identifier.
func (w *Wikipedia) Name() string { return "wikipedia" }

// Search queries the opensearch endpoint. The response is a four-element
// array: [query, [titles], [descriptions], [urls]].
func (w *Wikipedia) Search(ctx context.Context, q types.SearchQuery, limit int) ([]types.CandidateResult, error) {
	text := query.RenderBare(q)
	if text == "" {
		return nil, fmt.Errorf("empty wikipedia query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"action": {"opensearch"},
		"format": {"json"},
		"limit":  {fmt.Sprint(limit)},
		"search": {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", w.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, w.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned HTTP %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing wikipedia response: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("wikipedia returned %d array elements, want 4", len(raw))
	}

	var titles, descriptions, urls []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("parsing wikipedia titles: %w", err)
	}
	if err := json.Unmarshal(raw[2], &descriptions); err != nil {
		return nil, fmt.Errorf("parsing wikipedia descriptions: %w", err)
	}
	if err := json.Unmarshal(raw[3], &urls); err != nil {
		return nil, fmt.Errorf("parsing wikipedia urls: %w", err)
	}

	now := time.Now().UTC()
	var results []types.CandidateResult
	for i, title := range titles {
		if i >= len(urls) || urls[i] == "" {
			continue
		}
		var snippet string
		if i < len(descriptions) {
			snippet = descriptions[i]
		}
		results = append(results, types.CandidateResult{
			Title:       title,
			URL:         urls[i],
			Snippet:     snippet,
			Engine:      w.Name(),
			Rank:        len(results) + 1,
			FetchedAt:   now,
			ContentType: "text/html",
		})
	}
	return results, nil
}
