// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/jeranaias/wikichat/internal/util"
)

// =============================================================================
// WIKIPEDIA CLIENT
// =============================================================================

// DefaultWikipediaAPI is the MediaWiki endpoint for English Wikipedia.
const DefaultWikipediaAPI = "https://en.wikipedia.org/w/api.php"

// WikipediaClient fetches article introductions through the MediaWiki
// API, with a process-local file cache in front and a rate limiter so
// a tool-happy model cannot hammer the public endpoint.
type WikipediaClient struct {
	// BaseURL is the MediaWiki api.php endpoint.
	BaseURL string

	// CacheDir holds one JSON file per query hash. Empty disables
	// the cache.
	CacheDir string

	// HTTPClient is used for all requests.
	HTTPClient *http.Client

	limiter *rate.Limiter
}

// NewWikipediaClient creates a client caching under cacheDir.
func NewWikipediaClient(cacheDir string) *WikipediaClient {
	return &WikipediaClient{
		BaseURL:    DefaultWikipediaAPI,
		CacheDir:   cacheDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		// One request per second, small burst for the two-step
		// search+extract sequence.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

// WikipediaTool builds the fetch_wikipedia_content tool.
func WikipediaTool(client *WikipediaClient) *Tool {
	return &Tool{Definition: WikipediaDefinition(), Exec: client.exec}
}

// AuthoritativeTextTool builds the fetch_real_authoritative_text tool,
// which shares the Wikipedia executor.
func AuthoritativeTextTool(client *WikipediaClient) *Tool {
	return &Tool{Definition: AuthoritativeTextDefinition(), Exec: client.exec}
}

func (c *WikipediaClient) exec(ctx context.Context, args map[string]any) Result {
	query, ok := args["search_query"].(string)
	if !ok || query == "" {
		return Errorf("Missing required arguments: 'search_query'")
	}
	return c.Fetch(ctx, query)
}

// =============================================================================
// FETCH
// =============================================================================

// Fetch resolves a search query to the introduction of the most
// relevant article. Cache hits skip the network entirely; only
// successful lookups are cached so a transient failure can be retried.
func (c *WikipediaClient) Fetch(ctx context.Context, query string) Result {
	cachePath := c.cachePath(query)
	if cachePath != "" {
		if cached, ok := readCachedResult(cachePath); ok {
			return cached
		}
	}

	result := c.fetchRemote(ctx, query)

	if cachePath != "" && result.OK() {
		data, err := json.Marshal(result)
		if err == nil {
			err = util.AtomicWriteFile(cachePath, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving cache file: %v\n", err)
		}
	}
	return result
}

func (c *WikipediaClient) fetchRemote(ctx context.Context, query string) Result {
	// Step 1: resolve the query to the best-matching article title.
	searchParams := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
	}
	var searchResp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, searchParams, &searchResp); err != nil {
		return Errorf("%v", err)
	}
	if len(searchResp.Query.Search) == 0 {
		return Errorf("No Wikipedia article found for '%s'", query)
	}
	title := searchResp.Query.Search[0].Title

	// Step 2: fetch the plain-text introduction for that title.
	contentParams := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"titles":      {title},
		"prop":        {"extracts"},
		"exintro":     {"true"},
		"explaintext": {"true"},
		"redirects":   {"1"},
	}
	var contentResp struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, contentParams, &contentResp); err != nil {
		return Errorf("%v", err)
	}

	for pageID, page := range contentResp.Query.Pages {
		if pageID == "-1" {
			break
		}
		return Success(strings.TrimSpace(page.Extract), page.Title)
	}
	return Errorf("No Wikipedia article found for '%s'", query)
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// =============================================================================
// CACHE
// =============================================================================

// cachePath derives the cache file for a query. The query is
// NFC-normalized before hashing so visually identical queries share an
// entry regardless of how the model composed its runes.
func (c *WikipediaClient) cachePath(query string) string {
	if c.CacheDir == "" {
		return ""
	}
	h := fnv.New64a()
	h.Write([]byte(norm.NFC.String(query)))
	return filepath.Join(c.CacheDir, fmt.Sprintf("%016x.json", h.Sum64()))
}

func readCachedResult(path string) (Result, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		// Corrupted cache entry, refetch.
		return Result{}, false
	}
	return r, true
}
