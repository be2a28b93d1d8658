// Package search adapts an external web-search provider. Retrieval is a
// best-effort augmentation input: every failure degrades to an empty result
// list and must never surface to the user.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/eargai/earg-backend/internal/config"
)

// Result is one ranked snippet from the provider.
type Result struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Client calls a Serper-style JSON search API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient builds the retrieval client from configuration. An empty API key
// yields a client that always returns no results.
func NewClient(cfg config.SearchConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

// Search returns at most maxResults ranked snippets for the query. Transport,
// provider and decode errors all fail soft to an empty slice.
func (c *Client) Search(ctx context.Context, query string, maxResults int) []Result {
	if c.apiKey == "" || query == "" || maxResults < 1 {
		return nil
	}

	payload, err := json.Marshal(searchRequest{Query: query, Num: maxResults})
	if err != nil {
		log.Printf("[search] failed to marshal request: %v", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[search] failed to build request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[search] provider call failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[search] provider returned status %d", resp.StatusCode)
		return nil
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		log.Printf("[search] failed to decode response: %v", err)
		return nil
	}

	results := make([]Result, 0, maxResults)
	for _, item := range decoded.Organic {
		if item.Snippet == "" {
			continue
		}
		source := item.Title
		if source == "" {
			source = item.Link
		}
		results = append(results, Result{Source: source, Snippet: item.Snippet})
		if len(results) == maxResults {
			break
		}
	}
	return results
}
