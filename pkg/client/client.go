// Package client is a typed Go client for the propsearch HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the propsearch API client entry point.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("propsearch: base URL required")
	}
	cfg := &clientConfig{httpClient: http.DefaultClient}
	for _, o := range opts {
		o.apply(cfg)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		http:    cfg.httpClient,
	}, nil
}

// SearchRequest is the body of a search call. Zero Page means page 1 and
// zero PageSize means the server default. UseCache nil means true.
type SearchRequest struct {
	Query    string `json:"query"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

// Performance is the server-side timing breakdown for one request.
type Performance struct {
	ParseTimeMS     float64 `json:"parse_time_ms"`
	EmbeddingTimeMS float64 `json:"embedding_time_ms"`
	EngineTimeMS    float64 `json:"engine_time_ms"`
	TotalTimeMS     float64 `json:"total_time_ms"`
	Method          string  `json:"method"`
	ServedFrom      string  `json:"served_from"`
}

// Hit is one ranked search result.
type Hit struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SearchResponse is a completed search result page.
type SearchResponse struct {
	Results      []Hit       `json:"results"`
	TotalMatches int         `json:"total_matches"`
	Page         int         `json:"page"`
	PageSize     int         `json:"page_size"`
	Performance  Performance `json:"performance"`
}

// Search runs a natural-language property query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NamespaceStats holds hit/miss totals for one cache namespace.
type NamespaceStats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds int     `json:"ttl_seconds"`
}

// QueryCount pairs a normalized query with its popularity count.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Backend holds cache backend health details.
type Backend struct {
	Connected bool    `json:"connected"`
	TotalKeys int     `json:"total_keys"`
	LatencyMS float64 `json:"latency_ms"`
}

// CacheStats is the cache statistics snapshot.
type CacheStats struct {
	Namespaces     map[string]NamespaceStats `json:"namespaces"`
	PopularQueries []QueryCount              `json:"popular_queries"`
	Backend        Backend                   `json:"backend"`
}

// CacheStats fetches the current cache statistics.
func (c *Client) CacheStats(ctx context.Context) (*CacheStats, error) {
	var resp CacheStats
	if err := c.do(ctx, http.MethodGet, "/api/cache/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCache invalidates cache entries in scope ("all", "plan", "embedding",
// "result", or the namespace names "filter", "embed", "query"; empty means
// all) and returns how many entries were removed.
func (c *Client) ClearCache(ctx context.Context, scope string) (int, error) {
	var resp struct {
		Cleared int `json:"cleared"`
	}
	body := map[string]string{"scope": scope}
	if err := c.do(ctx, http.MethodPost, "/api/cache/clear", body, &resp); err != nil {
		return 0, err
	}
	return resp.Cleared, nil
}

// Health reports per-component health as returned by the server.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("propsearch: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("propsearch: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("propsearch: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("propsearch: decode response: %w", err)
		}
	}
	return nil
}
