package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header: got %q", got)
		}

		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "3 bed in austin" || req.Page != 2 {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Results:      []Hit{{ID: "prop:1", Score: 0.9}},
			TotalMatches: 17,
			Page:         2,
			Performance:  Performance{Method: "hybrid_semantic", ServedFrom: "engine"},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithAPIKey("secret"))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Search(context.Background(), SearchRequest{Query: "3 bed in austin", Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "prop:1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if resp.TotalMatches != 17 {
		t.Errorf("total: got %d, want 17", resp.TotalMatches)
	}
	if resp.Performance.Method != "hybrid_semantic" {
		t.Errorf("method: got %q", resp.Performance.Method)
	}
}

func TestSearch_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "engine_error",
			"message": "search engine unavailable",
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Search(context.Background(), SearchRequest{Query: "condos"})
	if !errors.Is(err, ErrEngine) {
		t.Fatalf("expected ErrEngine, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status: got %d", apiErr.StatusCode)
	}
}

func TestSearch_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "bad_request", "message": "invalid api key"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithAPIKey("wrong"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Search(context.Background(), SearchRequest{Query: "anything"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCacheStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cache/stats" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(CacheStats{
			Namespaces: map[string]NamespaceStats{
				"embed": {Hits: 4, Misses: 1, HitRate: 80, TTLSeconds: 3600},
			},
			Backend: Backend{Connected: true, TotalKeys: 5},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	stats, err := c.CacheStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Namespaces["embed"].Hits != 4 {
		t.Errorf("embed hits: got %d, want 4", stats.Namespaces["embed"].Hits)
	}
	if !stats.Backend.Connected {
		t.Error("expected backend connected")
	}
}

func TestClearCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["scope"] != "result" {
			t.Errorf("scope: got %q", body["scope"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"scope": "result", "cleared": 3})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	cleared, err := c.ClearCache(context.Background(), "result")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 3 {
		t.Errorf("cleared: got %d, want 3", cleared)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Health{
			Status: "degraded",
			Checks: map[string]string{"cache": "ok", "embedding": "error"},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != "degraded" || h.Checks["embedding"] != "error" {
		t.Errorf("unexpected report: %+v", h)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
