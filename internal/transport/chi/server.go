// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parcelgrid/propsearch/internal/cache"
	"github.com/parcelgrid/propsearch/internal/domain"
	dsearch "github.com/parcelgrid/propsearch/internal/domain/search"
	healthuc "github.com/parcelgrid/propsearch/internal/usecase/health"
	statsuc "github.com/parcelgrid/propsearch/internal/usecase/stats"
)

// Error codes returned in the body of failed responses.
const (
	codeBadRequest    = "bad_request"
	codeEmptyQuery    = "empty_query"
	codeEngineError   = "engine_error"
	codeInternalError = "internal_error"
)

// Searcher runs a query through the search pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, page, size int, useCache bool) (*dsearch.Result, error)
}

// StatsReporter produces cache statistics and clears cache scopes.
type StatsReporter interface {
	Report(ctx context.Context) statsuc.Report
	Clear(ctx context.Context, scope cache.ClearScope) (int, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	search        Searcher
	stats         StatsReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, stats StatsReporter, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		stats:  stats,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, codeEmptyQuery),
		sentinelHandler(domain.ErrEngine, http.StatusBadGateway, codeEngineError),
	}
	return s
}

// Routes mounts all API handlers on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/search", s.handleSearch)
	r.Get("/api/cache/stats", s.handleCacheStats)
	r.Post("/api/cache/clear", s.handleCacheClear)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// --- Request / response shapes ---

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchRequest struct {
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	UseCache *bool  `json:"use_cache"`
}

type performanceResponse struct {
	ParseTimeMS     float64 `json:"parse_time_ms"`
	EmbeddingTimeMS float64 `json:"embedding_time_ms"`
	EngineTimeMS    float64 `json:"engine_time_ms"`
	TotalTimeMS     float64 `json:"total_time_ms"`
	Method          string  `json:"method"`
	ServedFrom      string  `json:"served_from"`
}

type hitResponse struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

type searchResponse struct {
	Results      []hitResponse       `json:"results"`
	TotalMatches int                 `json:"total_matches"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"page_size"`
	Performance  performanceResponse `json:"performance"`
}

type clearRequest struct {
	Scope string `json:"scope"`
}

type clearResponse struct {
	Scope   string `json:"scope"`
	Cleared int    `json:"cleared"`
}

// --- Handlers ---

// handleSearch handles POST /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// A blank query would otherwise fall through to a match-all keyword
	// search; reject it before it reaches the pipeline.
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeEmptyQuery, "Query is required")
		return
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.Page < 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "page must be positive")
		return
	}
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	res, err := s.search.Search(r.Context(), req.Query, req.Page, req.PageSize, useCache)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	size := req.PageSize
	if size <= 0 {
		size = len(res.Hits)
	}
	writeJSON(w, http.StatusOK, searchResultToResponse(res, req.Page, size))
}

// handleCacheStats handles GET /api/cache/stats.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Report(r.Context()))
}

// handleCacheClear handles POST /api/cache/clear. An empty body clears
// everything.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	scope, err := cache.ParseClearScope(req.Scope)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	cleared, err := s.stats.Clear(r.Context(), scope)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{Scope: string(scope), Cleared: cleared})
}

// handleHealth handles GET /health. Degraded components report 200 with
// per-check detail; only the handler itself failing yields a non-200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// --- Helpers ---

func searchResultToResponse(res *dsearch.Result, page, size int) searchResponse {
	hits := make([]hitResponse, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = hitResponse{ID: h.ID, Score: h.Score, Fields: h.Fields}
	}
	return searchResponse{
		Results:      hits,
		TotalMatches: res.TotalMatches,
		Page:         page,
		PageSize:     size,
		Performance: performanceResponse{
			ParseTimeMS:     durationMS(res.Performance.ParseTime),
			EmbeddingTimeMS: durationMS(res.Performance.EmbeddingTime),
			EngineTimeMS:    durationMS(res.Performance.EngineTime),
			TotalTimeMS:     durationMS(res.Performance.TotalTime),
			Method:          string(res.Performance.Method),
			ServedFrom:      string(res.Performance.ServedFrom),
		},
	}
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage maps an error to a message safe to expose. Anything that
// is not a known sentinel leaks no detail.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrEngine,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
