// Package search orchestrates the hybrid search pipeline: filter-plan
// parsing, embedding lookup, engine query construction, execution, and
// result-cache population, with a deterministic keyword-only fallback when
// embeddings are unavailable.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parcelgrid/propsearch/internal/domain"
	"github.com/parcelgrid/propsearch/internal/domain/plan"
	dsearch "github.com/parcelgrid/propsearch/internal/domain/search"
	"github.com/parcelgrid/propsearch/internal/engine"
	"github.com/parcelgrid/propsearch/internal/metrics"
)

// Config holds orchestrator tuning.
type Config struct {
	// CandidatePool is the KNN candidate count for hybrid queries.
	CandidatePool int
	// HybridTimeout bounds engine execution on the hybrid path.
	HybridTimeout time.Duration
	// KeywordTimeout bounds engine execution on the keyword fallback path.
	KeywordTimeout time.Duration
	// DefaultPageSize and MaxPageSize bound the size argument.
	DefaultPageSize int
	MaxPageSize     int
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.CandidatePool <= 0 {
		c.CandidatePool = 100
	}
	if c.HybridTimeout <= 0 {
		c.HybridTimeout = time.Second
	}
	if c.KeywordTimeout <= 0 {
		c.KeywordTimeout = 2 * time.Second
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
}

// Service is the hybrid search orchestrator.
type Service struct {
	cache  Cache
	eng    engine.Engine
	embed  Embedder
	parse  ParseFunc
	cfg    Config
	logger *zap.Logger
}

// New creates an orchestrator.
func New(cache Cache, eng engine.Engine, embed Embedder, parse ParseFunc, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{cache: cache, eng: eng, embed: embed, parse: parse, cfg: cfg, logger: logger}
}

// Search runs one query through the pipeline. It returns a result (possibly
// via the degraded keyword-only path, visible through the method tag) or a
// single engine-failure error; cache and embedding problems never fail the
// request.
func (s *Service) Search(
	ctx context.Context, query string, page, size int, useCache bool,
) (*dsearch.Result, error) {
	start := time.Now()

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}

	norm := domain.NormalizeQuery(query)

	// Tier 2: filter plan, cache-or-compute. The parse also runs on the
	// no-cache path since the engine query needs it either way.
	parseStart := time.Now()
	p := s.planFor(ctx, norm, query)
	parseTime := time.Since(parseStart)
	planBytes := p.Serialize()

	// Tier 1: full result.
	if useCache {
		if cached, ok := s.cache.ResultFor(ctx, norm, page, planBytes); ok {
			cached.Performance = dsearch.Performance{
				TotalTime:  time.Since(start),
				Method:     cached.Performance.Method,
				ServedFrom: dsearch.ServedFromResultCache,
			}
			metrics.SearchRequestsTotal.WithLabelValues(string(cached.Performance.Method), "cached").Inc()
			return cached, nil
		}
	}

	// Tier 3: embedding, cache-or-compute behind the gateway.
	embedStart := time.Now()
	vector, embedErr := s.embed.Embed(ctx, query)
	embedTime := time.Since(embedStart)

	q := &engine.Query{
		Plan:    p,
		Offset:  (page - 1) * size,
		Limit:   size,
		Timeout: s.cfg.KeywordTimeout,
	}
	method := dsearch.MethodKeywordOnly

	if embedErr != nil {
		// Degrade, never fail: keyword-only query from the plan alone.
		// An empty plan becomes a match-everything query in the engine.
		s.logger.Warn("Embedding unavailable, using keyword-only search",
			zap.String("query", norm),
			zap.Error(embedErr),
		)
	} else {
		q.Vector = vector
		q.CandidatePool = s.cfg.CandidatePool
		q.Timeout = s.cfg.HybridTimeout
		method = dsearch.MethodHybridSemantic
	}

	engineStart := time.Now()
	engRes, err := s.eng.Execute(ctx, q)
	engineTime := time.Since(engineStart)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(method), "error").Inc()
		return nil, fmt.Errorf("execute %s query: %v: %w", method, err, domain.ErrEngine)
	}

	res := toResult(engRes)
	res.Performance = dsearch.Performance{
		ParseTime:     parseTime,
		EmbeddingTime: embedTime,
		EngineTime:    engineTime,
		TotalTime:     time.Since(start),
		Method:        method,
		ServedFrom:    dsearch.ServedFromEngine,
	}

	// Only first pages are cached; deeper pages are rare enough that
	// caching them would fragment the namespace.
	if useCache && page == 1 {
		s.cache.StoreResult(ctx, norm, page, planBytes, res)
	}

	metrics.SearchRequestsTotal.WithLabelValues(string(method), "ok").Inc()
	metrics.SearchDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	return res, nil
}

// planFor returns the cached plan for normalized text or parses the original
// text and stores the result. Parsing is cheap; the cache exists to keep the
// hot path allocation-free under identical query storms.
func (s *Service) planFor(ctx context.Context, norm, original string) plan.Plan {
	if cached, ok := s.cache.PlanFor(ctx, norm); ok {
		return cached
	}
	p := s.parse(original)
	s.cache.StorePlan(ctx, norm, p)
	return p
}

func toResult(engRes *engine.Result) *dsearch.Result {
	hits := make([]dsearch.ScoredRecord, 0, len(engRes.Hits))
	for _, h := range engRes.Hits {
		hits = append(hits, dsearch.ScoredRecord{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return &dsearch.Result{Hits: hits, TotalMatches: engRes.Total}
}
