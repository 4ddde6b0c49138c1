// Package stats aggregates cache hit/miss counters, popular queries, and
// backend health into the observability report served over HTTP.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/parcelgrid/propsearch/internal/cache"
)

// Reporter is the consumer interface over the cache coordinator.
type Reporter interface {
	Counters(ctx context.Context) map[cache.Namespace]cache.Counter
	PopularQueries(ctx context.Context, limit int) []cache.QueryCount
	KeyCount(ctx context.Context) int
	Ping(ctx context.Context) error
	TTL(ns cache.Namespace) time.Duration
	Clear(ctx context.Context, scope cache.ClearScope) (int, error)
}

// NamespaceStats holds hit/miss totals and derived rate for one namespace.
type NamespaceStats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds int     `json:"ttl_seconds"`
}

// Backend holds cache backend health details.
type Backend struct {
	Connected bool    `json:"connected"`
	TotalKeys int     `json:"total_keys"`
	LatencyMS float64 `json:"latency_ms"`
}

// Report is the full cache statistics snapshot.
type Report struct {
	Namespaces     map[string]NamespaceStats `json:"namespaces"`
	PopularQueries []cache.QueryCount        `json:"popular_queries"`
	Backend        Backend                   `json:"backend"`
}

// Service produces cache statistics reports.
type Service struct {
	cache        Reporter
	popularLimit int
}

// New creates a stats service. popularLimit bounds the popular-queries list.
func New(cache Reporter, popularLimit int) *Service {
	if popularLimit <= 0 {
		popularLimit = 10
	}
	return &Service{cache: cache, popularLimit: popularLimit}
}

// Report gathers the current statistics snapshot.
func (s *Service) Report(ctx context.Context) Report {
	counters := s.cache.Counters(ctx)

	namespaces := make(map[string]NamespaceStats, len(counters))
	for ns, c := range counters {
		namespaces[string(ns)] = NamespaceStats{
			Hits:       c.Hits,
			Misses:     c.Misses,
			HitRate:    hitRate(c),
			TTLSeconds: int(s.cache.TTL(ns).Seconds()),
		}
	}

	backend := Backend{TotalKeys: s.cache.KeyCount(ctx)}
	pingStart := time.Now()
	if err := s.cache.Ping(ctx); err == nil {
		backend.Connected = true
		backend.LatencyMS = round2(float64(time.Since(pingStart).Microseconds()) / 1000)
	}

	return Report{
		Namespaces:     namespaces,
		PopularQueries: s.cache.PopularQueries(ctx, s.popularLimit),
		Backend:        backend,
	}
}

// Clear removes cache entries in scope and returns the count removed.
func (s *Service) Clear(ctx context.Context, scope cache.ClearScope) (int, error) {
	return s.cache.Clear(ctx, scope)
}

func hitRate(c cache.Counter) float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return round2(float64(c.Hits) / float64(total) * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
