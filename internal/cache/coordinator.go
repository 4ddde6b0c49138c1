// Package cache coordinates the three logical cache namespaces (filter-plan,
// embedding, result) over a pluggable backend. Caching is an optimization,
// never a correctness dependency: every backend error is swallowed at this
// boundary and reported as a miss or no-op.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/parcelgrid/propsearch/internal/db"
	"github.com/parcelgrid/propsearch/internal/domain/plan"
	"github.com/parcelgrid/propsearch/internal/domain/search"
	"github.com/parcelgrid/propsearch/internal/metrics"
)

// Namespace identifies one of the three logical cache tiers.
type Namespace string

const (
	// NamespacePlan caches parsed filter plans by normalized query text.
	NamespacePlan Namespace = "filter"
	// NamespaceEmbedding caches embedding vectors by normalized query text.
	NamespaceEmbedding Namespace = "embed"
	// NamespaceResult caches full search results by normalized query text,
	// page, and serialized plan.
	NamespaceResult Namespace = "query"
)

// Namespaces lists all cache tiers in reporting order.
var Namespaces = []Namespace{NamespacePlan, NamespaceEmbedding, NamespaceResult}

// Config holds coordinator settings.
type Config struct {
	KeyPrefix    string
	PlanTTL      time.Duration
	EmbeddingTTL time.Duration
	ResultTTL    time.Duration
	PopularTTL   time.Duration
	StatsTTL     time.Duration
}

// ApplyDefaults fills zero fields with default TTLs.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "propsearch:"
	}
	if c.PlanTTL <= 0 {
		c.PlanTTL = 600 * time.Second
	}
	if c.EmbeddingTTL <= 0 {
		c.EmbeddingTTL = 3600 * time.Second
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = 300 * time.Second
	}
	if c.PopularTTL <= 0 {
		c.PopularTTL = 1800 * time.Second
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = 24 * time.Hour
	}
}

// Coordinator owns all cache entry lifetimes. It is safe for concurrent use;
// every operation is a single backend round-trip with no cross-request
// critical section.
type Coordinator struct {
	store  db.Store
	cfg    Config
	logger *zap.Logger
}

// New creates a coordinator over the given backend.
func New(store db.Store, cfg Config, logger *zap.Logger) *Coordinator {
	cfg.ApplyDefaults()
	return &Coordinator{store: store, cfg: cfg, logger: logger}
}

// TTL returns the configured TTL for a namespace.
func (c *Coordinator) TTL(ns Namespace) time.Duration {
	switch ns {
	case NamespaceEmbedding:
		return c.cfg.EmbeddingTTL
	case NamespaceResult:
		return c.cfg.ResultTTL
	default:
		return c.cfg.PlanTTL
	}
}

// --- Filter-plan namespace ---

// PlanFor returns the cached plan for normalized query text.
func (c *Coordinator) PlanFor(ctx context.Context, normText string) (plan.Plan, bool) {
	data, ok := c.get(ctx, NamespacePlan, c.key(NamespacePlan, normText))
	if !ok {
		return plan.Plan{}, false
	}
	p, err := plan.Deserialize(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached plan", zap.Error(err))
		return plan.Plan{}, false
	}
	return p, true
}

// StorePlan caches a parsed plan.
func (c *Coordinator) StorePlan(ctx context.Context, normText string, p plan.Plan) {
	c.set(ctx, NamespacePlan, c.key(NamespacePlan, normText), p.Serialize(), c.cfg.PlanTTL)
}

// --- Embedding namespace ---

// EmbeddingFor returns the cached embedding vector for normalized query text.
func (c *Coordinator) EmbeddingFor(ctx context.Context, normText string) ([]float32, bool) {
	data, ok := c.get(ctx, NamespaceEmbedding, c.key(NamespaceEmbedding, normText))
	if !ok {
		return nil, false
	}
	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.Error(err))
		return nil, false
	}
	return vec, true
}

// StoreEmbedding caches an embedding vector.
func (c *Coordinator) StoreEmbedding(ctx context.Context, normText string, vec []float32) {
	c.set(ctx, NamespaceEmbedding, c.key(NamespaceEmbedding, normText), vectorToBytes(vec), c.cfg.EmbeddingTTL)
}

// --- Result namespace ---

// ResultFor returns the cached search result for normalized query text, page,
// and serialized plan.
func (c *Coordinator) ResultFor(
	ctx context.Context, normText string, page int, planBytes []byte,
) (*search.Result, bool) {
	data, ok := c.get(ctx, NamespaceResult, c.resultKey(normText, page, planBytes))
	if !ok {
		return nil, false
	}
	var res search.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.Error(err))
		return nil, false
	}
	return &res, true
}

// StoreResult caches a search result and tracks query popularity.
func (c *Coordinator) StoreResult(
	ctx context.Context, normText string, page int, planBytes []byte, res *search.Result,
) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("Failed to serialize result for cache", zap.Error(err))
		return
	}
	c.set(ctx, NamespaceResult, c.resultKey(normText, page, planBytes), data, c.cfg.ResultTTL)
	c.TrackQuery(ctx, normText)
}

// --- Popularity ---

// QueryCount is a popular query with its time-bounded frequency score.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// TrackQuery bumps a query's popularity score. Informational only; popularity
// never drives eviction.
func (c *Coordinator) TrackQuery(ctx context.Context, normText string) {
	key := c.popularKey()
	if err := c.store.ZIncrBy(ctx, key, normText, 1); err != nil {
		c.backendError(NamespaceResult, db.OpZIncrBy, err)
		return
	}
	if err := c.store.Expire(ctx, key, c.cfg.PopularTTL); err != nil {
		c.backendError(NamespaceResult, db.OpExpire, err)
	}
}

// PopularQueries returns the most frequent queries, highest first.
func (c *Coordinator) PopularQueries(ctx context.Context, limit int) []QueryCount {
	members, err := c.store.ZRevRangeWithScores(ctx, c.popularKey(), limit)
	if err != nil {
		c.backendError(NamespaceResult, db.OpZRevRange, err)
		return nil
	}
	out := make([]QueryCount, 0, len(members))
	for _, m := range members {
		out = append(out, QueryCount{Query: m.Member, Count: int64(m.Score)})
	}
	return out
}

// --- Statistics ---

// Counter holds hit/miss totals for one namespace.
type Counter struct {
	Hits   int64
	Misses int64
}

// Counters reads the per-namespace hit/miss counters from the backend.
func (c *Coordinator) Counters(ctx context.Context) map[Namespace]Counter {
	out := make(map[Namespace]Counter, len(Namespaces))
	for _, ns := range Namespaces {
		hits, err := c.store.IncrBy(ctx, c.statKey(ns, "hits"), 0)
		if err != nil {
			c.backendError(ns, db.OpIncrBy, err)
		}
		misses, err := c.store.IncrBy(ctx, c.statKey(ns, "misses"), 0)
		if err != nil {
			c.backendError(ns, db.OpIncrBy, err)
		}
		out[ns] = Counter{Hits: hits, Misses: misses}
	}
	return out
}

// KeyCount returns the backend's total key count.
func (c *Coordinator) KeyCount(ctx context.Context) int {
	n, err := c.store.KeyCount(ctx)
	if err != nil {
		c.backendError(NamespaceResult, db.OpDBSize, err)
		return 0
	}
	return n
}

// Ping checks backend connectivity.
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// --- Clearing ---

// ClearScope selects which namespaces Clear removes.
type ClearScope string

const (
	// ScopeAll clears every key this coordinator owns, including stats and
	// popularity tracking.
	ScopeAll ClearScope = "all"
	// ScopePlan clears the filter-plan namespace.
	ScopePlan ClearScope = "filter"
	// ScopeEmbedding clears the embedding namespace.
	ScopeEmbedding ClearScope = "embed"
	// ScopeResult clears the result namespace.
	ScopeResult ClearScope = "query"
)

// ParseClearScope validates a scope string. Both the namespace names and the
// long-form aliases used by API clients ("plan", "embedding", "result") are
// accepted; the canonical namespace form is returned either way.
func ParseClearScope(s string) (ClearScope, error) {
	switch ClearScope(s) {
	case ScopeAll, ScopePlan, ScopeEmbedding, ScopeResult:
		return ClearScope(s), nil
	case "":
		return ScopeAll, nil
	}
	switch s {
	case "plan":
		return ScopePlan, nil
	case "embedding":
		return ScopeEmbedding, nil
	case "result":
		return ScopeResult, nil
	}
	return "", fmt.Errorf("unknown cache scope %q", s)
}

// Clear removes entries in the given scope and returns the count removed.
// Unlike reads and writes, backend failures here surface to the caller:
// an operator asked for the clear and needs to know it did not happen.
func (c *Coordinator) Clear(ctx context.Context, scope ClearScope) (int, error) {
	pattern := c.cfg.KeyPrefix + string(scope) + ":*"
	if scope == ScopeAll {
		pattern = c.cfg.KeyPrefix + "*"
	}

	keys, err := c.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := c.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete cache keys: %w", err)
	}
	return removed, nil
}

// --- Internal plumbing ---

// key derives a collision-resistant cache key from a namespace and payload.
func (c *Coordinator) key(ns Namespace, payload string) string {
	h := sha256.Sum256([]byte(payload))
	return c.cfg.KeyPrefix + string(ns) + ":" + hex.EncodeToString(h[:])[:16]
}

// resultKey folds normalized text, page, and the serialized plan into the
// hashed payload so any difference in the three maps to a different key.
func (c *Coordinator) resultKey(normText string, page int, planBytes []byte) string {
	payload := normText + "_" + strconv.Itoa(page) + "_" + string(planBytes)
	return c.key(NamespaceResult, payload)
}

func (c *Coordinator) popularKey() string {
	return c.cfg.KeyPrefix + "popular:queries"
}

func (c *Coordinator) statKey(ns Namespace, kind string) string {
	return c.cfg.KeyPrefix + "stats:" + string(ns) + ":" + kind
}

func (c *Coordinator) get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.backendError(ns, db.OpGet, err)
		}
		c.recordMiss(ctx, ns)
		return nil, false
	}
	c.recordHit(ctx, ns)
	return data, true
}

func (c *Coordinator) set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	if err := c.store.SetWithTTL(ctx, key, value, ttl); err != nil {
		c.backendError(ns, db.OpSet, err)
	}
}

func (c *Coordinator) recordHit(ctx context.Context, ns Namespace) {
	metrics.CacheTotal.WithLabelValues(string(ns), "hit").Inc()
	c.bumpStat(ctx, ns, "hits")
}

func (c *Coordinator) recordMiss(ctx context.Context, ns Namespace) {
	metrics.CacheTotal.WithLabelValues(string(ns), "miss").Inc()
	c.bumpStat(ctx, ns, "misses")
}

func (c *Coordinator) bumpStat(ctx context.Context, ns Namespace, kind string) {
	key := c.statKey(ns, kind)
	if _, err := c.store.IncrBy(ctx, key, 1); err != nil {
		c.backendError(ns, db.OpIncrBy, err)
		return
	}
	if err := c.store.Expire(ctx, key, c.cfg.StatsTTL); err != nil {
		c.backendError(ns, db.OpExpire, err)
	}
}

func (c *Coordinator) backendError(ns Namespace, op string, err error) {
	metrics.CacheBackendErrorsTotal.WithLabelValues(string(ns), op).Inc()
	c.logger.Warn("Cache backend error",
		zap.String("namespace", string(ns)),
		zap.String("op", op),
		zap.Error(err),
	)
}
