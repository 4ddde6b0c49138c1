// Package search holds the result types returned by the hybrid search
// pipeline, including the performance breakdown and degradation tags.
package search

import "time"

// Method identifies which pipeline produced a result.
type Method string

const (
	// MethodHybridSemantic means vector similarity combined with keyword filters.
	MethodHybridSemantic Method = "hybrid_semantic"
	// MethodKeywordOnly means the degraded filter-only path (no vector clause).
	MethodKeywordOnly Method = "keyword_only"
)

// ServedFrom identifies which cache tier (if any) served a result.
type ServedFrom string

const (
	// ServedFromEngine means the search engine was called.
	ServedFromEngine ServedFrom = "engine"
	// ServedFromResultCache means the full result came from the result cache
	// and no engine call was made.
	ServedFromResultCache ServedFrom = "result_cache"
)

// Performance is the per-request timing breakdown attached to every
// successful result. Durations are zero for stages that did not run.
type Performance struct {
	ParseTime     time.Duration `json:"parse_time_ms"`
	EmbeddingTime time.Duration `json:"embedding_time_ms"`
	EngineTime    time.Duration `json:"engine_time_ms"`
	TotalTime     time.Duration `json:"total_time_ms"`
	Method        Method        `json:"method"`
	ServedFrom    ServedFrom    `json:"served_from"`
}

// ScoredRecord is a single ranked hit: the record payload plus an opaque
// relevance score. Scores are meaningful only within one result set and are
// never compared across queries or methods.
type ScoredRecord struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields"`
}

// Result is a completed search response.
type Result struct {
	Hits         []ScoredRecord `json:"hits"`
	TotalMatches int            `json:"total_matches"`
	Performance  Performance    `json:"performance"`
}
