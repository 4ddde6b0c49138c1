// Package engine defines the search engine collaborator contract: a
// structured boolean query, optionally combined with a vector-similarity
// clause, executed with pagination and a bounded timeout.
package engine

import (
	"context"
	"time"

	"github.com/parcelgrid/propsearch/internal/domain/plan"
)

// Query is one engine request. Must conditions participate in relevance
// scoring, Filter conditions are a non-scoring boolean gate, and Sort (when
// present) overrides score ordering. A nil Vector means keyword-only.
type Query struct {
	Plan          plan.Plan
	Vector        []float32
	CandidatePool int
	Offset        int
	Limit         int
	Timeout       time.Duration
}

// Hit is a single ranked engine match.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// Result is an engine response.
type Result struct {
	Hits  []Hit
	Total int
}

// Engine executes structured queries against the record index.
type Engine interface {
	Execute(ctx context.Context, q *Query) (*Result, error)
}

// Pinger checks engine availability for health reporting.
type Pinger interface {
	Ping(ctx context.Context) error
}
