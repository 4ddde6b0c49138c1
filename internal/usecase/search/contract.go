package search

import (
	"context"

	"github.com/parcelgrid/propsearch/internal/domain/plan"
	"github.com/parcelgrid/propsearch/internal/domain/search"
)

// Cache is the consumer interface for the plan and result cache namespaces.
type Cache interface {
	PlanFor(ctx context.Context, normText string) (plan.Plan, bool)
	StorePlan(ctx context.Context, normText string, p plan.Plan)
	ResultFor(ctx context.Context, normText string, page int, planBytes []byte) (*search.Result, bool)
	StoreResult(ctx context.Context, normText string, page int, planBytes []byte, res *search.Result)
}

// Embedder vectorizes query text. Any returned error means the embedding is
// unavailable and the request degrades to the keyword-only path.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ParseFunc turns free text into a filter plan. It never fails.
type ParseFunc func(text string) plan.Plan
