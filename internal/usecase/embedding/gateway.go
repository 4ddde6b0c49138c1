// Package embedding wraps the embedding provider with validation, failure
// collapsing, caching, and in-flight deduplication.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/parcelgrid/propsearch/internal/domain"
)

// Cache is the consumer interface for the embedding cache namespace.
type Cache interface {
	EmbeddingFor(ctx context.Context, normText string) ([]float32, bool)
	StoreEmbedding(ctx context.Context, normText string, vec []float32)
}

// Gateway is the embedding boundary: it rejects empty input locally,
// validates vector dimensions, collapses every provider failure into
// domain.ErrEmbeddingUnavailable, and serves repeated texts from cache.
// Concurrent requests for the same uncached text share one provider call.
type Gateway struct {
	inner      domain.Embedder
	cache      Cache
	dimensions int
	group      singleflight.Group
	logger     *zap.Logger
}

// NewGateway creates an embedding gateway. dimensions is the expected vector
// length of the active model; any other length is a failure, never silently
// truncated or padded.
func NewGateway(inner domain.Embedder, cache Cache, dimensions int, logger *zap.Logger) *Gateway {
	return &Gateway{inner: inner, cache: cache, dimensions: dimensions, logger: logger}
}

// Embed returns the embedding vector for text, from cache when possible.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	norm := domain.NormalizeQuery(text)
	if norm == "" {
		return nil, domain.ErrEmptyInput
	}

	if vec, ok := g.cache.EmbeddingFor(ctx, norm); ok {
		return vec, nil
	}

	// Dedup concurrent misses per normalized text. The first caller's
	// context governs the provider call; latecomers share its outcome.
	v, err, _ := g.group.Do(norm, func() (any, error) {
		return g.compute(ctx, norm)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

func (g *Gateway) compute(ctx context.Context, norm string) ([]float32, error) {
	result, err := g.inner.Embed(ctx, norm)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		// Collapse provider-specific failures so callers cannot
		// distinguish them.
		return nil, fmt.Errorf("%v: %w", err, domain.ErrEmbeddingUnavailable)
	}

	if len(result.Embedding) != g.dimensions {
		g.logger.Warn("Embedding dimension mismatch",
			zap.Int("expected", g.dimensions),
			zap.Int("got", len(result.Embedding)),
		)
		return nil, fmt.Errorf("expected %d dimensions, got %d: %w",
			g.dimensions, len(result.Embedding), domain.ErrVectorDimMismatch)
	}

	g.cache.StoreEmbedding(ctx, norm, result.Embedding)
	return result.Embedding, nil
}
