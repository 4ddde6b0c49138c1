package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/parcelgrid/propsearch/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	gotText string
	result  domain.EmbeddingResult
	err     error
	entered chan struct{} // when set, signaled on first call
	block   chan struct{} // when set, Embed waits until closed
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.gotText = text
	entered, block := m.entered, m.block
	m.mu.Unlock()
	if entered != nil && first {
		close(entered)
	}
	if block != nil {
		<-block
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCache struct {
	mu     sync.Mutex
	vecs   map[string][]float32
	stores int
}

func newMockCache() *mockCache {
	return &mockCache{vecs: make(map[string][]float32)}
}

func (m *mockCache) EmbeddingFor(_ context.Context, normText string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vecs[normText]
	return v, ok
}

func (m *mockCache) StoreEmbedding(_ context.Context, normText string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[normText] = vec
	m.stores++
}

// --- Tests ---

func vec3() []float32 { return []float32{0.1, 0.2, 0.3} }

func TestEmbed_EmptyInput(t *testing.T) {
	g := NewGateway(&mockEmbedder{}, newMockCache(), 3, zap.NewNop())

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := g.Embed(context.Background(), text); !errors.Is(err, domain.ErrEmptyInput) {
			t.Errorf("%q: expected ErrEmptyInput, got %v", text, err)
		}
	}
}

func TestEmbed_NormalizesBeforeProvider(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: vec3()}}
	g := NewGateway(inner, newMockCache(), 3, zap.NewNop())

	if _, err := g.Embed(context.Background(), "  3 Bed In AUSTIN  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.gotText != "3 bed in austin" {
		t.Errorf("provider got %q, want normalized form", inner.gotText)
	}
}

func TestEmbed_CacheHitSkipsProvider(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: vec3()}}
	cache := newMockCache()
	cache.vecs["cached query"] = vec3()
	g := NewGateway(inner, cache, 3, zap.NewNop())

	got, err := g.Embed(context.Background(), "Cached Query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("unexpected vector: %v", got)
	}
	if inner.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", inner.callCount())
	}
}

func TestEmbed_StoresOnSuccess(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: vec3()}}
	cache := newMockCache()
	g := NewGateway(inner, cache, 3, zap.NewNop())

	if _, err := g.Embed(context.Background(), "fresh query"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.vecs["fresh query"]; !ok {
		t.Error("expected vector cached under normalized text")
	}

	// Second call is served from cache.
	if _, err := g.Embed(context.Background(), "fresh query"); err != nil {
		t.Fatal(err)
	}
	if inner.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", inner.callCount())
	}
}

func TestEmbed_CollapsesProviderErrors(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("rate limited: 429")}
	g := NewGateway(inner, newMockCache(), 3, zap.NewNop())

	_, err := g.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbed_PassesThroughAlreadyCollapsed(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	g := NewGateway(inner, newMockCache(), 3, zap.NewNop())

	_, err := g.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	cache := newMockCache()
	g := NewGateway(inner, cache, 3, zap.NewNop())

	_, err := g.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if cache.stores != 0 {
		t.Error("mismatched vector must not be cached")
	}
}

func TestEmbed_ConcurrentMissesShareOneCall(t *testing.T) {
	inner := &mockEmbedder{
		result:  domain.EmbeddingResult{Embedding: vec3()},
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	g := NewGateway(inner, newMockCache(), 3, zap.NewNop())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	// First caller reaches the blocked provider, then the rest join the
	// same singleflight key while it is held open.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = g.Embed(context.Background(), "same query")
	}()
	<-inner.entered

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Embed(context.Background(), "same query")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(inner.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: unexpected error %v", i, err)
		}
	}
	if inner.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", inner.callCount())
	}
}
