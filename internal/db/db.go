package db

import (
	"context"
	"time"
)

// Store is the cache backend facade combining all sub-interfaces.
// Two implementations exist: a networked Redis store and a single-process
// in-memory store. Callers cannot observe which is active except through
// latency and cross-process visibility.
type Store interface {
	Pinger
	KVStore
	SortedSetStore
	KeyCount(ctx context.Context) (int, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ScoredMember is a sorted-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted-set operations for popularity tracking.
type SortedSetStore interface {
	ZIncrBy(ctx context.Context, key, member string, delta float64) error
	ZRevRangeWithScores(ctx context.Context, key string, limit int) ([]ScoredMember, error)
}
