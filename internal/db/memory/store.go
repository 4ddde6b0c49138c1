package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parcelgrid/propsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

type counter struct {
	value     int64
	expiresAt time.Time
}

type zset struct {
	scores    map[string]float64
	expiresAt time.Time
}

// Store is a single-process in-memory implementation of db.Store.
// Expiry is lazy: expired entries behave as missing and are removed on access.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	counters map[string]counter
	zsets    map[string]zset
	now      func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries:  make(map[string]entry),
		counters: make(map[string]counter),
		zsets:    make(map[string]zset),
		now:      time.Now,
	}
}

// NewStoreWithClock creates a store with an injected clock (test-only).
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Get retrieves a live value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if s.expired(e.expiresAt) {
		delete(s.entries, key)
		return nil, db.ErrKeyNotFound
	}
	// Copy so callers cannot mutate the stored bytes.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// SetWithTTL stores a value, overwriting and refreshing the expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[key] = entry{value: stored, expiresAt: exp}
	return nil
}

// Del removes keys across all key spaces and returns the number removed.
func (s *Store) Del(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			removed++
			continue
		}
		if _, ok := s.counters[key]; ok {
			delete(s.counters, key)
			removed++
			continue
		}
		if _, ok := s.zsets[key]; ok {
			delete(s.zsets, key)
			removed++
		}
	}
	return removed, nil
}

// Scan returns live keys matching the glob pattern.
// Only the trailing-star form ("prefix*") and exact keys are supported,
// which is all the coordinator ever issues.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	match := func(key string) bool {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			return strings.HasPrefix(key, prefix)
		}
		return key == pattern
	}

	for key, e := range s.entries {
		if s.expired(e.expiresAt) {
			delete(s.entries, key)
			continue
		}
		if match(key) {
			keys = append(keys, key)
		}
	}
	for key, c := range s.counters {
		if s.expired(c.expiresAt) {
			delete(s.counters, key)
			continue
		}
		if match(key) {
			keys = append(keys, key)
		}
	}
	for key, z := range s.zsets {
		if s.expired(z.expiresAt) {
			delete(s.zsets, key)
			continue
		}
		if match(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// IncrBy atomically increments a counter and returns the new value.
func (s *Store) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || s.expired(c.expiresAt) {
		c = counter{}
	}
	c.value += val
	s.counters[key] = c
	return c.value, nil
}

// Expire sets a TTL on an existing key in any key space.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp := s.now().Add(ttl)
	if e, ok := s.entries[key]; ok {
		e.expiresAt = exp
		s.entries[key] = e
		return nil
	}
	if c, ok := s.counters[key]; ok {
		c.expiresAt = exp
		s.counters[key] = c
		return nil
	}
	if z, ok := s.zsets[key]; ok {
		z.expiresAt = exp
		s.zsets[key] = z
	}
	return nil
}

// ZIncrBy increments a sorted-set member's score.
func (s *Store) ZIncrBy(_ context.Context, key, member string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok || s.expired(z.expiresAt) {
		z = zset{scores: make(map[string]float64)}
	}
	z.scores[member] += delta
	s.zsets[key] = z
	return nil
}

// ZRevRangeWithScores returns the top members by descending score.
// Ties break lexicographically, matching Redis ZREVRANGE ordering.
func (s *Store) ZRevRangeWithScores(_ context.Context, key string, limit int) ([]db.ScoredMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok {
		return nil, nil
	}
	if s.expired(z.expiresAt) {
		delete(s.zsets, key)
		return nil, nil
	}

	members := make([]db.ScoredMember, 0, len(z.scores))
	for m, score := range z.scores {
		members = append(members, db.ScoredMember{Member: m, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Member > members[j].Member
	})
	if limit > 0 && len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

// KeyCount returns the number of live keys across all key spaces.
func (s *Store) KeyCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, e := range s.entries {
		if s.expired(e.expiresAt) {
			delete(s.entries, key)
			continue
		}
		count++
	}
	for key, c := range s.counters {
		if s.expired(c.expiresAt) {
			delete(s.counters, key)
			continue
		}
		count++
	}
	for key, z := range s.zsets {
		if s.expired(z.expiresAt) {
			delete(s.zsets, key)
			continue
		}
		count++
	}
	return count, nil
}

// Close releases nothing; present to satisfy db.Store.
func (s *Store) Close() {}

// WaitForReady returns immediately; an in-memory store is always ready.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

func (s *Store) expired(at time.Time) bool {
	return !at.IsZero() && s.now().After(at)
}
