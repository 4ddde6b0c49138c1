package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parcelgrid/propsearch/internal/db"
)

func newClockedStore() (*Store, *time.Time) {
	now := time.Unix(1700000000, 0)
	s := NewStoreWithClock(func() time.Time { return now })
	return s, &now
}

func TestGetSet_RoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.SetWithTTL(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want v", got)
	}
}

func TestGet_CopiesValue(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "k", []byte("abc"), 0)
	got, _ := s.Get(ctx, "k")
	got[0] = 'x'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestSetWithTTL_Expires(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "k", []byte("v"), time.Minute)

	*now = now.Add(59 * time.Second)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live key, got %v", err)
	}

	*now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestDel_CountsAcrossKeySpaces(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "a", []byte("1"), 0)
	_, _ = s.IncrBy(ctx, "b", 1)
	_ = s.ZIncrBy(ctx, "c", "m", 1)

	removed, err := s.Del(ctx, "a", "b", "c", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("removed: got %d, want 3", removed)
	}
}

func TestScan_TrailingStar(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "app:filter:1", []byte("x"), 0)
	_ = s.SetWithTTL(ctx, "app:filter:2", []byte("x"), 0)
	_ = s.SetWithTTL(ctx, "app:embed:1", []byte("x"), 0)
	_, _ = s.IncrBy(ctx, "app:stats:filter:hits", 1)

	keys, err := s.Scan(ctx, "app:filter:*")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys: %v", len(keys), keys)
	}
	// Sorted output.
	if keys[0] != "app:filter:1" || keys[1] != "app:filter:2" {
		t.Errorf("unexpected keys: %v", keys)
	}

	all, err := s.Scan(ctx, "app:*")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("got %d keys for app:*, want 4: %v", len(all), all)
	}
}

func TestScan_ExactKey(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "exact", []byte("x"), 0)
	keys, err := s.Scan(ctx, "exact")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "exact" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestIncrBy_ReturnsNewValue(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v, err := s.IncrBy(ctx, "n", 2)
	if err != nil || v != 2 {
		t.Fatalf("got %d, %v; want 2", v, err)
	}
	v, _ = s.IncrBy(ctx, "n", 3)
	if v != 5 {
		t.Errorf("got %d, want 5", v)
	}
	// Zero-delta reads the current value.
	v, _ = s.IncrBy(ctx, "n", 0)
	if v != 5 {
		t.Errorf("read: got %d, want 5", v)
	}
}

func TestExpire_CounterResets(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	_, _ = s.IncrBy(ctx, "n", 10)
	_ = s.Expire(ctx, "n", time.Minute)

	*now = now.Add(2 * time.Minute)
	v, err := s.IncrBy(ctx, "n", 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("expected counter reset after expiry, got %d", v)
	}
}

func TestZRevRange_OrderAndLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.ZIncrBy(ctx, "z", "low", 1)
	_ = s.ZIncrBy(ctx, "z", "high", 5)
	_ = s.ZIncrBy(ctx, "z", "mid", 3)
	_ = s.ZIncrBy(ctx, "z", "high", 2) // 7 total

	members, err := s.ZRevRangeWithScores(ctx, "z", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Member != "high" || members[0].Score != 7 {
		t.Errorf("first: got %+v", members[0])
	}
	if members[1].Member != "mid" || members[1].Score != 3 {
		t.Errorf("second: got %+v", members[1])
	}
}

func TestZRevRange_TieBreaksLexicographically(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.ZIncrBy(ctx, "z", "alpha", 1)
	_ = s.ZIncrBy(ctx, "z", "beta", 1)

	members, _ := s.ZRevRangeWithScores(ctx, "z", 0)
	if len(members) != 2 {
		t.Fatalf("got %d members", len(members))
	}
	if members[0].Member != "beta" {
		t.Errorf("expected beta first on tie, got %q", members[0].Member)
	}
}

func TestKeyCount_SkipsExpired(t *testing.T) {
	s, now := newClockedStore()
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "short", []byte("x"), time.Second)
	_ = s.SetWithTTL(ctx, "long", []byte("x"), time.Hour)
	_, _ = s.IncrBy(ctx, "count", 1)

	n, _ := s.KeyCount(ctx)
	if n != 3 {
		t.Fatalf("got %d, want 3", n)
	}

	*now = now.Add(time.Minute)
	n, _ = s.KeyCount(ctx)
	if n != 2 {
		t.Errorf("got %d after expiry, want 2", n)
	}
}
