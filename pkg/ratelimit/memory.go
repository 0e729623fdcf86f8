package ratelimit

import (
	"context"
	"hash/maphash"
	"sync"
	"time"
)

const (
	defaultShards         = 32
	defaultSweepThreshold = 1024
)

type record struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
	sweepAt int
}

// MemoryStore keeps windows in process memory. Keys are spread over a fixed
// set of shards, each with its own mutex.
type MemoryStore struct {
	seed           maphash.Seed
	shards         []*shard
	sweepThreshold int
}

type MemoryOption func(*MemoryStore)

func WithShards(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// WithSweepThreshold sets the shard size at which expired records are evicted.
func WithSweepThreshold(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.sweepThreshold = n
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		seed:           maphash.MakeSeed(),
		shards:         make([]*shard, defaultShards),
		sweepThreshold: defaultSweepThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*record), sweepAt: s.sweepThreshold}
	}
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, max int, now time.Time) (Decision, error) {
	sh := s.shards[maphash.String(s.seed, key)%uint64(len(s.shards))]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok || now.After(rec.resetAt) {
		if !ok && len(sh.records) >= sh.sweepAt {
			sh.sweep(now, s.sweepThreshold)
		}
		rec = &record{count: 1, resetAt: now.Add(window)}
		sh.records[key] = rec
		return Decision{Allowed: true, Limit: max, Remaining: max - 1, ResetAt: rec.resetAt}, nil
	}

	if rec.count >= max {
		return Decision{Allowed: false, Limit: max, Remaining: 0, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return Decision{Allowed: true, Limit: max, Remaining: max - rec.count, ResetAt: rec.resetAt}, nil
}

// sweep drops expired records. The next sweep is postponed until the shard
// doubles its live size so a shard full of live keys is not rescanned per insert.
func (sh *shard) sweep(now time.Time, threshold int) {
	for k, rec := range sh.records {
		if now.After(rec.resetAt) {
			delete(sh.records, k)
		}
	}
	sh.sweepAt = max(threshold, 2*len(sh.records))
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}
