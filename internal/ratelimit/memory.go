package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// ==============================================
// IN-PROCESS STORE
// ==============================================

const shardCount = 32

// MemoryStore is the in-process Store: a sharded map from key to live
// window state. Each shard's mutex makes evict-then-append atomic per
// key under true parallelism. State is process-local, so limits are
// only enforced within a single server process.
type MemoryStore struct {
	shards [shardCount]*memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	windows map[string]*Window
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{windows: make(map[string]*Window)}
	}
	return s
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	w := shard.windows[key]
	if w == nil {
		w = &Window{}
		shard.windows[key] = w
	}

	admitted := w.Admit(s.now(), window, limit)
	if w.Len() == 0 {
		delete(shard.windows, key)
	}
	return admitted, nil
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, key string, window time.Duration) error {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	w := shard.windows[key]
	if w == nil {
		w = &Window{}
		shard.windows[key] = w
	}

	w.Record(s.now(), window)
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.windows, key)
	return nil
}

func (s *MemoryStore) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}
