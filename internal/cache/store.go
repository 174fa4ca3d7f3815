package cache

import (
	"sync"

	"chunkvault/internal/chunkpb"

	lru "github.com/hashicorp/golang-lru/v2"
)

// unboundedStore is a sync.Map-backed store: the baseline policy
// spec.md §4.7 requires before any eviction policy is layered on top.
type unboundedStore struct {
	m sync.Map // uint64 -> *chunkpb.Chunk
}

func newUnboundedStore() *unboundedStore {
	return &unboundedStore{}
}

func (s *unboundedStore) get(key uint64) (*chunkpb.Chunk, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*chunkpb.Chunk), true
}

func (s *unboundedStore) put(key uint64, c *chunkpb.Chunk) {
	s.m.Store(key, c)
}

func (s *unboundedStore) delete(key uint64) {
	s.m.Delete(key)
}

// boundedStore bounds memory use with LRU eviction. golang_lru's Cache
// is already internally mutex-guarded, so boundedStore adds nothing
// beyond the store interface's narrowing.
type boundedStore struct {
	lc *lru.Cache[uint64, *chunkpb.Chunk]
}

func (s *boundedStore) get(key uint64) (*chunkpb.Chunk, bool) {
	return s.lc.Get(key)
}

func (s *boundedStore) put(key uint64, c *chunkpb.Chunk) {
	s.lc.Add(key, c)
}

func (s *boundedStore) delete(key uint64) {
	s.lc.Remove(key)
}
