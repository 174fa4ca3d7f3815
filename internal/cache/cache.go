// Package cache implements the read-through, write-through coherence
// layer spec.md §4.7 describes, sitting above internal/world. Cache
// keys are digests, not (x, z) pairs, so the cache keyspace is
// identical to the backend keyspace. Cache holds only a non-owning
// reference to a *world.World — World remains the sole owner of the
// Backend and Compressor.
package cache

import (
	"context"

	"chunkvault/internal/chunkpb"
	"chunkvault/internal/errs"
	"chunkvault/internal/world"
	"chunkvault/internal/worldhash"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache wraps a *world.World with an in-memory map, deduplicating
// concurrent reads for the same digest and eagerly warming reads from
// batch loads and existence probes.
type Cache struct {
	world  *world.World
	store  store
	flight flightGroup
}

// store is the minimal map interface both cache backing policies
// implement. It holds owned clones; Cache.clone is responsible for
// the copy discipline at the public API boundary, not store itself.
type store interface {
	get(key uint64) (*chunkpb.Chunk, bool)
	put(key uint64, c *chunkpb.Chunk)
	delete(key uint64)
}

// New wraps w with a cache, choosing a policy from maxEntries (serve
// passes its --cache-max-entries flag): <= 0 means unbounded, > 0
// bounds the cache to that many LRU entries.
func New(w *world.World, maxEntries int) (*Cache, error) {
	if maxEntries <= 0 {
		return NewUnbounded(w), nil
	}
	return NewBounded(w, maxEntries)
}

// NewUnbounded wraps w with a sync.Map-backed cache that never evicts —
// spec.md §4.7's "at minimum an unbounded map is acceptable" baseline.
func NewUnbounded(w *world.World) *Cache {
	return &Cache{world: w, store: newUnboundedStore()}
}

// NewBounded wraps w with an LRU cache bounded to maxEntries.
func NewBounded(w *world.World, maxEntries int) (*Cache, error) {
	lc, err := lru.New[uint64, *chunkpb.Chunk](maxEntries)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "cache: create bounded store", err)
	}
	return &Cache{world: w, store: &boundedStore{lc: lc}}, nil
}

// Load consults the cache first (spec.md §4.7 Read-through). On a
// hit, it returns an owned clone without touching World. On a miss,
// concurrent callers for the same digest single-flight onto one
// World.Load; the first caller's decode warms the cache and every
// waiter receives its own clone of that result.
func (c *Cache) Load(ctx context.Context, dimension string, x, z int32) (*chunkpb.Chunk, error) {
	digest := worldhash.Coords(x, z)
	if hit, ok := c.store.get(digest); ok {
		return clone(hit), nil
	}
	chunk, err := doFlight(&c.flight, digest, func() (*chunkpb.Chunk, error) {
		ch, err := c.world.Load(ctx, dimension, x, z)
		if err != nil {
			// A cancelled or failed load must never populate the
			// cache with a partial result (spec.md §5 Cancellation).
			return nil, err
		}
		c.store.put(digest, ch)
		return ch, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(chunk), nil
}

// Save writes through to World first; only a successful backend write
// updates the cache (spec.md §4.7 Write-through).
func (c *Cache) Save(ctx context.Context, chunk *chunkpb.Chunk) error {
	if err := c.world.Save(ctx, chunk); err != nil {
		return err
	}
	c.store.put(worldhash.Coords(chunk.X, chunk.Z), clone(chunk))
	return nil
}

// Exists answers from the cache on a hit without touching the
// backend. On a miss it delegates to World and, if the key exists,
// eagerly populates the cache from that read (spec.md §4.7 Existence
// probe).
func (c *Cache) Exists(ctx context.Context, dimension string, x, z int32) (bool, error) {
	digest := worldhash.Coords(x, z)
	if _, ok := c.store.get(digest); ok {
		return true, nil
	}
	ok, err := c.world.Exists(ctx, dimension, x, z)
	if err != nil || !ok {
		return ok, err
	}
	if ch, err := c.world.Load(ctx, dimension, x, z); err == nil {
		c.store.put(digest, ch)
	}
	return true, nil
}

// Delete removes the cache entry before asking the backend. On
// backend failure the prior value is not restored — callers must
// treat the key as unknown afterward (spec.md §4.7 Deletion).
func (c *Cache) Delete(ctx context.Context, dimension string, x, z int32) error {
	digest := worldhash.Coords(x, z)
	c.store.delete(digest)
	return c.world.Delete(ctx, dimension, x, z)
}

// BatchInsert warms the cache with every chunk before issuing one
// batched write to World, so subsequent reads are already warm even
// while the backend write is in flight (spec.md §4.7 Batch insert).
// If the backend call fails, every entry this call inserted is
// evicted before the error is returned.
func (c *Cache) BatchInsert(ctx context.Context, chunks []*chunkpb.Chunk) error {
	digests := make([]uint64, len(chunks))
	for i, ch := range chunks {
		digests[i] = worldhash.Coords(ch.X, ch.Z)
		c.store.put(digests[i], clone(ch))
	}
	if err := c.world.BatchSave(ctx, chunks); err != nil {
		for _, d := range digests {
			c.store.delete(d)
		}
		return err
	}
	return nil
}

// Sync delegates to World's durability barrier.
func (c *Cache) Sync(ctx context.Context) error {
	return c.world.Sync(ctx)
}

// clone returns an owned deep copy of c so callers can never mutate
// cached state — including a Section's nested BlockStates/Biomes
// pointers and byte arrays — without going through Save (spec.md §3
// Ownership).
func clone(c *chunkpb.Chunk) *chunkpb.Chunk {
	return c.Clone()
}
