package cache

import (
	"chunkvault/internal/callgroup"
	"chunkvault/internal/chunkpb"
)

// flightGroup is internal/callgroup.Group instantiated for the
// single-flight coordinator spec.md §4.7 and §8 require: at most one
// World.Load per digest runs concurrently, and every caller waiting on
// it — not just the one that triggered it — receives the same decoded
// chunk.
type flightGroup = callgroup.Group[uint64, *chunkpb.Chunk]

// doFlight executes fn if no call is in flight for digest. Concurrent callers
// for the same digest block on the first caller's fn and receive its
// result; callgroup.Group forgets the in-flight entry once fn returns,
// so a later call for the same digest runs fn again.
func doFlight(g *flightGroup, digest uint64, fn func() (*chunkpb.Chunk, error)) (*chunkpb.Chunk, error) {
	r := <-g.DoChan(digest, fn)
	return r.Value, r.Err
}
