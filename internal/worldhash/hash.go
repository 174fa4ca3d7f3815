// Package worldhash computes the deterministic 64-bit digest used to
// address chunks in a Backend. The hash must be stable across process
// restarts, architectures, and Go versions — so it deliberately avoids
// Go's built-in map hash (randomly seeded per process) in favor of
// xxHash64, a fixed, well-known, non-cryptographic algorithm.
package worldhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest is the 64-bit key a Chunk's coordinates hash to.
type Digest = uint64

// Builder accumulates little-endian integers and length-prefixed
// strings into a scratch buffer before hashing, matching the input
// contract in spec.md's Hasher: "integers (treated little-endian) and
// short byte strings, length-prefixed in order."
type Builder struct {
	buf []byte
}

// Int32 appends a little-endian signed 32-bit integer.
func (b *Builder) Int32(v int32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(v))
	return b
}

// Int64 appends a little-endian signed 64-bit integer.
func (b *Builder) Int64(v int64) *Builder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, uint64(v))
	return b
}

// String appends a uint16-length-prefixed byte string.
func (b *Builder) String(s string) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// Sum returns the xxHash64 digest of everything appended so far.
func (b *Builder) Sum() Digest {
	return xxhash.Sum64(b.buf)
}

// Coords computes the canonical digest of a chunk key, hash((x, z)).
// This is the only digest scheme the core uses — see spec.md §9's
// Open Question resolution: the historical hash((dim, x, z)) scheme is
// not implemented; multi-dimension routing happens at the table-name
// level instead (internal/world).
func Coords(x, z int32) Digest {
	var b Builder
	b.Int32(x).Int32(z)
	return b.Sum()
}
