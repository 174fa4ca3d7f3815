// Package compressor provides the stateless byte-stream codec the
// World façade applies to every encoded chunk record before it reaches
// a Backend. The choice of kind and level is frozen per database: once
// internal/metadata has written META, reopening with a different kind
// is a startup error, never a silent re-encode.
package compressor

import (
	"fmt"

	"chunkvault/internal/errs"
)

// Kind names one of the five supported compression algorithms.
type Kind string

const (
	Zstd    Kind = "zstd"
	Brotli  Kind = "brotli"
	Deflate Kind = "deflate"
	Gzip    Kind = "gzip"
	Zlib    Kind = "zlib"
)

// Compressor compresses and decompresses opaque byte strings. All
// implementations are safe for concurrent use: a World holds exactly
// one Compressor for its lifetime and shares it across goroutines.
type Compressor interface {
	Compress(p []byte) ([]byte, error)
	Decompress(p []byte) ([]byte, error)
	Kind() Kind
	Level() int
}

// New constructs the Compressor for kind at level. An unrecognized kind
// is a Configuration error — fatal at startup, per spec.md §7.
func New(kind Kind, level int) (Compressor, error) {
	switch kind {
	case Zstd:
		return newZstd(level)
	case Brotli:
		return newBrotli(level), nil
	case Deflate:
		return newDeflate(level)
	case Gzip:
		return newGzip(level)
	case Zlib:
		return newZlib(level)
	default:
		return nil, errs.New(errs.Configuration, fmt.Sprintf("unrecognized compressor kind %q", kind))
	}
}
