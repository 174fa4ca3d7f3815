package compressor

import (
	"bytes"
	"testing"

	"chunkvault/internal/errs"
)

func TestRoundTripAllKinds(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 64)

	for _, kind := range []Kind{Zstd, Brotli, Deflate, Gzip, Zlib} {
		t.Run(string(kind), func(t *testing.T) {
			c, err := New(kind, 3)
			if err != nil {
				t.Fatalf("New(%s): %v", kind, err)
			}
			compressed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			got, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("round trip mismatch for %s", kind)
			}
			if c.Kind() != kind {
				t.Fatalf("Kind() = %s, want %s", c.Kind(), kind)
			}
		})
	}
}

func TestNewUnrecognizedKind(t *testing.T) {
	_, err := New(Kind("lzma"), 1)
	if !errs.Is(err, errs.Configuration) {
		t.Fatalf("expected Configuration error, got %v", err)
	}
}

func TestDecompressMalformedInput(t *testing.T) {
	for _, kind := range []Kind{Zstd, Brotli, Gzip, Zlib} {
		t.Run(string(kind), func(t *testing.T) {
			c, err := New(kind, 3)
			if err != nil {
				t.Fatalf("New(%s): %v", kind, err)
			}
			_, err = c.Decompress([]byte{0x00})
			if !errs.Is(err, errs.Corruption) {
				t.Fatalf("expected Corruption error for %s, got %v", kind, err)
			}
		})
	}
}
