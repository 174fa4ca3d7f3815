package compressor

import (
	"bytes"
	"io"

	"chunkvault/internal/errs"

	"github.com/andybalholm/brotli"
)

// brotliCompressor uses andybalholm/brotli, the same library the
// teacher reaches for when it needs brotli (internal/server/compress.go).
type brotliCompressor struct {
	level int
}

func newBrotli(level int) *brotliCompressor {
	return &brotliCompressor{level: level}
}

func (b *brotliCompressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, b.level)
	if _, err := w.Write(p); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "brotli compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "brotli compress", err)
	}
	return buf.Bytes(), nil
}

func (b *brotliCompressor) Decompress(p []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(p))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "brotli decompress", err)
	}
	return out, nil
}

func (b *brotliCompressor) Kind() Kind { return Brotli }
func (b *brotliCompressor) Level() int { return b.level }

var _ Compressor = (*brotliCompressor)(nil)
