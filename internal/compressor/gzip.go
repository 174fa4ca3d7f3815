package compressor

import (
	"bytes"
	"io"

	"chunkvault/internal/errs"

	"github.com/klauspost/compress/gzip"
)

type gzipCompressor struct {
	level int
}

func newGzip(level int) (*gzipCompressor, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(io.Discard, level)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "invalid gzip level", err)
	}
	_ = w.Close()
	return &gzipCompressor{level: level}, nil
}

func (g *gzipCompressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, errs.Wrap(errs.BackendIO, "gzip compress", err)
	}
	if _, err := w.Write(p); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "gzip compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "gzip compress", err)
	}
	return buf.Bytes(), nil
}

func (g *gzipCompressor) Decompress(p []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "gzip decompress", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "gzip decompress", err)
	}
	return out, nil
}

func (g *gzipCompressor) Kind() Kind { return Gzip }
func (g *gzipCompressor) Level() int { return g.level }

var _ Compressor = (*gzipCompressor)(nil)
