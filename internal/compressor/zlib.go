package compressor

import (
	"bytes"
	"io"

	"chunkvault/internal/errs"

	"github.com/klauspost/compress/zlib"
)

type zlibCompressor struct {
	level int
}

func newZlib(level int) (*zlibCompressor, error) {
	if level == 0 {
		level = zlib.DefaultCompression
	}
	w, err := zlib.NewWriterLevel(io.Discard, level)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "invalid zlib level", err)
	}
	_ = w.Close()
	return &zlibCompressor{level: level}, nil
}

func (z *zlibCompressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return nil, errs.Wrap(errs.BackendIO, "zlib compress", err)
	}
	if _, err := w.Write(p); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "zlib compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "zlib compress", err)
	}
	return buf.Bytes(), nil
}

func (z *zlibCompressor) Decompress(p []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "zlib decompress", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "zlib decompress", err)
	}
	return out, nil
}

func (z *zlibCompressor) Kind() Kind { return Zlib }
func (z *zlibCompressor) Level() int { return z.level }

var _ Compressor = (*zlibCompressor)(nil)
