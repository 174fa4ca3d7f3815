package compressor

import (
	"bytes"
	"io"

	"chunkvault/internal/errs"

	"github.com/klauspost/compress/flate"
)

// deflateCompressor uses klauspost/compress/flate, a drop-in faster
// replacement for the standard library's compress/flate with the same
// API shape — matching the rest of this package's choice to stay on
// the klauspost/compress family rather than stdlib.
type deflateCompressor struct {
	level int
}

func newDeflate(level int) (*deflateCompressor, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	// Validate the level eagerly so a bad config fails at startup
	// rather than on the first write.
	w, err := flate.NewWriter(io.Discard, level)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "invalid deflate level", err)
	}
	_ = w.Close()
	return &deflateCompressor{level: level}, nil
}

func (d *deflateCompressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, d.level)
	if err != nil {
		return nil, errs.Wrap(errs.BackendIO, "deflate compress", err)
	}
	if _, err := w.Write(p); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "deflate compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.BackendIO, "deflate compress", err)
	}
	return buf.Bytes(), nil
}

func (d *deflateCompressor) Decompress(p []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(p))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "deflate decompress", err)
	}
	return out, nil
}

func (d *deflateCompressor) Kind() Kind { return Deflate }
func (d *deflateCompressor) Level() int { return d.level }

var _ Compressor = (*deflateCompressor)(nil)
