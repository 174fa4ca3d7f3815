package compressor

import (
	"chunkvault/internal/errs"

	"github.com/klauspost/compress/zstd"
)

// zstdCompressor wraps a reusable klauspost/compress zstd encoder and
// decoder, the same library the teacher uses for its own chunk-file
// compression (internal/chunk/file/compress.go).
type zstdCompressor struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func newZstd(level int) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "create zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "create zstd decoder", err)
	}
	return &zstdCompressor{level: level, enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Compress(p []byte) ([]byte, error) {
	return z.enc.EncodeAll(p, make([]byte, 0, len(p))), nil
}

func (z *zstdCompressor) Decompress(p []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(p, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "zstd decompress", err)
	}
	return out, nil
}

func (z *zstdCompressor) Kind() Kind { return Zstd }
func (z *zstdCompressor) Level() int { return z.level }

var _ Compressor = (*zstdCompressor)(nil)
