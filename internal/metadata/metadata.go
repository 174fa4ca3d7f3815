// Package metadata implements the startup metadata gate (spec.md
// §4.4): the single META file at a database's root recording the
// compressor, backend, and chunk schema hash a database was created
// with. Opening a database whose configuration disagrees with a
// previously written META is a fatal Initialization error — the core
// never attempts a silent re-encode.
//
// META is framed with the teacher's own internal/format 4-byte header
// convention and written with a temp-file-then-rename swap, the same
// durability pattern the teacher's meta_store.go uses for its own
// control files.
package metadata

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"chunkvault/internal/errs"
	"chunkvault/internal/format"
)

// FileName is the fixed name of the metadata file at a database root.
const FileName = "META"

const metaVersion = 1

// Record is the persisted `{compressor, backend, world_format}` triple
// spec.md §3 defines. WorldFormat is the chunk schema hash
// (chunkcodec.SchemaHash); Compressor and Backend are the configured
// kind/backend names.
type Record struct {
	Compressor  string
	Backend     string
	WorldFormat uint64
}

// Encode serializes r with the format.TypeDBMetadata envelope.
func Encode(r Record) []byte {
	hdr := format.Header{Type: format.TypeDBMetadata, Version: metaVersion}
	hb := hdr.Encode()

	buf := make([]byte, 0, len(hb)+len(r.Compressor)+len(r.Backend)+16)
	buf = append(buf, hb[:]...)
	buf = appendString(buf, r.Compressor)
	buf = appendString(buf, r.Backend)
	buf = binary.LittleEndian.AppendUint64(buf, r.WorldFormat)
	return buf
}

// Decode parses a Record previously written by Encode. A header
// mismatch or truncated payload is an Initialization error — META is
// either valid or the database does not open.
func Decode(data []byte) (Record, error) {
	if len(data) < format.HeaderSize {
		return Record{}, errs.New(errs.Initialization, "metadata: META file too small")
	}
	if _, err := format.DecodeAndValidate(data[:format.HeaderSize], format.TypeDBMetadata, metaVersion); err != nil {
		return Record{}, errs.Wrap(errs.Initialization, "metadata: invalid META header", err)
	}
	rest := data[format.HeaderSize:]

	comp, rest, err := readString(rest)
	if err != nil {
		return Record{}, errs.Wrap(errs.Initialization, "metadata: truncated META file", err)
	}
	back, rest, err := readString(rest)
	if err != nil {
		return Record{}, errs.Wrap(errs.Initialization, "metadata: truncated META file", err)
	}
	if len(rest) < 8 {
		return Record{}, errs.New(errs.Initialization, "metadata: truncated META file")
	}
	wf := binary.LittleEndian.Uint64(rest[:8])
	return Record{Compressor: comp, Backend: back, WorldFormat: wf}, nil
}

// Open runs the metadata gate at dir (spec.md §4.4):
//
//  1. ensure dir exists;
//  2. if META exists, decode it and compare against want field by
//     field — any mismatch is a fatal errs.Initialization error;
//  3. if META is absent, write it with want's values exactly once.
//
// The returned Record is always equal to want on success.
func Open(dir string, want Record) (Record, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		got, derr := Decode(data)
		if derr != nil {
			return Record{}, derr
		}
		if got != want {
			return Record{}, errs.New(errs.Initialization, fmt.Sprintf(
				"metadata mismatch: database has {compressor=%s backend=%s world_format=%d}, configuration wants {compressor=%s backend=%s world_format=%d}",
				got.Compressor, got.Backend, got.WorldFormat,
				want.Compressor, want.Backend, want.WorldFormat))
		}
		return got, nil
	case os.IsNotExist(err):
		if werr := writeNew(dir, path, want); werr != nil {
			return Record{}, werr
		}
		return want, nil
	default:
		return Record{}, errs.Wrap(errs.Initialization, "metadata: read META", err)
	}
}

func writeNew(dir, path string, r Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.Initialization, "metadata: create database directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Encode(r), 0o644); err != nil {
		return errs.Wrap(errs.Initialization, "metadata: write META", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.Initialization, "metadata: rename META into place", err)
	}
	return nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, errs.New(errs.Initialization, "metadata: truncated string")
	}
	n := int(binary.LittleEndian.Uint16(buf[:2]))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, errs.New(errs.Initialization, "metadata: truncated string")
	}
	return string(buf[:n]), buf[n:], nil
}
