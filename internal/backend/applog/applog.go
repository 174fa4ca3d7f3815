// Package applog implements internal/backend.Backend as an append-only
// record log per table — the AppendLog capability variant from
// spec.md §4.3/§9. It is a direct generalization of the teacher's
// internal/chunk/file package: each table gets its own log file with a
// 4-byte internal/format header, followed by a sequence of
// size-prefixed-and-trailed records (mirroring
// internal/chunk/file/record.go's EncodeRecord/DecodeRecord framing).
// An in-memory offset index is rebuilt by a single linear scan of a
// table's log when CreateTable opens that table, the same way Manager rebuilds chunkMeta from idx.log at startup.
//
// Keys are never overwritten in place: Upsert and Update append a new
// record and the index repoints to it, and Delete appends a tombstone
// record. This keeps writes purely sequential, at the cost of
// unbounded log growth — there is no compaction, matching the
// "append-log" variant's documented trade-off in spec.md.
package applog

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"chunkvault/internal/backend"
	"chunkvault/internal/errs"
	"chunkvault/internal/format"
)

const (
	logVersion = 1

	// record layout (after the 4-byte table header):
	//   size       uint32 (total record length, header+payload, trailer excl.)
	//   tombstone  byte
	//   key        uint64
	//   valueLen   uint32
	//   value      []byte
	//   sizeTrail  uint32 (repeats size, for reverse scanning / torn-write detection)
	recordFixedBytes = 4 + 1 + 8 + 4
	trailerBytes     = 4
)

type recordLoc struct {
	offset    int64
	size      uint32
	tombstone bool
}

type table struct {
	file  *os.File
	index map[uint64]recordLoc
}

// Store is an append-log-backed Backend, one log file per table under dir.
type Store struct {
	mu     sync.Mutex
	dir    string
	tables map[string]*table
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Counter = (*Store)(nil)
)

// Open prepares an append-log store rooted at dir. Existing table logs
// are not scanned until CreateTable names them, mirroring the rest of
// the backend family's "tables are declared, not discovered" contract.
func Open(ctx context.Context, dir string, _ map[string]string) (backend.Backend, error) {
	if dir == "" {
		return nil, errs.New(errs.Configuration, "applog: empty path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Initialization, "applog: create directory", err)
	}
	return &Store{dir: dir, tables: make(map[string]*table)}, nil
}

func (s *Store) logPath(name string) string {
	return filepath.Join(s.dir, name+".log")
}

func (s *Store) CreateTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil
	}
	t, err := openTable(s.logPath(name))
	if err != nil {
		return errs.Wrap(errs.Initialization, "applog: open table "+name, err)
	}
	s.tables[name] = t
	return nil
}

func openTable(path string) (*table, error) {
	existed := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		existed = false
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if !existed {
		hdr := format.Header{Type: format.TypeLogRecord, Version: logVersion}.Encode()
		if _, err := f.Write(hdr[:]); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
	}
	t := &table{file: f, index: make(map[uint64]recordLoc)}
	if err := t.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

// rebuildIndex performs the single linear scan that reconstructs the
// in-memory offset index from the on-disk log, the append-log analog
// of Manager rebuilding chunkMeta from idx.log at startup.
func (t *table) rebuildIndex() error {
	info, err := t.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size < format.HeaderSize {
		return format.ErrHeaderTooSmall
	}
	var hdrBuf [format.HeaderSize]byte
	if _, err := t.file.ReadAt(hdrBuf[:], 0); err != nil {
		return err
	}
	if _, err := format.DecodeAndValidate(hdrBuf[:], format.TypeLogRecord, logVersion); err != nil {
		return err
	}

	offset := int64(format.HeaderSize)
	for offset < size {
		var fixed [recordFixedBytes]byte
		if _, err := t.file.ReadAt(fixed[:], offset); err != nil {
			return err
		}
		recSize := binary.LittleEndian.Uint32(fixed[0:4])
		tombstone := fixed[4] != 0
		key := binary.LittleEndian.Uint64(fixed[5:13])
		valueLen := binary.LittleEndian.Uint32(fixed[13:17])
		total := int64(recordFixedBytes) + int64(valueLen) + int64(trailerBytes)
		if int64(recSize) != total-int64(trailerBytes) {
			return errs.New(errs.Corruption, "applog: record size mismatch")
		}
		t.index[key] = recordLoc{offset: offset, size: recSize, tombstone: tombstone}
		offset += total
	}
	return nil
}

func encodeRecord(key uint64, value []byte, tombstone bool) []byte {
	total := recordFixedBytes + len(value) + trailerBytes
	buf := make([]byte, total)
	recSize := uint32(recordFixedBytes + len(value))
	binary.LittleEndian.PutUint32(buf[0:4], recSize)
	if tombstone {
		buf[4] = 1
	}
	binary.LittleEndian.PutUint64(buf[5:13], key)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(value)))
	copy(buf[recordFixedBytes:recordFixedBytes+len(value)], value)
	binary.LittleEndian.PutUint32(buf[total-trailerBytes:], recSize)
	return buf
}

func (t *table) readValue(loc recordLoc) ([]byte, error) {
	valueLen := loc.size - recordFixedBytes
	buf := make([]byte, valueLen)
	if valueLen > 0 {
		if _, err := t.file.ReadAt(buf, loc.offset+recordFixedBytes); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (t *table) append(key uint64, value []byte, tombstone bool) error {
	info, err := t.file.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()
	buf := encodeRecord(key, value, tombstone)
	if _, err := t.file.WriteAt(buf, offset); err != nil {
		return err
	}
	t.index[key] = recordLoc{offset: offset, size: uint32(recordFixedBytes + len(value)), tombstone: tombstone}
	return nil
}

func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, errs.New(errs.BackendIO, "applog: table not declared: "+name)
	}
	return t, nil
}

func (s *Store) Insert(_ context.Context, name string, key uint64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if loc, ok := t.index[key]; ok && !loc.tombstone {
		return backend.ErrKeyExists
	}
	if err := t.append(key, value, false); err != nil {
		return errs.Wrap(errs.BackendIO, "applog: insert", err)
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, name string, key uint64, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return false, err
	}
	loc, existed := t.index[key]
	existed = existed && !loc.tombstone
	if err := t.append(key, value, false); err != nil {
		return false, errs.Wrap(errs.BackendIO, "applog: upsert", err)
	}
	return existed, nil
}

func (s *Store) Update(_ context.Context, name string, key uint64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	loc, ok := t.index[key]
	if !ok || loc.tombstone {
		return backend.ErrKeyNotFound
	}
	if err := t.append(key, value, false); err != nil {
		return errs.Wrap(errs.BackendIO, "applog: update", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, name string, key uint64) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return nil, false, err
	}
	loc, ok := t.index[key]
	if !ok || loc.tombstone {
		return nil, false, nil
	}
	value, err := t.readValue(loc)
	if err != nil {
		return nil, false, errs.Wrap(errs.BackendIO, "applog: get", err)
	}
	return value, true, nil
}

func (s *Store) Delete(_ context.Context, name string, key uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	loc, ok := t.index[key]
	if !ok || loc.tombstone {
		return backend.ErrKeyNotFound
	}
	if err := t.append(key, nil, true); err != nil {
		return errs.Wrap(errs.BackendIO, "applog: delete", err)
	}
	return nil
}

func (s *Store) Exists(_ context.Context, name string, key uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return false, err
	}
	loc, ok := t.index[key]
	return ok && !loc.tombstone, nil
}

// BatchInsert satisfies spec.md §8's Batch atomicity invariant by
// building every record into one contiguous buffer and writing it with
// a single WriteAt: a partial (short) write never happens to land on a
// record boundary, so a failure here truncates the file back to its
// pre-batch size and the index is never updated. Either every key in
// items becomes observable or none do.
func (s *Store) BatchInsert(_ context.Context, name string, items []backend.KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	for _, kv := range items {
		if loc, ok := t.index[kv.Key]; ok && !loc.tombstone {
			return backend.ErrKeyExists
		}
	}

	info, err := t.file.Stat()
	if err != nil {
		return errs.Wrap(errs.BackendIO, "applog: batch insert stat", err)
	}
	start := info.Size()

	locs := make([]recordLoc, len(items))
	var buf []byte
	offset := start
	for i, kv := range items {
		rec := encodeRecord(kv.Key, kv.Value, false)
		locs[i] = recordLoc{offset: offset, size: uint32(recordFixedBytes + len(kv.Value))}
		buf = append(buf, rec...)
		offset += int64(len(rec))
	}

	if _, err := t.file.WriteAt(buf, start); err != nil {
		if terr := t.file.Truncate(start); terr != nil {
			return errs.Wrap(errs.BackendIO, "applog: batch insert write, then truncate-back failed", terr)
		}
		return errs.Wrap(errs.BackendIO, "applog: batch insert write", err)
	}
	if err := t.file.Sync(); err != nil {
		_ = t.file.Truncate(start)
		return errs.Wrap(errs.BackendIO, "applog: batch insert sync", err)
	}

	for i, kv := range items {
		t.index[kv.Key] = locs[i]
	}
	return nil
}

func (s *Store) BatchGet(_ context.Context, name string, keys []uint64) ([]backend.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Option, len(keys))
	for i, key := range keys {
		loc, ok := t.index[key]
		if !ok || loc.tombstone {
			continue
		}
		value, err := t.readValue(loc)
		if err != nil {
			return nil, errs.Wrap(errs.BackendIO, "applog: batch get", err)
		}
		out[i] = backend.Option{Value: value, Found: true}
	}
	return out, nil
}

// Count implements backend.Counter directly off the in-memory offset
// index rebuilt at open, skipping tombstoned keys.
func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, loc := range t.index {
		if !loc.tombstone {
			n++
		}
	}
	return n, nil
}

func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.tables {
		if err := t.file.Sync(); err != nil {
			return errs.Wrap(errs.BackendIO, "applog: flush "+name, err)
		}
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.tables {
		if err := t.file.Close(); err != nil {
			return errs.Wrap(errs.BackendIO, "applog: close "+name, err)
		}
	}
	return nil
}
