// Package badgerstore implements internal/backend.Backend on top of
// github.com/dgraph-io/badger/v4, an embedded LSM-tree key-value store
// — the RocksLike / LogStructured capability variant from spec.md
// §4.3/§9. badger has no native column-family concept, so tables are
// modeled as a key prefix within one shared badger instance, grounded
// on the same Minecraft-world-storage use of badger seen in the
// retrieval pack (other_examples' annel0-mmo-game world_storage.go)
// and the metadata-store usage in marmos91-dittofs.
package badgerstore

import (
	"context"

	"chunkvault/internal/backend"
	"chunkvault/internal/errs"

	"github.com/dgraph-io/badger/v4"
)

type Store struct {
	db *badger.DB
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Counter = (*Store)(nil)
)

// Open creates or opens a badger database rooted at dir.
func Open(ctx context.Context, dir string, _ map[string]string) (backend.Backend, error) {
	if dir == "" {
		return nil, errs.New(errs.Configuration, "badgerstore: empty path")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "badgerstore: open", err)
	}
	return &Store{db: db}, nil
}

// CreateTable is a no-op beyond bookkeeping: badger tables are a key
// prefix, so there is no separate namespace object to allocate, and a
// write to an undeclared table succeeds. The method exists so badger
// shares the Backend contract; internal/world calls it before every
// Save and BatchSave.
func (s *Store) CreateTable(_ context.Context, table string) error {
	return nil
}

func prefixedKey(table string, key uint64) []byte {
	buf := make([]byte, 0, len(table)+1+8)
	buf = append(buf, table...)
	buf = append(buf, 0x00)
	for i := 56; i >= 0; i -= 8 {
		buf = append(buf, byte(key>>uint(i)))
	}
	return buf
}

func (s *Store) Insert(_ context.Context, table string, key uint64, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := prefixedKey(table, key)
		if _, e := txn.Get(k); e == nil {
			return backend.ErrKeyExists
		} else if e != badger.ErrKeyNotFound {
			return e
		}
		return txn.Set(k, value)
	})
	return wrapWrite(err)
}

func (s *Store) Upsert(_ context.Context, table string, key uint64, value []byte) (bool, error) {
	var existed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		k := prefixedKey(table, key)
		if _, e := txn.Get(k); e == nil {
			existed = true
		} else if e != badger.ErrKeyNotFound {
			return e
		}
		return txn.Set(k, value)
	})
	if err != nil {
		return false, wrapWrite(err)
	}
	return existed, nil
}

func (s *Store) Update(_ context.Context, table string, key uint64, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := prefixedKey(table, key)
		if _, e := txn.Get(k); e == badger.ErrKeyNotFound {
			return backend.ErrKeyNotFound
		} else if e != nil {
			return e
		}
		return txn.Set(k, value)
	})
	return wrapWrite(err)
}

func (s *Store) Get(_ context.Context, table string, key uint64) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get(prefixedKey(table, key))
		if e == badger.ErrKeyNotFound {
			return nil
		}
		if e != nil {
			return e
		}
		found = true
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, errs.Wrap(errs.BackendIO, "badgerstore: get", err)
	}
	return out, found, nil
}

func (s *Store) Delete(_ context.Context, table string, key uint64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		k := prefixedKey(table, key)
		if _, e := txn.Get(k); e == badger.ErrKeyNotFound {
			return backend.ErrKeyNotFound
		} else if e != nil {
			return e
		}
		return txn.Delete(k)
	})
	return wrapWrite(err)
}

func (s *Store) Exists(_ context.Context, table string, key uint64) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, e := txn.Get(prefixedKey(table, key))
		if e == badger.ErrKeyNotFound {
			return nil
		}
		if e != nil {
			return e
		}
		found = true
		return nil
	})
	if err != nil {
		return false, errs.Wrap(errs.BackendIO, "badgerstore: exists", err)
	}
	return found, nil
}

func (s *Store) BatchInsert(_ context.Context, table string, items []backend.KV) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, kv := range items {
		if err := wb.Set(prefixedKey(table, kv.Key), kv.Value); err != nil {
			return errs.Wrap(errs.BackendIO, "badgerstore: batch insert", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return errs.Wrap(errs.BackendIO, "badgerstore: batch insert commit", err)
	}
	return nil
}

func (s *Store) BatchGet(_ context.Context, table string, keys []uint64) ([]backend.Option, error) {
	out := make([]backend.Option, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			item, e := txn.Get(prefixedKey(table, k))
			if e == badger.ErrKeyNotFound {
				continue
			}
			if e != nil {
				return e
			}
			val, e := item.ValueCopy(nil)
			if e != nil {
				return e
			}
			out[i] = backend.Option{Value: val, Found: true}
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.BackendIO, "badgerstore: batch get", err)
	}
	return out, nil
}

// Count implements backend.Counter by scanning key-only (no value
// fetch) over table's prefix, the idiomatic badger way to count
// without paying for value reads.
func (s *Store) Count(_ context.Context, table string) (int, error) {
	prefix := append([]byte(table), 0x00)
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.BackendIO, "badgerstore: count", err)
	}
	return n, nil
}

func (s *Store) Flush(_ context.Context) error {
	if err := s.db.Sync(); err != nil {
		return errs.Wrap(errs.BackendIO, "badgerstore: flush", err)
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return errs.Wrap(errs.BackendIO, "badgerstore: close", err)
	}
	return nil
}

func wrapWrite(err error) error {
	switch err {
	case nil:
		return nil
	case backend.ErrKeyExists, backend.ErrKeyNotFound:
		return err
	default:
		return errs.Wrap(errs.BackendIO, "badgerstore: write", err)
	}
}
