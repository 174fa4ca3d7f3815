// Package backendtest holds a contract test suite run identically
// against every internal/backend.Backend implementation, grounded on
// the teacher's practice of sharing one test body across its file- and
// memory-backed chunk managers (internal/chunk/file/manager_test.go
// and internal/chunk/memory/manager_test.go both exercise the same
// behavioral contract).
package backendtest

import (
	"context"
	"testing"

	"chunkvault/internal/backend"
	"chunkvault/internal/errs"
)

// Run exercises the full Backend contract against b, which must have
// no pre-existing "widgets" table.
func Run(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()

	if err := b.CreateTable(ctx, "widgets"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	t.Run("InsertThenGet", func(t *testing.T) {
		if err := b.Insert(ctx, "widgets", 1, []byte("alpha")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, found, err := b.Get(ctx, "widgets", 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !found || string(got) != "alpha" {
			t.Fatalf("Get = %q, %v; want alpha, true", got, found)
		}
	})

	t.Run("InsertDuplicateFails", func(t *testing.T) {
		if err := b.Insert(ctx, "widgets", 2, []byte("beta")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		err := b.Insert(ctx, "widgets", 2, []byte("beta-again"))
		if !errs.Is(err, errs.BackendIO) && err != backend.ErrKeyExists {
			t.Fatalf("Insert duplicate: want ErrKeyExists-flavored error, got %v", err)
		}
	})

	t.Run("GetMissingIsNotFoundNotError", func(t *testing.T) {
		_, found, err := b.Get(ctx, "widgets", 999)
		if err != nil {
			t.Fatalf("Get missing: %v", err)
		}
		if found {
			t.Fatalf("Get missing: found = true, want false")
		}
	})

	t.Run("UpsertReportsExistence", func(t *testing.T) {
		existed, err := b.Upsert(ctx, "widgets", 3, []byte("gamma"))
		if err != nil {
			t.Fatalf("Upsert first: %v", err)
		}
		if existed {
			t.Fatalf("Upsert first: existed = true, want false")
		}
		existed, err = b.Upsert(ctx, "widgets", 3, []byte("gamma-2"))
		if err != nil {
			t.Fatalf("Upsert second: %v", err)
		}
		if !existed {
			t.Fatalf("Upsert second: existed = false, want true")
		}
		got, found, err := b.Get(ctx, "widgets", 3)
		if err != nil || !found || string(got) != "gamma-2" {
			t.Fatalf("Get after upsert = %q, %v, %v", got, found, err)
		}
	})

	t.Run("UpdateRequiresExisting", func(t *testing.T) {
		if err := b.Update(ctx, "widgets", 4242, []byte("x")); err == nil {
			t.Fatalf("Update missing key: want error, got nil")
		}
		if err := b.Insert(ctx, "widgets", 4, []byte("delta")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := b.Update(ctx, "widgets", 4, []byte("delta-2")); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, found, err := b.Get(ctx, "widgets", 4)
		if err != nil || !found || string(got) != "delta-2" {
			t.Fatalf("Get after update = %q, %v, %v", got, found, err)
		}
	})

	t.Run("DeleteThenMissing", func(t *testing.T) {
		if err := b.Insert(ctx, "widgets", 5, []byte("epsilon")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := b.Delete(ctx, "widgets", 5); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		_, found, err := b.Get(ctx, "widgets", 5)
		if err != nil {
			t.Fatalf("Get after delete: %v", err)
		}
		if found {
			t.Fatalf("Get after delete: found = true, want false")
		}
	})

	t.Run("ExistsTracksLifecycle", func(t *testing.T) {
		ok, err := b.Exists(ctx, "widgets", 6)
		if err != nil || ok {
			t.Fatalf("Exists before insert = %v, %v; want false, nil", ok, err)
		}
		if err := b.Insert(ctx, "widgets", 6, []byte("zeta")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ok, err = b.Exists(ctx, "widgets", 6)
		if err != nil || !ok {
			t.Fatalf("Exists after insert = %v, %v; want true, nil", ok, err)
		}
	})

	t.Run("BatchInsertAndBatchGetPreserveOrder", func(t *testing.T) {
		items := []backend.KV{
			{Key: 100, Value: []byte("a")},
			{Key: 101, Value: []byte("b")},
			{Key: 102, Value: []byte("c")},
		}
		if err := b.BatchInsert(ctx, "widgets", items); err != nil {
			t.Fatalf("BatchInsert: %v", err)
		}
		opts, err := b.BatchGet(ctx, "widgets", []uint64{100, 999, 102, 101})
		if err != nil {
			t.Fatalf("BatchGet: %v", err)
		}
		want := []backend.Option{
			{Value: []byte("a"), Found: true},
			{Found: false},
			{Value: []byte("c"), Found: true},
			{Value: []byte("b"), Found: true},
		}
		if len(opts) != len(want) {
			t.Fatalf("BatchGet returned %d entries, want %d", len(opts), len(want))
		}
		for i := range want {
			if opts[i].Found != want[i].Found || string(opts[i].Value) != string(want[i].Value) {
				t.Fatalf("BatchGet[%d] = %+v, want %+v", i, opts[i], want[i])
			}
		}
	})

	t.Run("FlushIsSafeToCall", func(t *testing.T) {
		if err := b.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	})

	t.Run("UnknownTableIsBackendIOError", func(t *testing.T) {
		_, found, err := b.Get(ctx, "no-such-table", 1)
		if err == nil {
			// Some backends (e.g. bolt) return "not found" rather than
			// erroring for a never-declared bucket; both are acceptable
			// as long as no data from another table leaks through.
			if found {
				t.Fatal("Get on an undeclared table reported a value")
			}
			return
		}
		if !errs.Is(err, errs.BackendIO) {
			t.Fatalf("Get on an undeclared table: got %v, want a BackendIO error", err)
		}
	})
}
