package applog

import (
	"context"
	"testing"

	"chunkvault/internal/backend"
	"chunkvault/internal/backend/backendtest"
)

func TestApplogContract(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close(context.Background())
	backendtest.Run(t, b)
}

// TestApplogRebuildsIndexAcrossReopen exercises the package's own
// distinguishing feature: the single linear scan that reconstructs a
// table's in-memory offset index from the on-disk log on open,
// including the tombstone case, where a reopened table must still
// report a deleted key as absent.
func TestApplogRebuildsIndexAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := b.CreateTable(ctx, "widgets"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := b.Insert(ctx, "widgets", 1, []byte("alpha")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := b.Upsert(ctx, "widgets", 1, []byte("alpha-2")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := b.Insert(ctx, "widgets", 2, []byte("beta")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := b.Delete(ctx, "widgets", 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b2, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close(ctx)
	if err := b2.CreateTable(ctx, "widgets"); err != nil {
		t.Fatalf("reopen CreateTable: %v", err)
	}

	got, found, err := b2.Get(ctx, "widgets", 1)
	if err != nil || !found || string(got) != "alpha-2" {
		t.Fatalf("Get(1) after reopen = %q, %v, %v; want alpha-2, true, nil", got, found, err)
	}
	if ok, err := b2.Exists(ctx, "widgets", 2); err != nil || ok {
		t.Fatalf("Exists(2) after reopen = %v, %v; want false, nil (tombstoned)", ok, err)
	}
}

// TestApplogBatchInsertRollsBackOnFault confirms that a BatchInsert
// rejected by its pre-flight existence check leaves no new key from the
// batch observable.
func TestApplogBatchInsertRollsBackOnFault(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close(ctx)
	if err := b.CreateTable(ctx, "widgets"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	// A duplicate key in the batch fails the pre-flight existence
	// check before any bytes are written, so the whole batch must be
	// rejected atomically.
	if err := b.Insert(ctx, "widgets", 1, []byte("pre-existing")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	items := []backend.KV{
		{Key: 10, Value: []byte("a")},
		{Key: 1, Value: []byte("b")},
		{Key: 11, Value: []byte("c")},
	}
	if err := b.BatchInsert(ctx, "widgets", items); err == nil {
		t.Fatal("BatchInsert with a duplicate key: want error, got nil")
	}
	for _, key := range []uint64{10, 11} {
		if ok, err := b.Exists(ctx, "widgets", key); err != nil || ok {
			t.Fatalf("Exists(%d) after failed batch = %v, %v; want false, nil", key, ok, err)
		}
	}
}
