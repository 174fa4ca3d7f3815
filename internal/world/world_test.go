package world

import (
	"context"
	"testing"

	"chunkvault/internal/backend"
	"chunkvault/internal/backend/boltstore"
	"chunkvault/internal/chunkpb"
	"chunkvault/internal/compressor"
	"chunkvault/internal/errs"
	"chunkvault/internal/workerpool"
	"chunkvault/internal/worldhash"
)

func newTestPool() *workerpool.Pool { return workerpool.New(4) }

func newRegistry() *backend.Registry {
	r := backend.NewRegistry()
	r.Register("redb", boltstore.Open)
	return r
}

func sampleChunk(x, z int32) *chunkpb.Chunk {
	return &chunkpb.Chunk{
		X:           x,
		Z:           z,
		YPos:        0,
		Status:      "full",
		DataVersion: 3953,
		Sections:    []chunkpb.Section{},
	}
}

// TestFreshOpenSaveReopenLoad is end-to-end scenario 1 from spec.md §8:
// save a chunk, close, reopen with identical config, load it back.
func TestFreshOpenSaveReopenLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := Config{BackendName: "redb", DBPath: dir, Compression: compressor.Zstd, CompressionLevel: 3}

	w, err := Open(ctx, newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := sampleChunk(0, 0)
	if err := w.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := Open(ctx, newRegistry(), cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close(ctx)

	got, err := w2.Load(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Equal(got) {
		t.Fatalf("got %+v, want %+v", got, c)
	}
}

// TestMetadataMismatch is end-to-end scenario 2: reopening with a
// changed compressor fails startup.
func TestMetadataMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := Config{BackendName: "redb", DBPath: dir, Compression: compressor.Zstd, CompressionLevel: 3}

	w, err := Open(ctx, newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.Save(ctx, sampleChunk(0, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg2 := cfg
	cfg2.Compression = compressor.Gzip
	if _, err := Open(ctx, newRegistry(), cfg2); !errs.Is(err, errs.Initialization) {
		t.Fatalf("expected Initialization error on metadata mismatch, got %v", err)
	}
}

// TestDeleteIdempotence is end-to-end scenario 3: deleting an
// already-deleted key is not an error at the façade level.
func TestDeleteIdempotence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := Config{BackendName: "redb", DBPath: dir, Compression: compressor.Zstd, CompressionLevel: 3}

	w, err := Open(ctx, newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close(ctx)

	if err := w.Save(ctx, sampleChunk(5, -7)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := w.Delete(ctx, "", 5, -7); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := w.Delete(ctx, "", 5, -7); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok, err := w.Exists(ctx, "", 5, -7); err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v; want false, nil", ok, err)
	}
}

// TestCorruptionIsolation is end-to-end scenario 5: corrupting one
// stored record surfaces Corruption for that key only, never a
// neighboring valid one.
func TestCorruptionIsolation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := newRegistry()
	cfg := Config{BackendName: "redb", DBPath: dir, Compression: compressor.Zstd, CompressionLevel: 3}

	w, err := Open(ctx, reg, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close(ctx)

	if err := w.Save(ctx, sampleChunk(0, 0)); err != nil {
		t.Fatalf("Save (0,0): %v", err)
	}
	if err := w.Save(ctx, sampleChunk(0, 1)); err != nil {
		t.Fatalf("Save (0,1): %v", err)
	}

	if err := w.backend.Update(ctx, baseTable, worldhash.Coords(0, 0), []byte{0x00}); err != nil {
		t.Fatalf("corrupt (0,0): %v", err)
	}

	if _, err := w.Load(ctx, "", 0, 0); !errs.Is(err, errs.Corruption) {
		t.Fatalf("expected Corruption loading (0,0), got %v", err)
	}
	if got, err := w.Load(ctx, "", 0, 1); err != nil {
		t.Fatalf("expected (0,1) to still load cleanly, got %v", err)
	} else if got.X != 0 || got.Z != 1 {
		t.Fatalf("got wrong chunk %+v", got)
	}
}

// TestBatchAtomicityUnderFault is end-to-end scenario 6: a fault
// injected partway through a batch leaves none of its keys observable.
func TestBatchAtomicityUnderFault(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	real, err := boltstore.Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("boltstore.Open: %v", err)
	}
	faulty := &batchFaultBackend{Backend: real}

	comp, err := compressor.New(compressor.Zstd, 3)
	if err != nil {
		t.Fatalf("compressor.New: %v", err)
	}
	w := &World{backend: faulty, compressor: comp, pool: newTestPool()}
	if err := w.backend.CreateTable(ctx, baseTable); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	defer w.Close(ctx)

	chunks := make([]*chunkpb.Chunk, 1000)
	for i := range chunks {
		chunks[i] = sampleChunk(int32(i), 0)
	}
	if err := w.BatchSave(ctx, chunks); err == nil {
		t.Fatal("expected BatchSave to fail")
	}
	for _, c := range chunks {
		ok, err := w.Exists(ctx, "", c.X, c.Z)
		if err != nil || ok {
			t.Fatalf("Exists(%d,%d) = %v, %v; want false, nil", c.X, c.Z, ok, err)
		}
	}
}

// batchFaultBackend wraps a real Backend and fails any BatchInsert of
// more than 500 items, standing in for spec.md §8's "batch_insert a
// list of 1,000 chunks with one forced write-error injected at index
// 500" scenario. Such a batch is rejected without any of it reaching
// the wrapped backend, so the test does not exercise bbolt's own
// transaction rollback.
type batchFaultBackend struct {
	backend.Backend
}

func (b *batchFaultBackend) BatchInsert(ctx context.Context, table string, items []backend.KV) error {
	if len(items) > 500 {
		// Simulate the underlying engine aborting its single
		// transaction when a write at index 500 fails: nothing from
		// this call is passed through to the real backend at all.
		return errs.New(errs.BackendIO, "batchFaultBackend: injected failure at index 500")
	}
	return b.Backend.BatchInsert(ctx, table, items)
}
