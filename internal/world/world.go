// Package world implements the façade spec.md §4.6 describes:
// save/load/exists/delete/sync keyed by (x, z), composing
// internal/worldhash, internal/compressor, internal/chunkcodec, and
// internal/backend. World is the sole owner of its Backend and
// Compressor for its lifetime; internal/cache holds only a non-owning
// reference to a *World.
package world

import (
	"context"
	"fmt"

	"chunkvault/internal/backend"
	"chunkvault/internal/chunkcodec"
	"chunkvault/internal/chunkpb"
	"chunkvault/internal/compressor"
	"chunkvault/internal/errs"
	"chunkvault/internal/metadata"
	"chunkvault/internal/workerpool"
	"chunkvault/internal/worldhash"
)

// baseTable is the fixed table name spec.md §3 assigns the core. Per
// spec.md §9's Open Question resolution, a dimension never salts the
// digest; instead each non-default dimension gets its own table,
// baseTable + "/" + dimension (see SPEC_FULL.md §3.1).
const baseTable = "chunks"

// Config names the concrete backend, compressor, and path a World
// opens. It carries four of spec.md §6's `database.*` configuration
// keys (not import_path), plus engine-specific backend options and the
// worker pool's concurrency bound.
type Config struct {
	BackendName      string
	DBPath           string
	Compression      compressor.Kind
	CompressionLevel int
	BackendOpts      map[string]string

	// WorkerConcurrency bounds the pool backing every blocking
	// operation (spec.md §5). <= 0 selects a default of 8.
	WorkerConcurrency int64
}

// World is the storage façade game code, the importer, and the cache
// layer above it all funnel through.
type World struct {
	backend    backend.Backend
	compressor compressor.Compressor
	pool       *workerpool.Pool
}

// Open runs the metadata gate (spec.md §4.4) against cfg.DBPath and
// returns a ready World. Configuration errors (empty backend name,
// empty path, unrecognized compressor) and Initialization errors
// (cannot create directory, cannot open the backend, metadata
// mismatch) are both fatal at startup, per spec.md §7.
func Open(ctx context.Context, registry *backend.Registry, cfg Config) (*World, error) {
	if cfg.BackendName == "" {
		return nil, errs.New(errs.Configuration, "world: empty backend name")
	}
	if cfg.DBPath == "" {
		return nil, errs.New(errs.Configuration, "world: empty db_path")
	}

	comp, err := compressor.New(cfg.Compression, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	b, err := registry.Open(ctx, cfg.BackendName, cfg.DBPath, cfg.BackendOpts)
	if err != nil {
		return nil, err
	}

	want := metadata.Record{
		Compressor:  string(cfg.Compression),
		Backend:     cfg.BackendName,
		WorldFormat: chunkcodec.SchemaHash,
	}
	if _, err := metadata.Open(cfg.DBPath, want); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	if err := b.CreateTable(ctx, baseTable); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	return &World{
		backend:    b,
		compressor: comp,
		pool:       workerpool.New(cfg.WorkerConcurrency),
	}, nil
}

func tableFor(dimension string) string {
	if dimension == "" {
		return baseTable
	}
	return baseTable + "/" + dimension
}

// Save computes c's digest from (c.X, c.Z), encodes and compresses it,
// and upserts the result under c.Dimension's table. Per spec.md §5,
// the whole operation runs on the worker pool, so Save always
// suspends at least once.
func (w *World) Save(ctx context.Context, c *chunkpb.Chunk) error {
	return w.pool.Submit(ctx, func(ctx context.Context) error {
		table := tableFor(c.Dimension)
		if err := w.backend.CreateTable(ctx, table); err != nil {
			return err
		}
		record, err := w.encodeRecord(c)
		if err != nil {
			return err
		}
		digest := worldhash.Coords(c.X, c.Z)
		_, err = w.backend.Upsert(ctx, table, digest, record)
		return err
	})
}

// Load fetches and decodes the chunk at (x, z) within dimension.
// A missing key is errs.NotFound; a malformed stored record is
// errs.Corruption and does not affect any other key.
func (w *World) Load(ctx context.Context, dimension string, x, z int32) (*chunkpb.Chunk, error) {
	var out *chunkpb.Chunk
	err := w.pool.Submit(ctx, func(ctx context.Context) error {
		table := tableFor(dimension)
		digest := worldhash.Coords(x, z)
		record, found, err := w.backend.Get(ctx, table, digest)
		if err != nil {
			return err
		}
		if !found {
			return errs.New(errs.NotFound, fmt.Sprintf("world: chunk (%d,%d) not found", x, z))
		}
		c, err := w.decodeRecord(record)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether a chunk is stored at (x, z) within dimension.
func (w *World) Exists(ctx context.Context, dimension string, x, z int32) (bool, error) {
	var out bool
	err := w.pool.Submit(ctx, func(ctx context.Context) error {
		var err error
		out, err = w.backend.Exists(ctx, tableFor(dimension), worldhash.Coords(x, z))
		return err
	})
	return out, err
}

// Delete removes the chunk at (x, z). A missing key is not an error
// at this façade level (spec.md §4.6).
func (w *World) Delete(ctx context.Context, dimension string, x, z int32) error {
	return w.pool.Submit(ctx, func(ctx context.Context) error {
		err := w.backend.Delete(ctx, tableFor(dimension), worldhash.Coords(x, z))
		if errs.Is(err, errs.NotFound) {
			return nil
		}
		return err
	})
}

// BatchSave encodes and compresses every chunk and issues one atomic
// backend.BatchInsert per table (i.e. per dimension): spec.md §8's
// Batch atomicity invariant applies within each such batch — either
// all or none of that table's keys are observable afterward.
func (w *World) BatchSave(ctx context.Context, chunks []*chunkpb.Chunk) error {
	return w.pool.Submit(ctx, func(ctx context.Context) error {
		byTable := make(map[string][]backend.KV)
		for _, c := range chunks {
			record, err := w.encodeRecord(c)
			if err != nil {
				return err
			}
			table := tableFor(c.Dimension)
			byTable[table] = append(byTable[table], backend.KV{
				Key:   worldhash.Coords(c.X, c.Z),
				Value: record,
			})
		}
		for table, items := range byTable {
			if err := w.backend.CreateTable(ctx, table); err != nil {
				return err
			}
			if err := w.backend.BatchInsert(ctx, table, items); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountTable reports how many chunks are stored in dimension's table,
// if the underlying backend implements backend.Counter (internal/backend's
// optional capability — not every variant can answer cheaply). Callers
// that only care about "how many chunks, roughly" — chunkvault inspect
// is the one caller — must tolerate the errs.Configuration error this
// returns when the backend doesn't support it.
func (w *World) CountTable(ctx context.Context, dimension string) (int, error) {
	counter, ok := w.backend.(backend.Counter)
	if !ok {
		return 0, errs.New(errs.Configuration, "world: backend does not implement Counter")
	}
	var n int
	err := w.pool.Submit(ctx, func(ctx context.Context) error {
		var err error
		n, err = counter.Count(ctx, tableFor(dimension))
		return err
	})
	return n, err
}

// Sync establishes a durability barrier: every write completed before
// Sync returns is guaranteed on stable storage once it does. Sync is
// idempotent; concurrent callers are serialized by the backend.
func (w *World) Sync(ctx context.Context) error {
	return w.pool.Submit(ctx, w.backend.Flush)
}

// Close releases the backend. Not safe to call concurrently with any
// other World method.
func (w *World) Close(ctx context.Context) error {
	return w.backend.Close(ctx)
}

func (w *World) encodeRecord(c *chunkpb.Chunk) ([]byte, error) {
	enc, err := chunkcodec.Encode(c)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "world: encode chunk", err)
	}
	record, err := w.compressor.Compress(enc)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "world: compress chunk", err)
	}
	return record, nil
}

func (w *World) decodeRecord(record []byte) (*chunkpb.Chunk, error) {
	enc, err := w.compressor.Decompress(record)
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, "world: decompress chunk", err)
	}
	c, err := chunkcodec.Decode(enc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
