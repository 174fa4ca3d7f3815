// Package backend declares the pluggable durable key-value store
// abstraction every concrete storage engine (internal/backend/boltstore,
// badgerstore, applog, envstub) implements, plus the factory registry
// the World façade uses to instantiate one by name.
//
// Backends never decide what a "chunk" is — they move opaque bytes
// under a uint64 key within a named table. Tables are declared by
// CreateTable; no backend creates a table implicitly on write.
// internal/world declares the base table at Open and also calls
// CreateTable (idempotent) for a chunk's dimension table before every
// Save and BatchSave, so a dimension table first comes into existence
// when a chunk of that dimension is first written.
package backend

import (
	"context"

	"chunkvault/internal/errs"
)

// Backend is the durable ordered uint64 -> []byte table store every
// storage engine variant implements. All methods are safe to call
// concurrently from multiple goroutines; each implementation serializes
// writes as its underlying engine requires.
type Backend interface {
	// CreateTable declares a table. Idempotent: creating an existing
	// table is not an error.
	CreateTable(ctx context.Context, table string) error

	// Insert is strict-create: inserting over an existing key is an
	// errs.Contention-free but explicit errs.BackendIO-adjacent
	// failure — see ErrKeyExists.
	Insert(ctx context.Context, table string, key uint64, value []byte) error

	// Upsert writes regardless of prior existence and reports whether
	// it overwrote an existing value.
	Upsert(ctx context.Context, table string, key uint64, value []byte) (existed bool, err error)

	// Update requires the key to already exist.
	Update(ctx context.Context, table string, key uint64, value []byte) error

	// Get returns the value for key, or (nil, false, nil) if absent.
	Get(ctx context.Context, table string, key uint64) (value []byte, found bool, err error)

	// Delete removes key. Deleting an absent key is ErrKeyNotFound
	// unless the caller wants façade-level idempotence (internal/world
	// treats ErrKeyNotFound from Delete as success).
	Delete(ctx context.Context, table string, key uint64) error

	// Exists reports whether key is present in table.
	Exists(ctx context.Context, table string, key uint64) (bool, error)

	// BatchInsert is atomic: either every (key, value) pair lands, or
	// none do.
	BatchInsert(ctx context.Context, table string, items []KV) error

	// BatchGet returns one optional value per requested key, preserving
	// the input order.
	BatchGet(ctx context.Context, table string, keys []uint64) ([]Option, error)

	// Flush establishes a durability barrier: every write completed
	// before Flush returns is guaranteed on stable storage once Flush
	// returns.
	Flush(ctx context.Context) error

	// Close releases all resources. Close is not safe to call
	// concurrently with any other method.
	Close(ctx context.Context) error
}

// Counter is an optional capability a Backend may implement to report
// how many live keys a table holds. It is not part of the core
// contract spec.md §4.3 tables, and World and Cache work without it.
// World.CountTable type-asserts for it (returning a Configuration error
// when it is absent), and `chunkvault inspect` uses that to give
// operators a per-table sanity count.
type Counter interface {
	Count(ctx context.Context, table string) (int, error)
}

// KV is one key/value pair for BatchInsert.
type KV struct {
	Key   uint64
	Value []byte
}

// Option is an optional byte slice, returned by BatchGet so callers can
// tell "absent" apart from "present and empty".
type Option struct {
	Value []byte
	Found bool
}

// Sentinel errors, each a tagged *errs.Error; backends return these
// values directly so callers can branch on errors.Is against them.
var (
	ErrKeyExists   = errs.New(errs.BackendIO, "key already exists")
	ErrKeyNotFound = errs.New(errs.NotFound, "key not found")
)

// Factory constructs a Backend rooted at path with the given options.
// Options are engine-specific string params, mirroring the teacher's
// own chunk.ManagerFactory / orchestrator.Factories convention
// (internal/orchestrator/factory.go) for pluggable-implementation
// registration without the registry needing concrete types.
type Factory func(ctx context.Context, path string, opts map[string]string) (Backend, error)

// Registry maps a backend name (spec.md §6 Configuration:
// database.backend) to its Factory. The zero value is ready to use.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a Factory under name, overwriting any prior entry.
func (r *Registry) Register(name string, f Factory) {
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	r.factories[name] = f
}

// Open looks up name and calls its Factory. An unknown name is a
// Configuration error, fatal at startup per spec.md §7.
func (r *Registry) Open(ctx context.Context, name, path string, opts map[string]string) (Backend, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, errs.New(errs.Configuration, "unknown backend: "+name)
	}
	return f(ctx, path, opts)
}
