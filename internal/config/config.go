// Package config loads the on-disk configuration a chunkvault process
// starts from: which backend variant to open, where its files live,
// and which compressor to encode chunks with. Adapted from the
// teacher's own internal/config package, narrowed from a
// Store-interface-backed desired-state document down to the flat,
// load-once-at-startup shape this spec calls for (no hot reload,
// no persistence back to disk).
package config

import (
	"os"

	"chunkvault/internal/errs"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document, loaded once at process
// startup and never mutated afterward.
type Config struct {
	Database Database `yaml:"database"`
}

// Database names the five keys spec.md §6 Configuration defines.
type Database struct {
	// Backend selects a registered backend.Factory by name: one of
	// "redb", "rocksdb", "surrealkv", "sled" (or any name a caller has
	// registered).
	Backend string `yaml:"backend"`

	// DBPath is the directory the backend and the metadata gate
	// operate under.
	DBPath string `yaml:"db_path"`

	// Compression names a compressor.Kind: "zstd", "brotli", "deflate",
	// "gzip", or "zlib".
	Compression string `yaml:"compression"`

	// CompressionLevel is passed through to the chosen compressor.
	// Its valid range is compressor-specific.
	CompressionLevel int `yaml:"compression_level"`

	// ImportPath, when set, is the Anvil world directory `chunkvault
	// import` reads chunks from. Empty outside of import.
	ImportPath string `yaml:"import_path"`
}

// Load reads and parses the YAML document at path, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Configuration, "config: read "+path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.Configuration, "config: parse "+path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports a Configuration error for any field spec.md §7
// requires to be fatal at startup: an empty backend name, an empty
// db_path, or an empty compressor name.
func (c *Config) Validate() error {
	if c.Database.Backend == "" {
		return errs.New(errs.Configuration, "config: database.backend must not be empty")
	}
	if c.Database.DBPath == "" {
		return errs.New(errs.Configuration, "config: database.db_path must not be empty")
	}
	if c.Database.Compression == "" {
		return errs.New(errs.Configuration, "config: database.compression must not be empty")
	}
	return nil
}
