package config

import (
	"os"
	"path/filepath"
	"testing"

	"chunkvault/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
database:
  backend: redb
  db_path: /var/lib/chunkvault
  compression: zstd
  compression_level: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Backend != "redb" || cfg.Database.DBPath != "/var/lib/chunkvault" {
		t.Fatalf("got %+v", cfg.Database)
	}
	if cfg.Database.CompressionLevel != 3 {
		t.Fatalf("got CompressionLevel = %d", cfg.Database.CompressionLevel)
	}
}

func TestLoadMissingBackendFails(t *testing.T) {
	path := writeConfig(t, `
database:
  db_path: /var/lib/chunkvault
  compression: zstd
`)
	if _, err := Load(path); !errs.Is(err, errs.Configuration) {
		t.Fatalf("expected Configuration error, got %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errs.Is(err, errs.Configuration) {
		t.Fatalf("expected Configuration error, got %v", err)
	}
}
