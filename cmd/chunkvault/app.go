package main

import (
	"context"
	"log/slog"

	"chunkvault/internal/backendreg"
	"chunkvault/internal/compressor"
	"chunkvault/internal/config"
	"chunkvault/internal/world"
)

// openWorld loads the config.yaml at path and runs the metadata gate
// against it (world.Open), returning the ready façade and the config
// it was opened with. Used by serve; import calls world.Open itself so
// it can apply --to, and inspect calls it with the values recorded in
// META. All three run the same metadata gate (spec.md §4.4, §7).
func openWorld(ctx context.Context, cfgPath string) (*world.World, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	w, err := world.Open(ctx, backendreg.New(), world.Config{
		BackendName:      cfg.Database.Backend,
		DBPath:           cfg.Database.DBPath,
		Compression:      compressor.Kind(cfg.Database.Compression),
		CompressionLevel: cfg.Database.CompressionLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	return w, cfg, nil
}

func logFatal(logger *slog.Logger, msg string, err error) error {
	logger.Error(msg, "error", err)
	return err
}
