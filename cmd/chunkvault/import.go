package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"chunkvault/internal/backendreg"
	"chunkvault/internal/chunkcodec/anvil"
	"chunkvault/internal/chunkpb"
	"chunkvault/internal/compressor"
	"chunkvault/internal/config"
	"chunkvault/internal/world"

	"github.com/spf13/cobra"
)

// importBatchSize bounds how many decoded chunks newImportCmd accumulates
// before issuing a World.BatchSave, so a large --from tree is imported as
// several atomic batches (spec.md §5 Backpressure: "batch_insert MAY chunk
// its work and issue intermediate flushes") rather than one unbounded
// in-memory batch or one record at a time.
const importBatchSize = 500

// newImportCmd runs the Anvil ingestion path (internal/chunkcodec/anvil)
// over every file in --from and batch_insert's the results into the
// database at --to. Per spec.md §4.5's last paragraph, parsing a
// vanilla region container (.mca) is out of core scope; --from is
// expected to hold already-extracted per-chunk NBT documents (gzip
// or raw), the unit DecodeAnvil actually consumes.
func newImportCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import extracted Anvil chunk NBT documents into a chunk database",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			if from == "" {
				return fmt.Errorf("import: --from is required")
			}

			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return logFatal(logger, "import: load config", err)
			}
			dbPath := cfg.Database.DBPath
			if to != "" {
				dbPath = to
			}

			ctx := context.Background()
			w, err := world.Open(ctx, backendreg.New(), world.Config{
				BackendName:      cfg.Database.Backend,
				DBPath:           dbPath,
				Compression:      compressor.Kind(cfg.Database.Compression),
				CompressionLevel: cfg.Database.CompressionLevel,
			})
			if err != nil {
				return logFatal(logger, "import: open world", err)
			}
			defer func() {
				if cerr := w.Close(context.Background()); cerr != nil {
					logger.Error("import: close world", "error", cerr)
				}
			}()

			imported, skipped, err := importTree(ctx, w, from, logger)
			if err != nil {
				return logFatal(logger, "import: walk "+from, err)
			}
			logger.Info("import complete", "imported", imported, "skipped", skipped)
			cmd.Printf("imported %d chunks (%d skipped)\n", imported, skipped)
			return nil
		},
	}
	cmd.Flags().String("from", "", "directory of extracted Anvil chunk NBT documents")
	cmd.Flags().String("to", "", "destination database directory (overrides config's database.db_path)")
	return cmd
}

func importTree(ctx context.Context, w *world.World, dir string, logger *slog.Logger) (imported, skipped int, err error) {
	var batch []*chunkpb.Chunk

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.BatchSave(ctx, batch); err != nil {
			return err
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		c, err := decodeChunkFile(path)
		if err != nil {
			logger.Warn("import: skipping unreadable chunk file", "path", path, "error", err)
			skipped++
			return nil
		}
		batch = append(batch, c)
		if len(batch) >= importBatchSize {
			return flush()
		}
		return nil
	})
	if walkErr != nil {
		return imported, skipped, walkErr
	}
	if err := flush(); err != nil {
		return imported, skipped, err
	}
	if err := w.Sync(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, nil
}

// decodeChunkFile reads one extracted Anvil chunk document, transparently
// unwrapping a gzip envelope (the on-disk convention vanilla uses for
// standalone NBT files) before handing the raw tag bytes to DecodeAnvil.
func decodeChunkFile(path string) (*chunkpb.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if gz, gerr := gzip.NewReader(f); gerr == nil {
		defer gz.Close()
		r = gz
	} else if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c, err := anvil.DecodeAnvil(data)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
