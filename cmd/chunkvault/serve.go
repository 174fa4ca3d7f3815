package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"chunkvault/internal/cache"

	"github.com/spf13/cobra"
)

// newServeCmd opens the World (running the metadata gate), wraps it in
// a Cache, and blocks until interrupted — grounded on the teacher's
// own server command's signal.NotifyContext lifecycle shape
// (cmd/gastrolog/main.go), narrowed here since the network/protocol
// layer this façade would otherwise serve is out of core scope
// (spec.md §1): this command's job is to prove the database opens,
// stays open, and shuts down cleanly.
func newServeCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the chunk database and hold it open until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			maxEntries, _ := cmd.Flags().GetInt("cache-max-entries")

			w, cfg, err := openWorld(ctx, configPath(cmd))
			if err != nil {
				return logFatal(logger, "serve: open world", err)
			}
			defer func() {
				if cerr := w.Close(context.Background()); cerr != nil {
					logger.Error("serve: close world", "error", cerr)
				}
			}()

			c, err := cache.New(w, maxEntries)
			if err != nil {
				return logFatal(logger, "serve: construct cache", err)
			}
			_ = c // the network/protocol layer that would route through c is out of core scope

			logger.Info("chunkvault serving",
				"backend", cfg.Database.Backend,
				"db_path", cfg.Database.DBPath,
				"compression", cfg.Database.Compression)

			<-ctx.Done()
			logger.Info("shutting down")

			syncCtx, syncCancel := context.WithCancel(context.Background())
			defer syncCancel()
			if err := w.Sync(syncCtx); err != nil {
				logger.Error("serve: final sync", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("cache-max-entries", 0, "bound the in-memory chunk cache (0 = unbounded)")
	return cmd
}
