package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/internal/server"
	"github.com/lineamap/lineamap/pkg/pipeline"
	"github.com/lineamap/lineamap/pkg/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// process receives a stop signal.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &runOpts{}
	var addr, configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lineage HTTP API server",
		Long: `Serve loads the corpus, builds the lineage graph, and exposes it over
HTTP: full graph, filtered queries, layouts, validation reports, and an
operator reload endpoint.

When a MongoDB URI is configured, each reload is persisted as a
snapshot and startup restores the latest one before the first build
completes.

Examples:
  lineamap serve -d ./records
  lineamap serve -m corpus.txt --addr :9090
  lineamap serve -d ./records --config ./lineamap.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts, addr, configFile)
		},
	}

	opts.addSourceFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *runOpts, addr, configFile string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	resultCache, err := configCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(resultCache, nil, c.Logger)
	defer runner.Close()

	var snapshots *store.Store
	if cfg.Mongo.URI != "" {
		snapshots, err = store.Open(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer snapshots.Close(context.Background())
	}

	srv := server.New(server.Config{
		Runner:    runner,
		Source:    opts.pipelineOptions(),
		Logger:    c.Logger,
		Snapshots: snapshots,
		Namespace: cfg.Mongo.Namespace,
	})

	if snapshots != nil {
		if err := srv.Restore(ctx); err != nil && !errors.Is(err, store.ErrNoSnapshot) {
			c.Logger.Warn("snapshot restore failed", "err", err)
		}
	}
	if err := srv.Reload(ctx); err != nil {
		// With a restored snapshot the server can still serve stale data.
		if snapshots == nil {
			return err
		}
		c.Logger.Warn("initial reload failed, serving restored snapshot", "err", err)
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
