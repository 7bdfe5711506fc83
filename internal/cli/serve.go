package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/radhakrish-venkat/desktop-search/internal/api"
	"github.com/radhakrish-venkat/desktop-search/internal/logging"
	"github.com/radhakrish-venkat/desktop-search/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logging.New("serve")

	c, err := bootstrap()
	if err != nil {
		return err
	}
	defer c.db.Close()

	if c.cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured (set jwt_secret in config.toml or DOCSEARCH_JWT_SECRET)")
	}

	srv := api.New(api.Deps{
		Config:    c.cfg,
		Registry:  c.registry,
		Scheduler: c.scheduler,
		Search:    c.search,
		Keys:      c.keys,
		Chunks:    c.chunks,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.cfg.Index.WatchEnabled {
		w, err := watch.New(func(ctx context.Context, root string) error {
			_, err := c.scheduler.Enqueue(ctx, root)
			return err
		}, 2*time.Second)
		if err != nil {
			log.Warn("directory watch unavailable", "err", err)
		} else {
			for _, d := range c.registry.List() {
				if err := w.Add(d.Path); err != nil {
					log.Warn("failed to watch directory", "path", d.Path, "err", err)
				}
			}
			go w.Run(ctx)
			defer w.Close()
		}
	}

	httpSrv := &http.Server{Addr: c.cfg.ListenAddr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	log.Info("listening", "addr", c.cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
