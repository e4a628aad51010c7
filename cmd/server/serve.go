package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dsnap/internal/app"
	"dsnap/internal/platform/database"
	"dsnap/internal/platform/httpserver"
	"dsnap/internal/platform/logger"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registration API",
	Long: `Serve the registration API until SIGINT or SIGTERM.

Without a database URL the service keeps registrations and staff in memory,
which is only suitable for local development.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)

	if migrateOnStart && cfg.Database.URL != "" {
		v, err := database.Migrate(cfg.Database.URL)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "version", v)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Error("shutdown cleanup failed", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server.Addr, a.Handler())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		return a.RunBackground(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
