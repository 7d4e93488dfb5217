package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the SLA monitor",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Postgres.RunMigrations && app.pg.PoolHandle() != nil {
		if err := app.migrate(ctx); err != nil {
			return err
		}
	}
	if err := app.policy.Refresh(ctx); err != nil {
		logger.Warn("sla policy refresh failed; using defaults", zap.Error(err))
	}
	go app.policy.Watch(ctx)

	app.pool.Start(ctx)
	app.monitor.Start(ctx)

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, logger, app.metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, app.routes())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- server.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		logger.Error("fiber listen", zap.Error(err))
	case sig := <-waitForSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	app.monitor.Stop()
	cancel()
	return nil
}

func waitForSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
