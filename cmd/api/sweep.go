package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one SLA sweep over open tickets and exit",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.policy.Refresh(ctx); err != nil {
		logger.Warn("sla policy refresh failed; using defaults", zap.Error(err))
	}
	app.pool.Start(ctx)
	result, err := app.monitor.Sweep(ctx)
	if err != nil {
		return err
	}
	logger.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("fired", result.Fired),
		zap.Int("conflicts", result.Conflicts),
		zap.Bool("locked", result.Locked),
	)
	return nil
}
