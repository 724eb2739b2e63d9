package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/tfboot/internal/api"
	"github.com/mattjoyce/tfboot/internal/config"
	"github.com/mattjoyce/tfboot/internal/lock"
	"github.com/mattjoyce/tfboot/internal/log"
	"github.com/mattjoyce/tfboot/internal/scheduler"
)

// drainTimeout bounds how long shutdown waits for background executions.
const drainTimeout = 5 * time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("listen") {
				cfg.API.Listen = listen
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Override api.listen")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := log.WithComponent("main")
	logger.Info("tfboot starting",
		"version", currentVersionInfo().Version,
		"config", cfg.SourcePath,
		"listen", cfg.API.Listen,
		"workspace_root", cfg.Workspace.Root,
	)

	pidLock, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.LockPath(), "error", err)
		return err
	}
	defer func() {
		if err := pidLock.Release(); err != nil {
			logger.Warn("failed to release PID lock", "path", pidLock.Path(), "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	sweeper := scheduler.New(scheduler.Config{
		Retention: cfg.Workspace.Retention,
		Interval:  cfg.Workspace.SweepInterval,
		Keep:      []string{a.health.WorkspaceID()},
	}, a.workspaces, a.metrics, log.Get())
	sweeper.Start(ctx)

	var metricsHandler http.Handler
	if a.metrics.Enabled() {
		metricsHandler = a.metrics.Handler()
	}

	server := api.New(api.Config{
		Listen:       cfg.API.Listen,
		APIKey:       cfg.API.APIKey,
		MaxBodySize:  cfg.API.MaxBodySize,
		WriteTimeout: writeTimeout(cfg.Terraform.CommandTimeout),
	}, a.directory, a.scripts, a.health, metricsHandler, log.WithComponent("api"))

	logger.Info("tfboot running (press Ctrl+C to stop)")
	serveErr := server.Start(ctx)
	if serveErr != nil && errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}
	if serveErr != nil {
		logger.Error("api server failed", "error", serveErr)
	} else {
		logger.Info("received shutdown signal")
	}

	sweeper.Stop()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()
	a.shutdown(drainCtx)

	logger.Info("tfboot stopped")
	return serveErr
}

// writeTimeout keeps synchronous responses alive for the whole terraform run.
func writeTimeout(command time.Duration) time.Duration {
	if command <= 0 {
		return 0
	}
	return command + time.Minute
}
