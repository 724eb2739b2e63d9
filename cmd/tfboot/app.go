package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mattjoyce/tfboot/internal/config"
	"github.com/mattjoyce/tfboot/internal/dispatch"
	"github.com/mattjoyce/tfboot/internal/executor"
	"github.com/mattjoyce/tfboot/internal/log"
	"github.com/mattjoyce/tfboot/internal/service"
	"github.com/mattjoyce/tfboot/internal/telemetry"
	"github.com/mattjoyce/tfboot/internal/webhook"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// app holds the wired components shared by serve and health.
type app struct {
	cfg        *config.Config
	workspaces workspace.Manager
	metrics    *telemetry.Metrics
	tracer     *telemetry.Tracer
	pool       *dispatch.Pool
	directory  *service.DirectoryService
	scripts    *service.ScriptService
	health     *service.HealthProbe
	logger     *slog.Logger
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := log.WithComponent("main")

	workspaces, err := workspace.NewFSManager(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workspace manager: %w", err)
	}

	metrics := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:   cfg.Telemetry.Metrics.Enabled,
		Namespace: cfg.Telemetry.Metrics.Namespace,
	})

	tracer, err := telemetry.NewTracer(ctx, telemetry.TracingConfig{
		Enabled:      cfg.Telemetry.Tracing.Enabled,
		Exporter:     cfg.Telemetry.Tracing.Exporter,
		Endpoint:     cfg.Telemetry.Tracing.Endpoint,
		Insecure:     cfg.Telemetry.Tracing.Insecure,
		SamplingRate: cfg.Telemetry.Tracing.SamplingRate,
	}, cfg.Service.Name, currentVersionInfo().Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	tf := executor.NewTerraform(executor.Config{
		Binary:         cfg.Terraform.Binary,
		CommandTimeout: cfg.Terraform.CommandTimeout,
	})

	directory := service.NewDirectoryService(workspaces, tf,
		service.WithMetrics(metrics),
		service.WithTracer(tracer.Tracer()),
	)

	pool := dispatch.New(cfg.Async.MaxWorkers)
	notifier := webhook.NewNotifier(webhook.Config{
		Timeout:         cfg.Webhook.Timeout,
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
	})
	scripts := service.NewScriptService(directory, workspaces, pool, notifier, metrics)

	healthID := cfg.Health.WorkspaceID
	if healthID == "" {
		healthID = uuid.NewString()
	}
	health := service.NewHealthProbe(directory, workspaces, healthID)

	logger.Debug("components initialized",
		"workspace_root", cfg.Workspace.Root,
		"max_workers", cfg.Async.MaxWorkers,
		"health_workspace", healthID,
		"metrics", metrics.Enabled(),
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)

	return &app{
		cfg:        cfg,
		workspaces: workspaces,
		metrics:    metrics,
		tracer:     tracer,
		pool:       pool,
		directory:  directory,
		scripts:    scripts,
		health:     health,
		logger:     logger,
	}, nil
}

// shutdown drains background executions and flushes spans.
func (a *app) shutdown(ctx context.Context) {
	if err := a.pool.Wait(ctx); err != nil {
		a.logger.Warn("background executions still running at shutdown", "error", err)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}
