// Package scheduler runs periodic maintenance for the workspace root.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/tfboot/internal/telemetry"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// Cleaner removes stale workspaces.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration, keep ...string) (workspace.CleanupReport, error)
}

// Config controls the sweep cadence.
type Config struct {
	// Retention is the minimum age of a workspace before it is removed.
	Retention time.Duration
	// Interval between sweeps.
	Interval time.Duration
	// Keep lists workspace ids that are never removed.
	Keep []string
}

// Sweeper removes workspaces left behind by failed or interrupted executions.
type Sweeper struct {
	cfg     Config
	cleaner Cleaner
	metrics *telemetry.Metrics
	logger  *slog.Logger
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New creates a Sweeper. metrics may be nil.
func New(cfg Config, cleaner Cleaner, metrics *telemetry.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		cleaner: cleaner,
		metrics: metrics,
		logger:  logger.With("component", "sweeper"),
		stopCh:  make(chan struct{}),
	}
}

// Enabled reports whether the configuration asks for sweeping at all.
func (s *Sweeper) Enabled() bool {
	return s.cfg.Retention > 0 && s.cfg.Interval > 0
}

// Start begins the sweep loop in the background. It is a no-op when disabled.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("workspace sweep disabled")
		return
	}
	s.logger.Info("starting workspace sweep", "retention", s.cfg.Retention, "interval", s.cfg.Interval)

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	// Initial sweep immediately
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs a single cleanup pass and returns the number of removed workspaces.
func (s *Sweeper) Sweep(ctx context.Context) int {
	report, err := s.cleaner.Cleanup(ctx, s.cfg.Retention, s.cfg.Keep...)
	s.metrics.WorkspacesSwept(report.DeletedDirs)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("workspace sweep failed", "deleted", report.DeletedDirs, "error", err)
		}
		return report.DeletedDirs
	}
	if report.DeletedDirs > 0 {
		s.logger.Info("workspace sweep removed stale workspaces", "deleted", report.DeletedDirs)
	} else {
		s.logger.Debug("workspace sweep found nothing to remove")
	}
	return report.DeletedDirs
}
