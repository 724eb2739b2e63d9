package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/tfboot/internal/log"
)

var (
	// ErrSaturated is returned when all workers are busy.
	ErrSaturated = errors.New("async worker pool saturated")
	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("async worker pool closed")
)

// DefaultMaxWorkers bounds concurrent async executions when unset.
const DefaultMaxWorkers = 4

// Task is a unit of detached work.
type Task func(ctx context.Context)

// Pool executes tasks with bounded concurrency.
type Pool struct {
	group  *errgroup.Group
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a pool running at most maxWorkers tasks at once.
func New(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)
	return &Pool{
		group:  g,
		logger: log.WithComponent("dispatch"),
	}
}

// Submit starts task on a free worker. ctx supplies values only; its
// cancellation does not propagate to the task.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	detached := context.WithoutCancel(ctx)
	started := p.group.TryGo(func() error {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("async task panicked", "task", name, "panic", r)
			}
		}()
		task(detached)
		return nil
	})
	if !started {
		p.logger.Warn("async task rejected", "task", name)
		return ErrSaturated
	}
	p.logger.Debug("async task started", "task", name)
	return nil
}

// Close stops the pool from accepting new tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait closes the pool and blocks until running tasks finish or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	p.Close()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
