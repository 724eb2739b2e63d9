package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mattjoyce/tfboot/internal/executor"
	"github.com/mattjoyce/tfboot/internal/log"
	"github.com/mattjoyce/tfboot/internal/result"
	"github.com/mattjoyce/tfboot/internal/telemetry"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// Option configures a DirectoryService.
type Option func(*DirectoryService)

// WithMetrics records executions and workspace deletions on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *DirectoryService) { s.metrics = m }
}

// WithTracer wraps every terraform command in a span from t.
func WithTracer(t trace.Tracer) Option {
	return func(s *DirectoryService) { s.tracer = t }
}

// DirectoryService runs terraform against workspaces that already exist.
type DirectoryService struct {
	workspaces workspace.Manager
	executor   executor.Executor
	assembler  *result.Assembler
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(workspaces workspace.Manager, exec executor.Executor, opts ...Option) *DirectoryService {
	s := &DirectoryService{
		workspaces: workspaces,
		executor:   exec,
		assembler:  result.NewAssembler(workspaces),
		tracer:     otel.Tracer("github.com/mattjoyce/tfboot/internal/service"),
		logger:     log.WithComponent("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs terraform validate in the workspace named id. The workspace is
// neither harvested nor deleted.
func (s *DirectoryService) Validate(ctx context.Context, id string) (*result.ValidationResult, error) {
	ws, err := s.workspaces.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validateIn(ctx, ws)
}

// Deploy runs plan (when req.IsPlanOnly) or apply in the workspace named id.
func (s *DirectoryService) Deploy(ctx context.Context, req DeployRequest, id string) (*result.ExecutionResult, error) {
	ws, err := s.workspaces.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deployIn(ctx, req, ws)
}

// Destroy runs terraform destroy in the workspace named id.
func (s *DirectoryService) Destroy(ctx context.Context, req DestroyRequest, id string) (*result.ExecutionResult, error) {
	ws, err := s.workspaces.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.destroyIn(ctx, req, ws)
}

func (s *DirectoryService) validateIn(ctx context.Context, ws workspace.Workspace) (*result.ValidationResult, error) {
	out := s.execute(ctx, executor.OpValidate, ws, nil, nil)
	if !out.Successful && strings.TrimSpace(out.Stdout) == "" {
		return nil, &ExecutionError{Operation: executor.OpValidate, Stdout: out.Stdout, Stderr: out.Stderr}
	}
	return result.DecodeValidation(out.Stdout)
}

func (s *DirectoryService) deployIn(ctx context.Context, req DeployRequest, ws workspace.Workspace) (*result.ExecutionResult, error) {
	op := executor.OpApply
	if req.IsPlanOnly {
		op = executor.OpPlan
	}

	out := s.execute(ctx, op, ws, req.Variables, req.EnvVariables)
	if !out.Successful && op == executor.OpApply {
		return nil, s.abort(op, ws, out)
	}
	return s.harvest(ws, out)
}

func (s *DirectoryService) destroyIn(ctx context.Context, req DestroyRequest, ws workspace.Workspace) (*result.ExecutionResult, error) {
	out := s.execute(ctx, executor.OpDestroy, ws, req.Variables, req.EnvVariables)
	if !out.Successful {
		return nil, s.abort(executor.OpDestroy, ws, out)
	}
	return s.harvest(ws, out)
}

// execute runs op detached from ctx cancellation; only the executor's own
// timeout can stop a started command.
func (s *DirectoryService) execute(
	ctx context.Context,
	op executor.Operation,
	ws workspace.Workspace,
	vars, env map[string]string,
) executor.Outcome {
	ctx, span := s.tracer.Start(ctx, "terraform."+string(op),
		trace.WithAttributes(
			attribute.String("workspace.id", ws.ID),
			attribute.Int("terraform.variables", len(vars)),
		),
	)
	defer span.End()

	logger := log.WithWorkspace(s.logger, ws.ID)
	logger.Info("terraform command started", "operation", op)

	start := time.Now()
	out := executor.Run(context.WithoutCancel(ctx), s.executor, op, ws.Dir, vars, env)
	elapsed := time.Since(start)

	s.metrics.ObserveExecution(string(op), out.Successful, elapsed)
	span.SetAttributes(attribute.Bool("terraform.successful", out.Successful))
	if !out.Successful {
		span.SetStatus(codes.Error, "terraform "+string(op)+" failed")
		logger.Warn("terraform command failed", "operation", op, "duration_ms", elapsed.Milliseconds())
	} else {
		logger.Info("terraform command completed", "operation", op, "duration_ms", elapsed.Milliseconds())
	}
	return out
}

func (s *DirectoryService) abort(op executor.Operation, ws workspace.Workspace, out executor.Outcome) error {
	log.WithWorkspace(s.logger, ws.ID).Error("workspace kept for inspection", "operation", op, "dir", ws.Dir)
	return &ExecutionError{Operation: op, Stdout: out.Stdout, Stderr: out.Stderr}
}

// harvest reads artifacts and then deletes the workspace, even when reading fails.
func (s *DirectoryService) harvest(ws workspace.Workspace, out executor.Outcome) (*result.ExecutionResult, error) {
	res, err := s.assembler.Harvest(ws.Dir, out)
	s.workspaces.Delete(ws.Dir)
	s.metrics.WorkspaceDeleted()
	if err != nil {
		return nil, err
	}
	return res, nil
}
