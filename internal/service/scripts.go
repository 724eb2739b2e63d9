package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mattjoyce/tfboot/internal/dispatch"
	"github.com/mattjoyce/tfboot/internal/log"
	"github.com/mattjoyce/tfboot/internal/result"
	"github.com/mattjoyce/tfboot/internal/telemetry"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// Submitter runs detached work.
type Submitter interface {
	Submit(ctx context.Context, name string, task dispatch.Task) error
}

// Notifier delivers a payload to a callback URL once.
type Notifier interface {
	Deliver(ctx context.Context, url string, payload any) error
}

// ScriptService builds workspaces from inline scripts and delegates execution
// to a DirectoryService.
type ScriptService struct {
	directory  *DirectoryService
	workspaces workspace.Manager
	pool       Submitter
	notifier   Notifier
	metrics    *telemetry.Metrics
	newID      func() string
	logger     *slog.Logger
}

// NewScriptService creates a ScriptService. metrics may be nil.
func NewScriptService(
	directory *DirectoryService,
	workspaces workspace.Manager,
	pool Submitter,
	notifier Notifier,
	metrics *telemetry.Metrics,
) *ScriptService {
	return &ScriptService{
		directory:  directory,
		workspaces: workspaces,
		pool:       pool,
		notifier:   notifier,
		metrics:    metrics,
		newID:      uuid.NewString,
		logger:     log.WithComponent("scripts"),
	}
}

// DeployWithScripts writes req.Scripts into a new workspace and deploys it.
func (s *ScriptService) DeployWithScripts(ctx context.Context, req ScriptDeployRequest) (*result.ExecutionResult, error) {
	if err := checkScripts(req.Scripts); err != nil {
		return nil, err
	}
	ws, err := s.materialize(ctx, req.Scripts, nil)
	if err != nil {
		return nil, err
	}
	return s.directory.deployIn(ctx, req.DeployRequest, ws)
}

// DestroyWithScripts writes req.Scripts and req.TfState into a new workspace
// and destroys it.
func (s *ScriptService) DestroyWithScripts(ctx context.Context, req ScriptDestroyRequest) (*result.ExecutionResult, error) {
	if err := checkDestroy(req); err != nil {
		return nil, err
	}
	ws, err := s.materialize(ctx, req.Scripts, &req.TfState)
	if err != nil {
		return nil, err
	}
	return s.directory.destroyIn(ctx, req.DestroyRequest, ws)
}

// AsyncDeployWithScripts starts DeployWithScripts on the worker pool and
// returns the request id echoed in the callback.
func (s *ScriptService) AsyncDeployWithScripts(ctx context.Context, req AsyncScriptDeployRequest) (string, error) {
	if err := checkScripts(req.Scripts); err != nil {
		return "", err
	}
	return s.submit(ctx, "deploy", req.RequestID, req.WebhookConfig.URL, func(ctx context.Context) (*result.ExecutionResult, error) {
		return s.DeployWithScripts(ctx, req.ScriptDeployRequest)
	})
}

// AsyncDestroyWithScripts starts DestroyWithScripts on the worker pool and
// returns the request id echoed in the callback.
func (s *ScriptService) AsyncDestroyWithScripts(ctx context.Context, req AsyncScriptDestroyRequest) (string, error) {
	if err := checkDestroy(req.ScriptDestroyRequest); err != nil {
		return "", err
	}
	return s.submit(ctx, "destroy", req.RequestID, req.WebhookConfig.URL, func(ctx context.Context) (*result.ExecutionResult, error) {
		return s.DestroyWithScripts(ctx, req.ScriptDestroyRequest)
	})
}

func (s *ScriptService) submit(
	ctx context.Context,
	kind, requestID, url string,
	run func(context.Context) (*result.ExecutionResult, error),
) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", invalidRequest("webhook url is required")
	}
	if requestID == "" {
		requestID = s.newID()
	}

	logger := log.WithRequest(s.logger, requestID)
	err := s.pool.Submit(ctx, kind+" "+requestID, func(ctx context.Context) {
		s.metrics.AsyncStarted()
		defer s.metrics.AsyncFinished()

		res, err := run(ctx)
		if err != nil {
			logger.Error("async execution failed", "kind", kind, "error", err)
			res = failureResult(err)
		} else {
			logger.Info("async execution completed", "kind", kind, "successful", res.IsCommandSuccessful)
		}
		res.RequestID = requestID

		if err := s.notifier.Deliver(ctx, url, res); err != nil {
			s.metrics.WebhookDelivered(false)
			logger.Error("async result delivery failed", "url", url, "error", err)
			return
		}
		s.metrics.WebhookDelivered(true)
	})
	if err != nil {
		return "", err
	}
	logger.Info("async execution accepted", "kind", kind)
	return requestID, nil
}

// materialize creates a workspace and writes scripts and optional state into
// it. A write failure leaves the partial workspace for the sweep.
func (s *ScriptService) materialize(ctx context.Context, scripts []string, state *string) (workspace.Workspace, error) {
	ws, err := s.workspaces.Create(ctx, s.newID())
	if err != nil {
		return workspace.Workspace{}, err
	}
	s.metrics.WorkspaceCreated()

	logger := log.WithWorkspace(s.logger, ws.ID)
	for _, script := range scripts {
		name := uuid.NewString() + result.ScriptSuffix
		if err := s.workspaces.WriteFile(ctx, ws.Dir, name, script); err != nil {
			return workspace.Workspace{}, err
		}
		logger.Debug("script written", "file", name)
	}

	if state != nil {
		if err := s.workspaces.WriteFile(ctx, ws.Dir, result.StateFileName, *state); err != nil {
			return workspace.Workspace{}, err
		}
		logger.Debug("state written", "file", result.StateFileName)
	}

	logger.Info("workspace materialized", "scripts", len(scripts), "with_state", state != nil)
	return ws, nil
}

func checkScripts(scripts []string) error {
	if len(scripts) == 0 {
		return invalidRequest("terraform scripts are required")
	}
	return nil
}

func checkDestroy(req ScriptDestroyRequest) error {
	if err := checkScripts(req.Scripts); err != nil {
		return err
	}
	if strings.TrimSpace(req.TfState) == "" {
		return invalidRequest("terraform state is required")
	}
	return nil
}

// failureResult is the callback body for an execution that returned an error.
func failureResult(err error) *result.ExecutionResult {
	res := &result.ExecutionResult{
		CommandStdError:         err.Error(),
		ImportantFileContentMap: map[string]string{},
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		res.CommandStdOutput = execErr.Stdout
		res.CommandStdError = execErr.Stderr
	}
	return res
}
