package service

import (
	"context"
	"log/slog"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/singleflight"

	"github.com/mattjoyce/tfboot/internal/log"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// ProbeFileName is the configuration written into the health workspace.
const ProbeFileName = "hello-world.tf"

// HealthStatus is the binary outcome of a probe.
type HealthStatus string

const (
	HealthOK  HealthStatus = "OK"
	HealthNOK HealthStatus = "NOK"
)

// SystemStatus is the health endpoint body.
type SystemStatus struct {
	HealthStatus HealthStatus `json:"healthStatus"`
}

// HealthProbe validates a trivial configuration in a fixed workspace.
type HealthProbe struct {
	directory   *DirectoryService
	workspaces  workspace.Manager
	workspaceID string
	checks      singleflight.Group
	logger      *slog.Logger
}

// NewHealthProbe creates a probe that reuses workspaceID on every check.
func NewHealthProbe(directory *DirectoryService, workspaces workspace.Manager, workspaceID string) *HealthProbe {
	return &HealthProbe{
		directory:   directory,
		workspaces:  workspaces,
		workspaceID: workspaceID,
		logger:      log.WithComponent("health"),
	}
}

// WorkspaceID returns the probe's workspace id.
func (p *HealthProbe) WorkspaceID() string {
	return p.workspaceID
}

// Check writes the probe file and runs validate against it. Any error is
// reported as NOK. Concurrent callers wait for and share a single run.
func (p *HealthProbe) Check(ctx context.Context) SystemStatus {
	v, _, _ := p.checks.Do(p.workspaceID, func() (any, error) {
		return p.check(context.WithoutCancel(ctx)), nil
	})
	return v.(SystemStatus)
}

func (p *HealthProbe) check(ctx context.Context) SystemStatus {
	ws, err := p.workspaces.Create(ctx, p.workspaceID)
	if err != nil {
		p.logger.Error("health workspace unavailable", "error", err)
		return SystemStatus{HealthStatus: HealthNOK}
	}
	if err := p.workspaces.WriteFile(ctx, ws.Dir, ProbeFileName, probeConfig()); err != nil {
		p.logger.Error("health probe file not written", "error", err)
		return SystemStatus{HealthStatus: HealthNOK}
	}

	res, err := p.directory.validateIn(ctx, ws)
	if err != nil {
		p.logger.Error("health validation failed", "error", err)
		return SystemStatus{HealthStatus: HealthNOK}
	}
	if !res.Valid {
		p.logger.Warn("health probe configuration invalid", "diagnostics", len(res.Diagnostics))
		return SystemStatus{HealthStatus: HealthNOK}
	}
	return SystemStatus{HealthStatus: HealthOK}
}

// probeConfig renders `output "hello_world" { value = "Hello, World!" }`.
func probeConfig() string {
	f := hclwrite.NewEmptyFile()
	output := f.Body().AppendNewBlock("output", []string{"hello_world"})
	output.Body().SetAttributeValue("value", cty.StringVal("Hello, World!"))
	return string(hclwrite.Format(f.Bytes()))
}
