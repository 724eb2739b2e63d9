package workspace

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCreate is returned when a workspace directory cannot be created.
	ErrCreate = errors.New("workspace creation failed")

	// ErrWrite is returned when a file cannot be written into a workspace.
	ErrWrite = errors.New("workspace write failed")

	// ErrNotFound is returned when an existing workspace was expected but is missing.
	ErrNotFound = errors.New("workspace not found")
)

// Workspace describes one execution's ephemeral directory.
//
// The id is the only handle callers exchange; Dir is derived from the
// configured root so the root can move without callers noticing.
type Workspace struct {
	ID  string
	Dir string
}

// CleanupReport summarizes a cleanup run.
type CleanupReport struct {
	DeletedDirs int
}

// Manager governs the lifecycle of execution workspaces.
type Manager interface {
	// Create ensures the workspace directory for id exists.
	Create(ctx context.Context, id string) (Workspace, error)

	// Open resolves an existing workspace for id.
	Open(ctx context.Context, id string) (Workspace, error)

	// WriteFile creates or overwrites name inside dir.
	WriteFile(ctx context.Context, dir, name, content string) error

	// Delete removes dir and everything below it. Failures are logged, not returned.
	Delete(dir string)

	// ListAuxiliaryFiles reads regular files directly under dir whose suffix
	// is not in excludedSuffixes.
	ListAuxiliaryFiles(dir string, excludedSuffixes []string) map[string]string

	// Cleanup removes workspaces older than olderThan, skipping ids in keep.
	Cleanup(ctx context.Context, olderThan time.Duration, keep ...string) (CleanupReport, error)
}
