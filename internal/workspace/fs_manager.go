package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mattjoyce/tfboot/internal/log"
)

// fsWorkspaceManager manages per-request workspace directories on local disk.
type fsWorkspaceManager struct {
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

var _ Manager = (*fsWorkspaceManager)(nil)

// NewFSManager creates a filesystem-backed workspace manager rooted at baseDir.
func NewFSManager(baseDir string) (*fsWorkspaceManager, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("workspace base directory is empty")
	}

	abs, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return nil, fmt.Errorf("resolve workspace base directory: %w", err)
	}

	return &fsWorkspaceManager{
		baseDir: abs,
		now:     time.Now,
		logger:  log.WithComponent("workspace"),
	}, nil
}

// Root returns the absolute base directory.
func (m *fsWorkspaceManager) Root() string {
	return m.baseDir
}

// Create ensures the workspace directory for id exists. Creating an existing
// workspace is not an error.
func (m *fsWorkspaceManager) Create(ctx context.Context, id string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}

	path, err := m.workspacePath(id)
	if err != nil {
		return Workspace{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("%w: create workspace %q: %w", ErrCreate, id, err)
	}

	m.logger.Debug("workspace created", "workspace_id", id, "dir", path)
	return Workspace{ID: id, Dir: path}, nil
}

// Open returns metadata for an existing workspace directory.
func (m *fsWorkspaceManager) Open(ctx context.Context, id string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}

	path, err := m.workspacePath(id)
	if err != nil {
		return Workspace{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Workspace{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("open workspace %q: %w", id, err)
	}
	if !info.IsDir() {
		return Workspace{}, fmt.Errorf("%w: workspace path for %q is not a directory", ErrNotFound, id)
	}

	return Workspace{ID: id, Dir: path}, nil
}

// WriteFile creates or truncates name inside dir and writes content to it.
func (m *fsWorkspaceManager) WriteFile(ctx context.Context, dir, name, content string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %q: %w", ErrWrite, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %q: %w", ErrWrite, path, cerr)
		}
	}()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("%w: write %q: %w", ErrWrite, path, err)
	}

	m.logger.Debug("workspace file written", "file", path, "bytes", len(content))
	return nil
}

// Delete removes dir deepest entries first. Individual failures are logged
// and skipped so cleanup never masks the caller's result.
func (m *fsWorkspaceManager) Delete(dir string) {
	if !m.within(dir) {
		m.logger.Warn("refusing to delete path outside workspace root", "dir", dir, "root", m.baseDir)
		return
	}

	var paths []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.logger.Warn("walk workspace entry failed", "path", path, "error", err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		m.logger.Warn("walk workspace failed", "dir", dir, "error", walkErr)
	}

	// WalkDir visits parents before children, so reverse order is deepest first.
	slices.Reverse(paths)
	failed := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			failed++
			m.logger.Warn("remove workspace entry failed", "path", path, "error", err)
		}
	}

	m.logger.Debug("workspace deleted", "dir", dir, "entries", len(paths), "failed", failed)
}

// ListAuxiliaryFiles returns filename -> content for regular files directly
// under dir. Unreadable files are logged and skipped.
func (m *fsWorkspaceManager) ListAuxiliaryFiles(dir string, excludedSuffixes []string) map[string]string {
	files := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		m.logger.Warn("list workspace files failed", "dir", dir, "error", err)
		return files
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if hasExcludedSuffix(name, excludedSuffixes) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			m.logger.Warn("read workspace file failed", "file", name, "error", err)
			continue
		}
		files[name] = string(content)
	}
	return files
}

// Cleanup removes workspace directories older than olderThan based on directory
// modification time.
func (m *fsWorkspaceManager) Cleanup(ctx context.Context, olderThan time.Duration, keep ...string) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	if olderThan <= 0 {
		return CleanupReport{}, fmt.Errorf("olderThan must be positive")
	}

	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return CleanupReport{}, nil
	}
	if err != nil {
		return CleanupReport{}, fmt.Errorf("read workspace base directory: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	report := CleanupReport{}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.IsDir() || slices.Contains(keep, entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return report, fmt.Errorf("read workspace entry info %q: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(m.baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return report, fmt.Errorf("remove workspace %q: %w", entry.Name(), err)
		}
		report.DeletedDirs++
	}

	return report, nil
}

func (m *fsWorkspaceManager) workspacePath(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(m.baseDir, id), nil
}

func (m *fsWorkspaceManager) within(dir string) bool {
	rel, err := filepath.Rel(m.baseDir, filepath.Clean(dir))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hasExcludedSuffix reports whether name ends with one of suffixes. Names
// without an extension are never excluded.
func hasExcludedSuffix(name string, suffixes []string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	return slices.Contains(suffixes, ext)
}

func validateID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return fmt.Errorf("workspace id is empty")
	}
	if trimmed != id || trimmed == "." || trimmed == ".." {
		return fmt.Errorf("workspace id %q is invalid", id)
	}
	if strings.ContainsAny(trimmed, `/\`) {
		return fmt.Errorf("workspace id %q must not contain path separators", id)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid workspace file name %q", name)
	}
	return nil
}
