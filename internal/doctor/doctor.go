// Package doctor checks tfboot configuration and its runtime environment.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/tfboot/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the host.
type Doctor struct {
	cfg      *config.Config
	lookPath func(string) (string, error)
	detectFS func(string) (string, error)
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg, lookPath: exec.LookPath, detectFS: detectFilesystemType}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateTerraform(r)
	d.validateWorkspaceRoot(r)
	d.warnNetworkFilesystem(r)
	d.validateAPIConfig(r)
	d.warnUnsignedWebhooks(r)
	d.warnNoSweep(r)
	d.warnNoChecksums(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateTerraform checks that the terraform binary can be found.
func (d *Doctor) validateTerraform(r *Result) {
	bin := d.cfg.Terraform.Binary
	if bin == "" {
		if _, err := d.lookPath("terraform"); err != nil {
			d.addError(r, "terraform", "terraform.binary", "terraform not found on PATH and terraform.binary is not set")
		}
	} else {
		info, err := os.Stat(bin)
		switch {
		case err != nil:
			d.addError(r, "terraform", "terraform.binary", fmt.Sprintf("cannot stat %s: %v", bin, err))
		case info.IsDir() || info.Mode().Perm()&0o111 == 0:
			d.addError(r, "terraform", "terraform.binary", fmt.Sprintf("%s is not an executable file", bin))
		}
	}

	if d.cfg.Terraform.CommandTimeout == 0 {
		d.addWarning(r, "terraform", "terraform.command_timeout", "no command timeout; a hung terraform run holds its worker forever")
	}
}

// validateWorkspaceRoot checks the root is a writable directory, or can become one.
func (d *Doctor) validateWorkspaceRoot(r *Result) {
	root := d.cfg.Workspace.Root
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		d.addWarning(r, "workspace", "workspace.root", fmt.Sprintf("%s does not exist and will be created on first use", root))
		return
	}
	if err != nil {
		d.addError(r, "workspace", "workspace.root", fmt.Sprintf("cannot stat %s: %v", root, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "workspace", "workspace.root", fmt.Sprintf("%s is not a directory", root))
		return
	}

	probe, err := os.CreateTemp(root, ".tfboot-doctor-*")
	if err != nil {
		d.addError(r, "workspace", "workspace.root", fmt.Sprintf("%s is not writable: %v", root, err))
		return
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
}

// warnNetworkFilesystem flags workspace and lock paths on network mounts,
// where flock and terraform's local state locking are unreliable.
func (d *Doctor) warnNetworkFilesystem(r *Result) {
	paths := []struct{ field, path string }{
		{"workspace.root", d.cfg.Workspace.Root},
		{"service.lock_path", d.cfg.LockPath()},
	}
	for _, p := range paths {
		fsType, err := filesystemOf(p.path, d.detectFS)
		if err != nil || !isNetworkFilesystem(fsType) {
			continue
		}
		d.addWarning(r, "workspace", p.field,
			fmt.Sprintf("%s is on network filesystem %q; file locking may not work, use local disk", p.path, fsType))
	}
}

// validateAPIConfig checks listener and authentication settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if d.cfg.API.APIKey != "" {
		return
	}
	host, _, err := net.SplitHostPort(d.cfg.API.Listen)
	if err != nil {
		d.addError(r, "api", "api.listen", fmt.Sprintf("invalid listen address %q: %v", d.cfg.API.Listen, err))
		return
	}
	if isLoopback(host) {
		d.addWarning(r, "api", "api.api_key", "no API key configured; terraform routes are unauthenticated")
		return
	}
	d.addError(r, "api", "api.api_key", fmt.Sprintf("no API key configured while listening on non-loopback address %q", d.cfg.API.Listen))
}

func (d *Doctor) warnUnsignedWebhooks(r *Result) {
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "webhook", "webhook.secret", "async callbacks will be sent unsigned")
	}
}

func (d *Doctor) warnNoSweep(r *Result) {
	if d.cfg.Workspace.Retention == 0 {
		d.addWarning(r, "workspace", "workspace.retention",
			"sweep disabled; workspaces kept after failed apply/destroy accumulate until removed by hand")
	}
}

func (d *Doctor) warnNoChecksums(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	if _, err := config.LoadChecksums(filepath.Dir(d.cfg.SourcePath)); errors.Is(err, config.ErrNoChecksums) {
		d.addWarning(r, "integrity", config.ChecksumFile,
			"no .checksums manifest; run 'tfboot config lock' to enable integrity verification")
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
