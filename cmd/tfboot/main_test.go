package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/tfboot/internal/config"
	"github.com/mattjoyce/tfboot/internal/lock"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setVersionMetadataForTest(t *testing.T, v, commit, built string) {
	t.Helper()

	origVersion := version
	origCommit := gitCommit
	origBuildDate := buildDate

	version = v
	gitCommit = commit
	buildDate = built

	t.Cleanup(func() {
		version = origVersion
		gitCommit = origCommit
		buildDate = origBuildDate
	})
}

// writeConfigForTest creates a config that passes every doctor check.
func writeConfigForTest(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	bin := filepath.Join(dir, "terraform")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake terraform: %v", err)
	}
	root := filepath.Join(dir, "workspaces")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir workspaces: %v", err)
	}

	body := "service:\n" +
		"  log_level: debug\n" +
		"workspace:\n" +
		"  root: " + root + "\n" +
		"terraform:\n" +
		"  binary: " + bin + "\n" +
		"api:\n" +
		"  listen: 127.0.0.1:19090\n" +
		"  api_key: test-key\n" +
		"webhook:\n" +
		"  secret: s3cret\n"

	path := filepath.Join(dir, "tfboot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionText(t *testing.T) {
	setVersionMetadataForTest(t, "1.2.3", "abc1234567890", "2026-02-12T11:30:00Z")

	stdout, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(stdout, "tfboot 1.2.3") {
		t.Fatalf("stdout missing semantic version: %s", stdout)
	}
	if !strings.Contains(stdout, "commit: abc123456789") {
		t.Fatalf("stdout missing short commit: %s", stdout)
	}
	if !strings.Contains(stdout, "built_at: 2026-02-12T11:30:00Z") {
		t.Fatalf("stdout missing build time: %s", stdout)
	}
}

func TestVersionJSONOutputIncludesMetadata(t *testing.T) {
	setVersionMetadataForTest(t, "2.0.0-rc.1", "aabbccddeeff001122334455", "2026-02-12T11:30:00-05:00")

	stdout, err := executeCommand(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json error = %v", err)
	}

	var out versionInfo
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("failed to parse version JSON: %v\noutput=%s", err, stdout)
	}
	if out.Version != "2.0.0-rc.1" {
		t.Fatalf("version = %q, want %q", out.Version, "2.0.0-rc.1")
	}
	if out.Commit != "aabbccddeeff" {
		t.Fatalf("commit = %q, want %q", out.Commit, "aabbccddeeff")
	}
	if out.BuildTime != "2026-02-12T16:30:00Z" {
		t.Fatalf("build_time = %q, want %q", out.BuildTime, "2026-02-12T16:30:00Z")
	}
}

func TestConfigCheckStrictRequiresChecksums(t *testing.T) {
	path := writeConfigForTest(t)

	stdout, err := executeCommand(t, "--config", path, "--env-file", "", "config", "check", "--strict")
	if !errors.Is(err, errConfigInvalid) {
		t.Fatalf("config check --strict error = %v, want errConfigInvalid\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "integrity") {
		t.Fatalf("expected integrity warning, got: %s", stdout)
	}

	stdout, err = executeCommand(t, "--config", path, "--env-file", "", "config", "lock")
	if err != nil {
		t.Fatalf("config lock error = %v", err)
	}
	if !strings.Contains(stdout, "tfboot.yaml") {
		t.Fatalf("lock output missing file name: %s", stdout)
	}

	stdout, err = executeCommand(t, "--config", path, "--env-file", "", "config", "check", "--strict", "--json")
	if err != nil {
		t.Fatalf("config check after lock error = %v\n%s", err, stdout)
	}
	var res struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("failed to parse check JSON: %v\noutput=%s", err, stdout)
	}
	if !res.Valid {
		t.Fatalf("expected valid result, got %s", stdout)
	}
}

func TestConfigCheckDetectsTampering(t *testing.T) {
	path := writeConfigForTest(t)
	if _, err := config.Lock(path); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	_, _ = f.WriteString("# edited\n")
	_ = f.Close()

	_, err = executeCommand(t, "--config", path, "--env-file", "", "config", "check")
	if err == nil || !strings.Contains(err.Error(), "config verification failed") {
		t.Fatalf("config check error = %v, want verification failure", err)
	}
}

func TestConfigLockRequiresPath(t *testing.T) {
	t.Setenv("TFBOOT_CONFIG", "")
	if _, err := executeCommand(t, "--env-file", "", "config", "lock"); err == nil {
		t.Fatal("expected error without a config path")
	}
}

func TestEnvFileAppliedBeforeConfig(t *testing.T) {
	path := writeConfigForTest(t)

	const key = "TFBOOT_SERVICE_LOG_FORMAT"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte(key+"=xml\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	_, err := executeCommand(t, "--config", path, "--env-file", envFile, "config", "check")
	if err == nil || !strings.Contains(err.Error(), "log_format") {
		t.Fatalf("config check error = %v, want log_format validation failure", err)
	}
}

func TestRunServeRefusesWhenLocked(t *testing.T) {
	path := writeConfigForTest(t)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	held, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	err = runServe(context.Background(), cfg)
	if !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("runServe() error = %v, want ErrLocked", err)
	}
}

func TestWriteTimeout(t *testing.T) {
	if got := writeTimeout(0); got != 0 {
		t.Fatalf("writeTimeout(0) = %v, want 0", got)
	}
	if got := writeTimeout(30 * time.Minute); got != 31*time.Minute {
		t.Fatalf("writeTimeout(30m) = %v, want 31m", got)
	}
}
