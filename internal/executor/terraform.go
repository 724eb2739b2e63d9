package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/terraform-exec/tfexec"

	"github.com/mattjoyce/tfboot/internal/log"
)

// Config controls how the terraform binary is invoked.
type Config struct {
	// Binary is the terraform executable. Empty means look it up on PATH.
	Binary string
	// CommandTimeout bounds init plus the operation itself. Zero disables it.
	CommandTimeout time.Duration
}

// Terraform implements Executor on top of terraform-exec.
type Terraform struct {
	cfg      Config
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

var _ Executor = (*Terraform)(nil)

// NewTerraform creates a terraform-backed Executor.
func NewTerraform(cfg Config) *Terraform {
	return &Terraform{
		cfg:      cfg,
		lookPath: exec.LookPath,
		logger:   log.WithComponent("executor"),
	}
}

// Validate runs `terraform init -backend=false` followed by `terraform validate -json`.
// Stdout carries the JSON validation document.
func (t *Terraform) Validate(ctx context.Context, dir string, _, env map[string]string) Outcome {
	return t.run(ctx, OpValidate, dir, env, func(ctx context.Context, tf *tfexec.Terraform) (string, error) {
		if err := tf.Init(ctx, tfexec.Backend(false)); err != nil {
			return "", fmt.Errorf("terraform init: %w", err)
		}
		out, err := tf.Validate(ctx)
		if err != nil {
			return "", fmt.Errorf("terraform validate: %w", err)
		}
		doc, err := json.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("encode validate output: %w", err)
		}
		return string(doc), nil
	})
}

// Plan runs init then plan. A plan with pending changes is a success.
func (t *Terraform) Plan(ctx context.Context, dir string, vars, env map[string]string) Outcome {
	return t.run(ctx, OpPlan, dir, env, func(ctx context.Context, tf *tfexec.Terraform) (string, error) {
		if err := tf.Init(ctx); err != nil {
			return "", fmt.Errorf("terraform init: %w", err)
		}
		opts := make([]tfexec.PlanOption, 0, len(vars))
		for _, a := range assignments(vars) {
			opts = append(opts, tfexec.Var(a))
		}
		if _, err := tf.Plan(ctx, opts...); err != nil {
			return "", fmt.Errorf("terraform plan: %w", err)
		}
		return "", nil
	})
}

// Apply runs init then an auto-approved apply.
func (t *Terraform) Apply(ctx context.Context, dir string, vars, env map[string]string) Outcome {
	return t.run(ctx, OpApply, dir, env, func(ctx context.Context, tf *tfexec.Terraform) (string, error) {
		if err := tf.Init(ctx); err != nil {
			return "", fmt.Errorf("terraform init: %w", err)
		}
		opts := make([]tfexec.ApplyOption, 0, len(vars))
		for _, a := range assignments(vars) {
			opts = append(opts, tfexec.Var(a))
		}
		if err := tf.Apply(ctx, opts...); err != nil {
			return "", fmt.Errorf("terraform apply: %w", err)
		}
		return "", nil
	})
}

// Destroy runs init then an auto-approved destroy.
func (t *Terraform) Destroy(ctx context.Context, dir string, vars, env map[string]string) Outcome {
	return t.run(ctx, OpDestroy, dir, env, func(ctx context.Context, tf *tfexec.Terraform) (string, error) {
		if err := tf.Init(ctx); err != nil {
			return "", fmt.Errorf("terraform init: %w", err)
		}
		opts := make([]tfexec.DestroyOption, 0, len(vars))
		for _, a := range assignments(vars) {
			opts = append(opts, tfexec.Var(a))
		}
		if err := tf.Destroy(ctx, opts...); err != nil {
			return "", fmt.Errorf("terraform destroy: %w", err)
		}
		return "", nil
	})
}

// run prepares a terraform-exec handle for dir and executes body. When body
// returns a non-empty document it replaces the captured stdout.
func (t *Terraform) run(
	ctx context.Context,
	op Operation,
	dir string,
	env map[string]string,
	body func(context.Context, *tfexec.Terraform) (string, error),
) Outcome {
	var stdout, stderr bytes.Buffer
	logger := t.logger.With("operation", string(op), "dir", dir)

	if t.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.CommandTimeout)
		defer cancel()
	}

	bin, err := t.binary()
	if err != nil {
		return failure(&stdout, &stderr, err)
	}

	tf, err := tfexec.NewTerraform(dir, bin)
	if err != nil {
		return failure(&stdout, &stderr, fmt.Errorf("prepare terraform: %w", err))
	}
	tf.SetStdout(&stdout)
	tf.SetStderr(&stderr)

	merged, dropped := mergeEnv(os.Environ(), env)
	if len(dropped) > 0 {
		logger.Warn("ignoring environment variables managed by terraform-exec", "keys", dropped)
	}
	if err := tf.SetEnv(merged); err != nil {
		return failure(&stdout, &stderr, fmt.Errorf("set terraform environment: %w", err))
	}

	logger.Info("running terraform command", "binary", bin, "variables", keys(env), "var_count", len(env))
	start := time.Now()

	doc, err := body(ctx, tf)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w (timed out after %v)", err, t.cfg.CommandTimeout)
		}
		logger.Warn("terraform command failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return failure(&stdout, &stderr, err)
	}

	logger.Info("terraform command completed", "duration_ms", time.Since(start).Milliseconds())
	if doc != "" {
		return Outcome{Stdout: doc, Stderr: stderr.String(), Successful: true}
	}
	return Outcome{Stdout: stdout.String(), Stderr: stderr.String(), Successful: true}
}

func (t *Terraform) binary() (string, error) {
	if t.cfg.Binary != "" {
		return t.cfg.Binary, nil
	}
	bin, err := t.lookPath("terraform")
	if err != nil {
		return "", fmt.Errorf("locate terraform binary: %w", err)
	}
	return bin, nil
}

func failure(stdout, stderr *bytes.Buffer, err error) Outcome {
	msg := stderr.String()
	if !strings.Contains(msg, err.Error()) {
		if msg != "" && !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		msg += err.Error()
	}
	return Outcome{Stdout: stdout.String(), Stderr: msg, Successful: false}
}

// assignments renders vars as sorted "key=value" pairs for -var flags.
func assignments(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for _, k := range keys(vars) {
		out = append(out, k+"="+vars[k])
	}
	return out
}

// mergeEnv overlays extra on top of the process environment and strips the
// keys tfexec.SetEnv rejects, TF_CLI_ARGS* and TF_VAR_* included. Variables
// travel as -var flags instead. dropped reports only caller-supplied keys.
func mergeEnv(base []string, extra map[string]string) (map[string]string, []string) {
	env := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}

	var dropped []string
	for _, k := range tfexec.ProhibitedEnv(env) {
		if _, requested := extra[k]; requested {
			dropped = append(dropped, k)
		}
	}
	slices.Sort(dropped)
	return tfexec.CleanEnv(env), dropped
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
