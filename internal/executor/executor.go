package executor

import "context"

//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks github.com/mattjoyce/tfboot/internal/executor Executor

// Operation names a terraform command run against a workspace.
type Operation string

const (
	OpValidate Operation = "validate"
	OpPlan     Operation = "plan"
	OpApply    Operation = "apply"
	OpDestroy  Operation = "destroy"
)

// Outcome is the raw result of one command invocation.
type Outcome struct {
	Stdout     string
	Stderr     string
	Successful bool
}

// Executor runs terraform against a workspace directory. Implementations own
// argument construction and process lifecycle; failures of any kind,
// timeouts included, are reported as an unsuccessful Outcome.
type Executor interface {
	Validate(ctx context.Context, dir string, vars, env map[string]string) Outcome
	Plan(ctx context.Context, dir string, vars, env map[string]string) Outcome
	Apply(ctx context.Context, dir string, vars, env map[string]string) Outcome
	Destroy(ctx context.Context, dir string, vars, env map[string]string) Outcome
}

// Run dispatches op to the matching Executor method.
func Run(ctx context.Context, e Executor, op Operation, dir string, vars, env map[string]string) Outcome {
	switch op {
	case OpValidate:
		return e.Validate(ctx, dir, vars, env)
	case OpPlan:
		return e.Plan(ctx, dir, vars, env)
	case OpApply:
		return e.Apply(ctx, dir, vars, env)
	case OpDestroy:
		return e.Destroy(ctx, dir, vars, env)
	default:
		return Outcome{Stderr: "unsupported operation " + string(op)}
	}
}
