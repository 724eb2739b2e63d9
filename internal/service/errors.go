package service

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/tfboot/internal/executor"
)

var (
	// ErrInvalidRequest is returned when a request is missing required content.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrExecution matches every *ExecutionError.
	ErrExecution = errors.New("terraform execution failed")
)

// ExecutionError reports a failed mutating terraform command. The workspace
// is left in place when this error is returned.
type ExecutionError struct {
	Operation executor.Operation
	Stdout    string
	Stderr    string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("terraform %s failed: %s", e.Operation, e.Stderr)
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
