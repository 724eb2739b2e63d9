package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tfjson "github.com/hashicorp/terraform-json"

	"github.com/mattjoyce/tfboot/internal/executor"
	"github.com/mattjoyce/tfboot/internal/log"
)

const (
	// StateFileName is the local state file terraform reads and writes.
	StateFileName = "terraform.tfstate"

	// ScriptSuffix marks a configuration unit.
	ScriptSuffix = ".tf"
)

// ExcludedSuffixes lists file suffixes never returned as auxiliary files:
// configuration, state and terraform's internal HCL files.
var ExcludedSuffixes = []string{ScriptSuffix, ".tfstate", ".hcl"}

var (
	// ErrDecode means terraform's structured output could not be parsed.
	ErrDecode = errors.New("terraform output decoding failed")

	// ErrStateRead means the state file exists but could not be read.
	ErrStateRead = errors.New("terraform state read failed")
)

// FileLister enumerates auxiliary workspace files.
type FileLister interface {
	ListAuxiliaryFiles(dir string, excludedSuffixes []string) map[string]string
}

// Assembler reads execution artifacts out of a workspace.
type Assembler struct {
	files  FileLister
	logger *slog.Logger
}

// NewAssembler creates an Assembler that lists auxiliary files through files.
func NewAssembler(files FileLister) *Assembler {
	return &Assembler{
		files:  files,
		logger: log.WithComponent("result"),
	}
}

// ReadState returns the state file content, or nil when no state file exists.
func (a *Assembler) ReadState(dir string) (*string, error) {
	path := filepath.Join(dir, StateFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Info("terraform state file does not exist", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStateRead, path, err)
	}
	state := string(data)
	return &state, nil
}

// Harvest combines the command outcome with the workspace's state and
// auxiliary files.
func (a *Assembler) Harvest(dir string, out executor.Outcome) (*ExecutionResult, error) {
	state, err := a.ReadState(dir)
	if err != nil {
		return nil, err
	}

	return &ExecutionResult{
		CommandStdOutput:        out.Stdout,
		CommandStdError:         out.Stderr,
		IsCommandSuccessful:     out.Successful,
		TerraformState:          state,
		ImportantFileContentMap: a.files.ListAuxiliaryFiles(dir, ExcludedSuffixes),
	}, nil
}

// DecodeValidation parses the JSON document printed by `terraform validate -json`.
func DecodeValidation(stdout string) (*ValidationResult, error) {
	if strings.TrimSpace(stdout) == "" {
		return nil, fmt.Errorf("%w: validate produced no output", ErrDecode)
	}

	var out tfjson.ValidateOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	res := &ValidationResult{
		Valid:       out.Valid,
		Diagnostics: make([]Diagnostic, 0, len(out.Diagnostics)),
	}
	for _, d := range out.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: string(d.Severity),
			Summary:  d.Summary,
			Detail:   d.Detail,
		})
	}
	return res, nil
}
