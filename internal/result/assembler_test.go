package result

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/tfboot/internal/executor"
)

type stubLister struct {
	files    map[string]string
	gotDir   string
	excluded []string
}

func (s *stubLister) ListAuxiliaryFiles(dir string, excluded []string) map[string]string {
	s.gotDir = dir
	s.excluded = excluded
	return s.files
}

func TestReadStateAbsent(t *testing.T) {
	a := NewAssembler(&stubLister{})

	state, err := a.ReadState(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestReadStateRoundTripIsByteExact(t *testing.T) {
	dir := t.TempDir()
	content := "{\n  \"version\": 4,\n  \"serial\": 7,\r\n  \"outputs\": {\"x\": {\"value\": \"ü\"}}\n}\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte(content), 0o644))

	state, err := NewAssembler(&stubLister{}).ReadState(dir)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, content, *state)
}

func TestReadStateUnreadable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, StateFileName), 0o755))

	_, err := NewAssembler(&stubLister{}).ReadState(dir)
	assert.True(t, errors.Is(err, ErrStateRead), "err = %v", err)
}

func TestHarvest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte(`{"serial":1}`), 0o644))

	lister := &stubLister{files: map[string]string{"plan.log": "ok"}}
	res, err := NewAssembler(lister).Harvest(dir, executor.Outcome{Stdout: "out", Stderr: "err", Successful: true})
	require.NoError(t, err)

	assert.Equal(t, "out", res.CommandStdOutput)
	assert.Equal(t, "err", res.CommandStdError)
	assert.True(t, res.IsCommandSuccessful)
	require.NotNil(t, res.TerraformState)
	assert.Equal(t, `{"serial":1}`, *res.TerraformState)
	assert.Equal(t, map[string]string{"plan.log": "ok"}, res.ImportantFileContentMap)
	assert.Equal(t, dir, lister.gotDir)
	assert.ElementsMatch(t, []string{".tf", ".tfstate", ".hcl"}, lister.excluded)
}

func TestHarvestPropagatesStateReadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, StateFileName), 0o755))

	_, err := NewAssembler(&stubLister{}).Harvest(dir, executor.Outcome{Successful: true})
	assert.ErrorIs(t, err, ErrStateRead)
}

func TestExecutionResultJSONKeepsNullState(t *testing.T) {
	b, err := json.Marshal(ExecutionResult{ImportantFileContentMap: map[string]string{}})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	v, ok := out["terraformState"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, out, "requestId")
}

func TestDecodeValidation(t *testing.T) {
	stdout := `{
  "format_version": "1.0",
  "valid": false,
  "error_count": 1,
  "warning_count": 0,
  "diagnostics": [
    {"severity": "error", "summary": "Unsupported argument", "detail": "An argument named \"foo\" is not expected here."}
  ]
}`
	res, err := DecodeValidation(stdout)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, Diagnostic{
		Severity: "error",
		Summary:  "Unsupported argument",
		Detail:   `An argument named "foo" is not expected here.`,
	}, res.Diagnostics[0])
}

func TestDecodeValidationValid(t *testing.T) {
	res, err := DecodeValidation(`{"format_version":"1.0","valid":true,"error_count":0,"warning_count":0,"diagnostics":[]}`)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Diagnostics)
}

func TestDecodeValidationMalformed(t *testing.T) {
	for _, stdout := range []string{"", "   ", "{valid: true", "Success! The configuration is valid.", `{"valid": true} trailing`} {
		_, err := DecodeValidation(stdout)
		assert.ErrorIs(t, err, ErrDecode, "stdout %q", stdout)
	}
}
