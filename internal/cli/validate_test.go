package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidDefinitions(t *testing.T) {
	defsDir := writeDefs(t, validDefs)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defsDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All definitions valid")
}

func TestValidateValidDefinitionsJSON(t *testing.T) {
	defsDir := writeDefs(t, validDefs)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defsDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateUnknownKeywordOnly(t *testing.T) {
	defsDir := writeDefs(t, `package defs

signature: fetch: {
	params: ["url", {name: "timeout", default: 30}]
	keyword_only: ["retries"]
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defsDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "E105")
	assert.Contains(t, buf.String(), "retries")
}

func TestValidateCompileErrorBecomesValidationError(t *testing.T) {
	defsDir := writeDefs(t, `package defs

signature: scale: {
	params: [{name: "factor", default: 2.5}]
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defsDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "float defaults are forbidden")

	data, jsonErr := json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "E100", result.Errors[0].Code)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	defsDir := writeDefs(t, `package defs

signature: a: {
	params: ["x"]
	keyword_only: ["nope"]
}
signature: b: {
	params: ["y", {name: "z", default: 1}]
	keyword_only: ["z", "z"]
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defsDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, jsonErr := json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))

	var codes []string
	for _, ve := range result.Errors {
		codes = append(codes, ve.Code)
	}
	assert.Contains(t, codes, "E105")
	assert.Contains(t, codes, "E106")
}

func TestValidateMissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
