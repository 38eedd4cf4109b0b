package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	path := writeFile(t, "worldtext.toml", "save_threshold = 64\n[dedupe]\nsigns = true\n")

	res := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, path)
	require.NoError(t, res.exitErr)
	assert.Contains(t, res.out.String(), "✓ "+path+" valid")
}

func TestValidate_VerbosePrintsEffectiveConfig(t *testing.T) {
	path := writeFile(t, "worldtext.yaml", "dedupe:\n  signs: true\n")

	res := execute(t, NewValidateCommand, &RootOptions{Format: "text", Verbose: true}, path)
	require.NoError(t, res.exitErr)
	assert.Contains(t, res.out.String(), `"save_threshold": 256`)
	assert.Contains(t, res.out.String(), `"signs": true`)
}

func TestValidate_JSON(t *testing.T) {
	path := writeFile(t, "worldtext.json", `{"lang": {"indent": 2}}`)

	res := execute(t, NewValidateCommand, &RootOptions{Format: "json"}, path)
	require.NoError(t, res.exitErr)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, path, resp.Data.Source)
	require.NotNil(t, resp.Data.Config)
	assert.Equal(t, 2, resp.Data.Config.Lang.Indent)
}

func TestValidate_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("WORLDTEXT_CONFIG", "")
	res := execute(t, NewValidateCommand, &RootOptions{Format: "text"})
	require.NoError(t, res.exitErr)
	assert.Contains(t, res.out.String(), "✓ defaults valid")
}

func TestValidate_ConfigFlag(t *testing.T) {
	path := writeFile(t, "worldtext.cue", "backup: false\n")
	res := execute(t, NewValidateCommand, &RootOptions{Format: "text", Config: path})
	require.NoError(t, res.exitErr)
	assert.Contains(t, res.out.String(), path)
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeFile(t, "worldtext.yaml", "save_threshold: 0\n")

	res := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, path)
	require.Error(t, res.exitErr)
	assert.Equal(t, ExitFailure, GetExitCode(res.exitErr))
	assert.Contains(t, res.out.String(), "✗ Validation failed")
	assert.Contains(t, res.out.String(), "E005")
}

func TestValidate_SchemaViolationJSON(t *testing.T) {
	path := writeFile(t, "worldtext.yaml", "dedupe:\n  nope: true\n")

	res := execute(t, NewValidateCommand, &RootOptions{Format: "json"}, path)
	require.Error(t, res.exitErr)
	assert.Equal(t, ExitFailure, GetExitCode(res.exitErr))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(res.out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{"not found", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, "E002"},
		{"unsupported format", func(t *testing.T) string { return writeFile(t, "worldtext.ini", "x=1") }, "E003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, tt.path(t))
			require.Error(t, res.exitErr)
			assert.Equal(t, ExitCommandError, GetExitCode(res.exitErr))
			assert.Contains(t, res.out.String(), "Error ["+tt.code+"]")
		})
	}
}
