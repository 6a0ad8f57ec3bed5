package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/compiler"
)

func TestValidateValidSchema(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), schemaDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), schemaDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 10, resp.Data.Tables)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), compiler.ErrCodeNotFound)
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), compiler.ErrCodeNoFiles)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateReportsEveryProblemText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(`
package bad

table: Specimen: {
	id: 1
	relationships: { collection: { target: 99, column: "collectionid" } }
}
`), 0o644))

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrUnknownTarget)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(`
package bad

table: {
	Specimen: {
		id: 1
		fields: { catalogNumber: "text" }
		relationships: { collection: { target: 99, column: "collectionid" } }
	}
	specimen: {
		id: 2
		fields: { name: "text" }
	}
}
`), 0o644))

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Error.Details.Valid)
	require.NotEmpty(t, resp.Error.Details.Errors)
	codes := map[string]bool{}
	for _, e := range resp.Error.Details.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[compiler.ErrDuplicateTable], "codes: %v", codes)
	assert.True(t, codes[compiler.ErrUnknownTarget], "codes: %v", codes)
	assert.Equal(t, resp.Error.Details.Errors[0].Code, resp.Error.Code)
}
