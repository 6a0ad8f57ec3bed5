package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/queryerr"
)

func TestCompile_Text(t *testing.T) {
	query := writeFile(t, "query.yaml", prepTypeQuery)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), schemaDir, query, "--fields")
	require.NoError(t, err)
	assert.Contains(t, out, "-- fingerprint ")
	assert.Contains(t, out, "SELECT")
	assert.Contains(t, out, "COUNT(DISTINCT")
	assert.Contains(t, out, "mummified")
	assert.Contains(t, out, "preparations -> Preparation")
}

func TestCompile_PostgresDialect(t *testing.T) {
	query := writeFile(t, "query.yaml", prepTypeQuery)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), schemaDir, query, "--dialect", "pgx")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   engine.Compiled `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Data.SQL, "$1")
	assert.NotContains(t, resp.Data.SQL, "?")
	assert.Len(t, resp.Data.Fields, 2)
	assert.NotEmpty(t, resp.Data.Fingerprint)
}

func TestCompile_FingerprintIgnoresPaging(t *testing.T) {
	first := writeFile(t, "first.yaml", prepTypeQuery)
	second := writeFile(t, "second.yaml", prepTypeQuery+"lastId: 3\npageSize: 5\n")

	fingerprint := func(path string) string {
		out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), schemaDir, path)
		require.NoError(t, err)
		var resp struct {
			Data engine.Compiled `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Fingerprint
	}
	assert.Equal(t, fingerprint(first), fingerprint(second))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		exitCode int
		code     string
	}{
		{
			name:     "unscoped",
			query:    "rootTableId: 1\nfields: []\n",
			exitCode: ExitFailure,
			code:     string(queryerr.ErrCodeUnscopedQuery),
		},
		{
			name:     "root mismatch",
			query:    "rootTableId: 1\nscope: 4\nfields:\n  - stringId: 2.locality.localityName\n    operatorCode: 1\n",
			exitCode: ExitFailure,
			code:     string(queryerr.ErrCodeRootMismatch),
		},
		{
			name:     "unreadable query",
			query:    "rootTableId: [\n",
			exitCode: ExitCommandError,
			code:     "E001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := writeFile(t, "query.yaml", tt.query)
			out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), schemaDir, query)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestCompile_UnknownDialect(t *testing.T) {
	query := writeFile(t, "query.yaml", prepTypeQuery)
	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), schemaDir, query, "--dialect", "oracle")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
