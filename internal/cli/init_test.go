package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/store"
)

func TestInit_CreatesTables(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "init.db")

	out, _, err := execute(NewInitCommand(&RootOptions{Format: "text", DSN: dsn}), schemaDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created 10 table(s)")

	st, err := store.Open(context.Background(), store.DriverSQLite, dsn)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.QueryCount(context.Background(), `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'CollectionObject'`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A second init leaves existing tables alone.
	_, _, err = execute(NewInitCommand(&RootOptions{Format: "text", DSN: dsn}), schemaDir)
	require.NoError(t, err)
}

func TestInit_DDLOnly(t *testing.T) {
	out, _, err := execute(NewInitCommand(&RootOptions{Format: "text", DSN: ":memory:"}), schemaDir, "--ddl")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "CollectionObject"`)
	assert.Contains(t, out, `"collectionobjectid" INTEGER PRIMARY KEY`)
	assert.NotContains(t, out, "Created")
}

func TestInit_BadDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "dir", "x.db")
	_, _, err := execute(NewInitCommand(&RootOptions{Format: "text", DSN: dsn}), schemaDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
