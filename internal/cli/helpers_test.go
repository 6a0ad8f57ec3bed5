package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/compiler"
	"github.com/specify/storedq/internal/store"
	"github.com/specify/storedq/internal/testutil"
)

var schemaDir = filepath.Join("..", "..", "testdata", "schema", "specify")

// prepTypeQuery finds fish specimens with a mummified preparation.
const prepTypeQuery = `rootTable: CollectionObject
scope: 4
fields:
  - stringId: 1.collectionobject.catalogNumber
    operatorCode: 1
    isDisplay: true
    id: 10
  - stringId: 1,63-preparations,65.preptype.name
    operatorCode: 1
    startValue: mummified
    id: 11
`

// writeFile writes content to name under a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seededDB creates a sqlite file holding the fixture rows.
func seededDB(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "storedq.db")
	reg, err := compiler.LoadRegistry(schemaDir)
	require.NoError(t, err)

	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, testutil.Seed(ctx, st, reg, testutil.FixtureRows()))
	require.NoError(t, st.Close())
	return dsn
}

// execute runs cmd with args, returning stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
