package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "storedq", cmd.Use)
	assert.Contains(t, cmd.Long, "saved queries")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "resolve", "compile", "init", "run"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"driver", "dsn"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"scope", "page-size", "after", "count"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(NewRootCommand(), "--format", "xml", "validate", schemaDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootOptions_ConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storedq.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
driver = "sqlite3"
dsn = "data.db"

[log]
level = "warn"
`), 0o644))

	opts := &RootOptions{ConfigPath: path, DSN: ":memory:", Verbose: true}
	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)

	again, err := opts.Config()
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestRootOptions_BadDriver(t *testing.T) {
	opts := &RootOptions{Driver: "mysql"}
	_, err := opts.Config()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootOptions_MissingConfigFile(t *testing.T) {
	opts := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}
	_, err := opts.Config()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
