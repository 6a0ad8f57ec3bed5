package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/querysql"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storedq.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 40, cfg.Query.PageSize)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[database]
driver = "pgx"
dsn = "postgres://specify@localhost/specify"

[schema]
dir = "schema"

[query]
page_size = 100

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://specify@localhost/specify", cfg.Database.DSN)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schema"), cfg.Schema.Dir)
	assert.Equal(t, 100, cfg.Query.PageSize)

	d, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, querysql.Postgres, d)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "[query]\npage_size = 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Query.PageSize)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "storedq.db", cfg.Database.DSN, "default paths are not rebased")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_PureGoSQLite(t *testing.T) {
	path := writeConfig(t, "[database]\ndriver = \"sqlite\"\ndsn = \"specify.db\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "specify.db"), cfg.Database.DSN)
	d, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, querysql.SQLite, d)
}

func TestLoad_RelativeSQLitePath(t *testing.T) {
	path := writeConfig(t, "[database]\ndsn = \"data/specify.db\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "specify.db"), cfg.Database.DSN)

	path = writeConfig(t, "[database]\ndsn = \":memory:\"\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown driver", "[database]\ndriver = \"mysql\"\n", "database.driver"},
		{"negative page size", "[query]\npage_size = -1\n", "page_size"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"bad format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"unknown key", "[query]\npagesize = 10\n", "unknown keys query.pagesize"},
		{"not toml", "[database\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
