// Package config loads storedq settings from a TOML file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/store"
)

// Config is the storedq configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Schema   SchemaConfig   `toml:"schema"`
	Query    QueryConfig    `toml:"query"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig selects the data store.
type DatabaseConfig struct {
	// Driver is "sqlite3", "sqlite" (pure Go) or "pgx".
	Driver string `toml:"driver"`

	// DSN is a file path for sqlite3 or a connection string for pgx.
	DSN string `toml:"dsn"`
}

// SchemaConfig points at the CUE schema description.
type SchemaConfig struct {
	Dir string `toml:"dir"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	// PageSize is the page size used when a request sets none.
	PageSize int `toml:"page_size"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: store.DriverSQLite, DSN: "storedq.db"},
		Schema:   SchemaConfig{Dir: "schema"},
		Query:    QueryConfig{PageSize: engine.DefaultPageSize},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults. Relative schema and sqlite paths are taken relative to the
// file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	if cfg.Schema.Dir != "" && !filepath.IsAbs(cfg.Schema.Dir) && md.IsDefined("schema", "dir") {
		cfg.Schema.Dir = filepath.Join(base, cfg.Schema.Dir)
	}
	if store.IsSQLite(cfg.Database.Driver) && md.IsDefined("database", "dsn") &&
		cfg.Database.DSN != ":memory:" && !filepath.IsAbs(cfg.Database.DSN) && !strings.HasPrefix(cfg.Database.DSN, "file:") {
		cfg.Database.DSN = filepath.Join(base, cfg.Database.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a file may get wrong.
func (c *Config) Validate() error {
	if _, err := c.Dialect(); err != nil {
		return err
	}
	if c.Query.PageSize < 0 {
		return fmt.Errorf("query.page_size must not be negative, got %d", c.Query.PageSize)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Dialect returns the SQL dialect of the configured driver.
func (c *Config) Dialect() (querysql.Dialect, error) {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPureGo, store.DriverPostgres:
		return querysql.ParseDialect(c.Database.Driver)
	default:
		return 0, fmt.Errorf("database.driver must be %q, %q or %q, got %q",
			store.DriverSQLite, store.DriverPureGo, store.DriverPostgres, c.Database.Driver)
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds the logger described by c, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
