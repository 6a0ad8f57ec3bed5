package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/specify/storedq/internal/querysql"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3" // cgo, github.com/mattn/go-sqlite3
	DriverPureGo   = "sqlite"  // modernc.org/sqlite, no cgo
	DriverPostgres = "pgx"
)

// IsSQLite reports whether driver is one of the SQLite drivers.
func IsSQLite(driver string) bool {
	return driver == DriverSQLite || driver == DriverPureGo
}

// Store executes queries against one database.
type Store struct {
	db      *sql.DB
	dialect querysql.Dialect
	dates   *querysql.SQLCompiler
}

// Open connects to a database. For the SQLite drivers the dsn is a file
// path or ":memory:"; for pgx it is a Postgres connection string.
//
// SQLite connections are configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if !IsSQLite(driver) && driver != DriverPostgres {
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	dialect, err := querysql.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case querysql.SQLite:
		db, err = sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite only supports one writer at a time, and every connection
		// to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case querysql.Postgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
		}
		db = stdlib.OpenDB(*cfg)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return &Store{db: db, dialect: dialect, dates: querysql.NewSQLCompiler(dialect)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect queries for this store must be compiled in.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
