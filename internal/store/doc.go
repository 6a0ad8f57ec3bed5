// Package store runs compiled stored queries against a relational database.
//
// Three drivers are supported:
//   - sqlite3 (github.com/mattn/go-sqlite3), used for tests, fixtures and
//     local runs
//   - sqlite (modernc.org/sqlite), the same dialect without cgo
//   - pgx (github.com/jackc/pgx/v5/stdlib), for Postgres
//
// The store executes what it is given. It never retries and never
// reinterprets a failure; errors are returned wrapped with the statement
// stage that failed.
//
// # Result rows
//
// QueryRows returns rows in database order as maps from column label to a
// normalized value: int64, float64, string, bool or nil. Dates are returned
// as YYYY-MM-DD strings whichever driver produced them.
//
// # Fixtures
//
// CreateTables derives DDL from a schema registry, and Insert writes rows
// keyed by field and relationship names. Both exist for fixtures and the
// init command; production schemas are managed elsewhere.
package store
