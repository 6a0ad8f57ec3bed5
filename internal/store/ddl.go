package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/schema"
)

// columnType returns the declared type of a field in the store's dialect.
// SQLite keeps DATE so the driver recognizes date columns.
func (s *Store) columnType(t schema.FieldType) string {
	pg := s.dialect == querysql.Postgres
	switch t {
	case schema.TypeInteger:
		if pg {
			return "BIGINT"
		}
		return "INTEGER"
	case schema.TypeFloat:
		if pg {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

type columnDef struct {
	name string
	typ  string
}

// TableDDL returns CREATE TABLE statements for every registered table.
// Foreign key columns come from many-to-one relationships on the table and
// from one-to-many relationships pointing at it.
func (s *Store) TableDDL(reg *schema.Registry) []string {
	keyType := s.columnType(schema.TypeInteger)

	incoming := map[int][]string{}
	for _, t := range reg.Tables() {
		for _, rel := range t.Relationships() {
			if rel.Kind == schema.OneToMany {
				incoming[rel.Target.ID] = append(incoming[rel.Target.ID], rel.Column)
			}
		}
	}

	var stmts []string
	for _, t := range reg.Tables() {
		seen := map[string]bool{t.IDColumn: true}
		var cols []columnDef
		add := func(name, typ string) {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, columnDef{name, typ})
			}
		}
		for _, f := range t.Fields() {
			add(f.Column, s.columnType(f.Type))
		}
		for _, rel := range t.Relationships() {
			if rel.Kind == schema.ManyToOne {
				add(rel.Column, keyType)
			}
		}
		fks := incoming[t.ID]
		sort.Strings(fks)
		for _, col := range fks {
			add(col, keyType)
		}

		parts := []string{fmt.Sprintf("%s %s PRIMARY KEY", querysql.QuoteIdent(t.IDColumn), keyType)}
		for _, c := range cols {
			parts = append(parts, querysql.QuoteIdent(c.name)+" "+c.typ)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			querysql.QuoteIdent(t.Name), strings.Join(parts, ", ")))
	}
	return stmts
}

// CreateTables creates a table for every registered table.
func (s *Store) CreateTables(ctx context.Context, reg *schema.Registry) error {
	for _, stmt := range s.TableDDL(reg) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Insert writes one row. Keys are "id", field names, or many-to-one
// relationship names (whose value is the target row id). Dates may be given
// as ir.Date, time.Time or YYYY-MM-DD strings.
func (s *Store) Insert(ctx context.Context, t *schema.Table, row map[string]any) error {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, typ, err := columnFor(t, k)
		if err != nil {
			return err
		}
		v, err := s.bindValue(typ, row[k])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, k, err)
		}
		cols = append(cols, querysql.QuoteIdent(col))
		args = append(args, v)
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		if s.dialect == querysql.Postgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.QuoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	return nil
}

func columnFor(t *schema.Table, key string) (string, schema.FieldType, error) {
	if key == "id" {
		return t.IDColumn, schema.TypeInteger, nil
	}
	if f, ok := t.Field(key); ok {
		return f.Column, f.Type, nil
	}
	if rel, ok := t.Relationship(key); ok && rel.Kind == schema.ManyToOne {
		return rel.Column, schema.TypeInteger, nil
	}
	return "", 0, fmt.Errorf("table %s has no column for %q", t.Name, key)
}

// bindValue converts a fixture value so the database stores it the way
// compiled queries compare it.
func (s *Store) bindValue(typ schema.FieldType, v any) (any, error) {
	if v == nil || typ != schema.TypeDate {
		return v, nil
	}
	switch d := v.(type) {
	case ir.Date:
		return s.dates.DateParam(d), nil
	case time.Time:
		return s.dates.DateParam(ir.NewDate(d)), nil
	case string:
		tm, err := time.Parse(ir.DateLayout, d)
		if err != nil {
			return nil, err
		}
		return s.dates.DateParam(ir.NewDate(tm)), nil
	default:
		return nil, fmt.Errorf("unsupported date value %T", v)
	}
}
