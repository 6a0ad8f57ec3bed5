// Package querysql compiles query IR to parameterized SQL.
//
// Assembly uses github.com/Masterminds/squirrel. Values are always bound as
// parameters and never interpolated. Identifiers are double-quoted and come
// only from the registry or the assembler's alias arena.
package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryir"
)

// Dialect selects placeholder style, date handling and date-part extraction.
type Dialect int

const (
	// SQLite uses ? placeholders and stores dates as YYYY-MM-DD text.
	SQLite Dialect = iota + 1
	// Postgres uses $n placeholders and native DATE columns.
	Postgres
)

// String returns the dialect name as used in configuration.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect maps a database driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unknown SQL dialect %q", driver)
	}
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// IDLabel is the result column holding the root row id.
const IDLabel = "id"

// CountLabel is the result column of a count query.
const CountLabel = "count"

// SQLCompiler compiles query IR to parameterized SQL for one dialect.
//
// CRITICAL: every row query is ordered by the root id.
// CRITICAL: all values are parameterized, never interpolated.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a Select to SQL returning the root id (as "id") followed
// by each output column. Returns (sql, params, error).
//
// MANDATORY: ORDER BY <root id> ASC.
func (c *SQLCompiler) Compile(sel queryir.Select) (string, []any, error) {
	if err := validate(sel); err != nil {
		return "", nil, err
	}

	idExpr := c.expr(sel.OrderBy())
	cols := []string{fmt.Sprintf("%s AS %s", idExpr, quote(IDLabel))}
	for _, out := range sel.Columns {
		cols = append(cols, fmt.Sprintf("%s AS %s", c.expr(out.Expr), quote(out.Label)))
	}

	b, err := c.base(sq.Select(cols...), sel, c.Dialect.placeholder())
	if err != nil {
		return "", nil, err
	}
	if sel.Distinct {
		b = b.Distinct()
	}

	if sel.Limit > 0 && fansOut(sel) {
		// Several rows share a root id, so the page is cut on ids in a
		// subquery and the outer query returns every row of those ids.
		ids, err := c.pageIDs(sel, idExpr)
		if err != nil {
			return "", nil, err
		}
		return b.Where(ids).OrderBy(idExpr + " ASC").ToSql()
	}

	if sel.After != nil {
		b = b.Where(sq.Gt{idExpr: *sel.After})
	}
	b = b.OrderBy(idExpr + " ASC")
	if sel.Limit > 0 {
		b = b.Limit(sel.Limit)
	}

	return b.ToSql()
}

// pageIDs builds "<root id> IN (SELECT DISTINCT <root id> ... LIMIT n)".
// The subquery is written with ? placeholders; the outer builder renumbers
// them for Postgres together with its own.
func (c *SQLCompiler) pageIDs(sel queryir.Select, idExpr string) (sq.Sqlizer, error) {
	inner, err := c.base(sq.Select(idExpr).Distinct(), sel, sq.Question)
	if err != nil {
		return nil, err
	}
	if sel.After != nil {
		inner = inner.Where(sq.Gt{idExpr: *sel.After})
	}
	innerSQL, args, err := inner.OrderBy(idExpr + " ASC").Limit(sel.Limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("compile page ids: %w", err)
	}
	return sq.Expr(idExpr+" IN ("+innerSQL+")", args...), nil
}

// fansOut reports whether one root id can span several result rows: a
// to-many join is present and an output column reads a joined table.
func fansOut(sel queryir.Select) bool {
	if !sel.Distinct {
		return false
	}
	for _, out := range sel.Columns {
		if exprAlias(out.Expr) != sel.From.Alias {
			return true
		}
	}
	return false
}

func exprAlias(e queryir.Expr) string {
	switch ex := e.(type) {
	case queryir.Column:
		return ex.Alias
	case queryir.Lower:
		return exprAlias(ex.Of)
	case queryir.DatePart:
		return exprAlias(ex.Of)
	default:
		return ""
	}
}

// CompileCount converts a Select to a query counting distinct root ids that
// match its joins and filters. Columns, After and Limit are ignored.
// A single aggregate row needs no ORDER BY.
func (c *SQLCompiler) CompileCount(sel queryir.Select) (string, []any, error) {
	if err := validate(sel); err != nil {
		return "", nil, err
	}

	count := fmt.Sprintf("COUNT(DISTINCT %s) AS %s", c.expr(sel.OrderBy()), quote(CountLabel))
	b, err := c.base(sq.Select(count), sel, c.Dialect.placeholder())
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

func validate(sel queryir.Select) error {
	if result := queryir.Validate(sel); !result.Valid {
		return fmt.Errorf("invalid query: %s", strings.Join(result.Problems, "; "))
	}
	return nil
}

// base adds FROM, joins and filters.
func (c *SQLCompiler) base(b sq.SelectBuilder, sel queryir.Select, format sq.PlaceholderFormat) (sq.SelectBuilder, error) {
	b = b.From(quoteTable(sel.From)).PlaceholderFormat(format)

	for _, j := range sel.Joins {
		on, args, err := c.predicate(j.On).ToSql()
		if err != nil {
			return b, fmt.Errorf("compile join %s: %w", j.Table.Alias, err)
		}
		kind := "LEFT JOIN"
		if j.Kind == queryir.InnerJoin {
			kind = "JOIN"
		}
		b = b.JoinClause(fmt.Sprintf("%s %s ON %s", kind, quoteTable(j.Table), on), args...)
	}

	for _, p := range sel.Where {
		b = b.Where(c.predicate(p))
	}
	return b, nil
}

// predicate converts a predicate to a squirrel condition. Placeholders are
// written as ? and renumbered by the builder for Postgres.
func (c *SQLCompiler) predicate(p queryir.Predicate) sq.Sqlizer {
	switch pred := p.(type) {
	case queryir.Compare:
		return c.compare(c.expr(pred.Left), pred.Op, c.param(pred.Value))
	case queryir.CompareColumns:
		return sq.Expr(fmt.Sprintf("%s %s %s", c.expr(pred.Left), pred.Op, c.expr(pred.Right)))
	case queryir.Like:
		if pred.Escaped {
			return sq.Expr(c.expr(pred.Expr)+` LIKE ? ESCAPE '\'`, pred.Pattern)
		}
		return sq.Like{c.expr(pred.Expr): pred.Pattern}
	case queryir.Between:
		return sq.Expr(c.expr(pred.Expr)+" BETWEEN ? AND ?", c.param(pred.Lo), c.param(pred.Hi))
	case queryir.BetweenColumns:
		return sq.Expr(fmt.Sprintf("%s BETWEEN %s AND %s", c.expr(pred.Expr), c.expr(pred.Lo), c.expr(pred.Hi)))
	case queryir.In:
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			params[i] = c.param(v)
		}
		return sq.Eq{c.expr(pred.Expr): params}
	case queryir.IsNull:
		return sq.Eq{c.expr(pred.Expr): nil}
	case queryir.Not:
		return not{of: c.predicate(pred.Of)}
	case queryir.And:
		conj := sq.And{}
		for _, sub := range pred.Predicates {
			conj = append(conj, c.predicate(sub))
		}
		return conj
	case queryir.Or:
		disj := sq.Or{}
		for _, sub := range pred.Predicates {
			disj = append(disj, c.predicate(sub))
		}
		return disj
	default:
		// Validate rejects unknown predicates before we get here
		return sq.Expr("1=0")
	}
}

func (c *SQLCompiler) compare(expr string, op queryir.Op, v any) sq.Sqlizer {
	switch op {
	case queryir.Eq:
		return sq.Eq{expr: v}
	case queryir.NotEq:
		return sq.NotEq{expr: v}
	case queryir.Lt:
		return sq.Lt{expr: v}
	case queryir.Gt:
		return sq.Gt{expr: v}
	case queryir.LtOrEq:
		return sq.LtOrEq{expr: v}
	default:
		return sq.GtOrEq{expr: v}
	}
}

// not wraps a condition in NOT (...).
type not struct {
	of sq.Sqlizer
}

func (n not) ToSql() (string, []any, error) {
	s, args, err := n.of.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + s + ")", args, nil
}

// expr renders an expression.
func (c *SQLCompiler) expr(e queryir.Expr) string {
	switch ex := e.(type) {
	case queryir.Column:
		return quote(ex.Alias) + "." + quote(ex.Name)
	case queryir.Lower:
		return "LOWER(" + c.expr(ex.Of) + ")"
	case queryir.DatePart:
		return c.datePart(ex.Part, c.expr(ex.Of))
	default:
		return "NULL"
	}
}

func (c *SQLCompiler) datePart(p queryir.Part, of string) string {
	if c.Dialect == Postgres {
		field := map[queryir.Part]string{queryir.Day: "DAY", queryir.Month: "MONTH", queryir.Year: "YEAR"}[p]
		return fmt.Sprintf("CAST(EXTRACT(%s FROM %s) AS INTEGER)", field, of)
	}
	format := map[queryir.Part]string{queryir.Day: "%d", queryir.Month: "%m", queryir.Year: "%Y"}[p]
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", format, of)
}

// param converts an ir.Value to a driver parameter.
func (c *SQLCompiler) param(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Float:
		return float64(val)
	case ir.Bool:
		return bool(val)
	case ir.Date:
		if c.Dialect == Postgres {
			return val.Time()
		}
		return val.String()
	case ir.Null, nil:
		return nil
	default:
		return ir.Format(v)
	}
}

// DateParam converts a date the way Compile binds it. Stores use it when
// writing fixture rows so comparisons line up.
func (c *SQLCompiler) DateParam(d ir.Date) any {
	return c.param(d)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteTable(t queryir.Table) string {
	return quote(t.Name) + " AS " + quote(t.Alias)
}

// QuoteIdent double-quotes an identifier for DDL and fixture statements.
func QuoteIdent(ident string) string {
	return quote(ident)
}
