package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryir"
)

var (
	co   = queryir.Table{Name: "CollectionObject", Alias: "t0", IDColumn: "collectionobjectid"}
	prep = queryir.Table{Name: "Preparation", Alias: "t1", IDColumn: "preparationid"}
	pt   = queryir.Table{Name: "PrepType", Alias: "t2", IDColumn: "preptypeid"}
)

func col(alias, name string) queryir.Column {
	return queryir.Column{Alias: alias, Name: name}
}

// prepTypeQuery finds specimens in collection 4 with a preparation of a
// given type, the way the assembler builds it.
func prepTypeQuery() queryir.Select {
	after := int64(10)
	return queryir.Select{
		From: co,
		Joins: []queryir.Join{
			{Kind: queryir.LeftJoin, Table: prep,
				On: queryir.CompareColumns{Left: col("t1", "collectionobjectid"), Op: queryir.Eq, Right: co.ID()}},
			{Kind: queryir.LeftJoin, Table: pt,
				On: queryir.CompareColumns{Left: col("t1", "preptypeid"), Op: queryir.Eq, Right: pt.ID()}},
		},
		Where: []queryir.Predicate{
			queryir.Compare{Left: col("t0", "collectionmemberid"), Op: queryir.Eq, Value: ir.Int(4)},
			queryir.Compare{Left: queryir.Lower{Of: col("t2", "name")}, Op: queryir.Eq, Value: ir.String("mummified")},
		},
		Columns:  []queryir.Output{{Expr: col("t0", "catalognumber"), Label: "f1"}},
		After:    &after,
		Limit:    40,
		Distinct: true,
	}
}

func TestCompile_SQLite(t *testing.T) {
	sql, params, err := NewSQLCompiler(SQLite).Compile(prepTypeQuery())
	require.NoError(t, err)

	assert.Equal(t, `SELECT DISTINCT "t0"."collectionobjectid" AS "id", "t0"."catalognumber" AS "f1" `+
		`FROM "CollectionObject" AS "t0" `+
		`LEFT JOIN "Preparation" AS "t1" ON "t1"."collectionobjectid" = "t0"."collectionobjectid" `+
		`LEFT JOIN "PrepType" AS "t2" ON "t1"."preptypeid" = "t2"."preptypeid" `+
		`WHERE "t0"."collectionmemberid" = ? AND LOWER("t2"."name") = ? AND "t0"."collectionobjectid" > ? `+
		`ORDER BY "t0"."collectionobjectid" ASC LIMIT 40`, sql)
	assert.Equal(t, []any{int64(4), "mummified", int64(10)}, params)

	// value never interpolated
	assert.NotContains(t, sql, "mummified")
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	sql, params, err := NewSQLCompiler(Postgres).Compile(prepTypeQuery())
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE "t0"."collectionmemberid" = $1 AND LOWER("t2"."name") = $2 AND "t0"."collectionobjectid" > $3`)
	assert.NotContains(t, sql, "?")
	assert.Equal(t, []any{int64(4), "mummified", int64(10)}, params)
}

func TestCompile_PagesOverIDsWhenJoinedColumnRepeats(t *testing.T) {
	sel := prepTypeQuery()
	sel.Columns = append(sel.Columns, queryir.Output{Expr: col("t2", "name"), Label: "f2"})

	sql, params, err := NewSQLCompiler(SQLite).Compile(sel)
	require.NoError(t, err)

	from := `FROM "CollectionObject" AS "t0" ` +
		`LEFT JOIN "Preparation" AS "t1" ON "t1"."collectionobjectid" = "t0"."collectionobjectid" ` +
		`LEFT JOIN "PrepType" AS "t2" ON "t1"."preptypeid" = "t2"."preptypeid" ` +
		`WHERE "t0"."collectionmemberid" = ? AND LOWER("t2"."name") = ?`
	assert.Equal(t, `SELECT DISTINCT "t0"."collectionobjectid" AS "id", "t0"."catalognumber" AS "f1", "t2"."name" AS "f2" `+
		from+` AND "t0"."collectionobjectid" IN (SELECT DISTINCT "t0"."collectionobjectid" `+
		from+` AND "t0"."collectionobjectid" > ? ORDER BY "t0"."collectionobjectid" ASC LIMIT 40) `+
		`ORDER BY "t0"."collectionobjectid" ASC`, sql)
	assert.Equal(t, []any{int64(4), "mummified", int64(4), "mummified", int64(10)}, params)

	pg, _, err := NewSQLCompiler(Postgres).Compile(sel)
	require.NoError(t, err)
	assert.Contains(t, pg, `"t0"."collectionobjectid" > $5 ORDER BY`)
	assert.NotContains(t, pg, "?")

	// no limit, nothing to page
	sel.Limit = 0
	sql, _, err = NewSQLCompiler(SQLite).Compile(sel)
	require.NoError(t, err)
	assert.NotContains(t, sql, " IN (")
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))

	for _, d := range []Dialect{SQLite, Postgres} {
		t.Run(d.String(), func(t *testing.T) {
			sql, _, err := NewSQLCompiler(d).Compile(prepTypeQuery())
			require.NoError(t, err)
			g.Assert(t, "prep_type_"+d.String(), []byte(sql+"\n"))
		})
	}
}

func TestCompile_OrderByMandatory(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		sql, _, err := NewSQLCompiler(d).Compile(queryir.Select{From: co})
		require.NoError(t, err)
		assert.Equal(t, `SELECT "t0"."collectionobjectid" AS "id" FROM "CollectionObject" AS "t0" `+
			`ORDER BY "t0"."collectionobjectid" ASC`, sql)
	}
}

func TestCompileCount(t *testing.T) {
	sql, params, err := NewSQLCompiler(SQLite).CompileCount(prepTypeQuery())
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(DISTINCT "t0"."collectionobjectid") AS "count" `+
		`FROM "CollectionObject" AS "t0" `+
		`LEFT JOIN "Preparation" AS "t1" ON "t1"."collectionobjectid" = "t0"."collectionobjectid" `+
		`LEFT JOIN "PrepType" AS "t2" ON "t1"."preptypeid" = "t2"."preptypeid" `+
		`WHERE "t0"."collectionmemberid" = ? AND LOWER("t2"."name") = ?`, sql)
	// keyset value and limit do not apply to the total
	assert.Equal(t, []any{int64(4), "mummified"}, params)
}

func TestCompile_InvalidQuery(t *testing.T) {
	sel := queryir.Select{
		From:  co,
		Where: []queryir.Predicate{queryir.IsNull{Expr: col("t9", "x")}},
	}
	_, _, err := NewSQLCompiler(SQLite).Compile(sel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown alias")

	_, _, err = NewSQLCompiler(SQLite).CompileCount(sel)
	assert.Error(t, err)
}

func TestPredicate(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	amt := col("t0", "countamt")

	tests := []struct {
		name string
		pred queryir.Predicate
		sql  string
		args []any
	}{
		{"equals", queryir.Compare{Left: amt, Op: queryir.Eq, Value: ir.Int(3)}, `"t0"."countamt" = ?`, []any{int64(3)}},
		{"not equals", queryir.Compare{Left: amt, Op: queryir.NotEq, Value: ir.Int(3)}, `"t0"."countamt" <> ?`, []any{int64(3)}},
		{"less", queryir.Compare{Left: amt, Op: queryir.Lt, Value: ir.Int(3)}, `"t0"."countamt" < ?`, []any{int64(3)}},
		{"greater or equal", queryir.Compare{Left: amt, Op: queryir.GtOrEq, Value: ir.Float(2.5)}, `"t0"."countamt" >= ?`, []any{2.5}},
		{"like", queryir.Like{Expr: queryir.Lower{Of: col("t0", "text1")}, Pattern: "%dry%"}, `LOWER("t0"."text1") LIKE ?`, []any{"%dry%"}},
		{"like escaped", queryir.Like{Expr: col("t0", "text1"), Pattern: `%50\%%`, Escaped: true}, `"t0"."text1" LIKE ? ESCAPE '\'`, []any{`%50\%%`}},
		{"between", queryir.Between{Expr: amt, Lo: ir.Int(1), Hi: ir.Int(5)}, `"t0"."countamt" BETWEEN ? AND ?`, []any{int64(1), int64(5)}},
		{"in", queryir.In{Expr: amt, Values: []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)}}, `"t0"."countamt" IN (?,?,?)`, []any{int64(1), int64(2), int64(3)}},
		{"is null", queryir.IsNull{Expr: amt}, `"t0"."countamt" IS NULL`, nil},
		{"not", queryir.Not{Of: queryir.Compare{Left: amt, Op: queryir.Eq, Value: ir.Int(3)}}, `NOT ("t0"."countamt" = ?)`, []any{int64(3)}},
		{"and", queryir.And{Predicates: []queryir.Predicate{
			queryir.Compare{Left: amt, Op: queryir.Gt, Value: ir.Int(1)},
			queryir.IsNull{Expr: col("t0", "text1")},
		}}, `("t0"."countamt" > ? AND "t0"."text1" IS NULL)`, []any{int64(1)}},
		{"or", queryir.Or{Predicates: []queryir.Predicate{
			queryir.Compare{Left: amt, Op: queryir.LtOrEq, Value: ir.Int(1)},
			queryir.IsNull{Expr: amt},
		}}, `("t0"."countamt" <= ? OR "t0"."countamt" IS NULL)`, []any{int64(1)}},
		{"bool", queryir.Compare{Left: col("t0", "yesno1"), Op: queryir.Eq, Value: ir.Bool(true)}, `"t0"."yesno1" = ?`, []any{true}},
		{"sqlite date", queryir.Compare{Left: col("t0", "catalogeddate"), Op: queryir.Gt, Value: ir.Date{Year: 2001, Month: 6, Day: 15}},
			`"t0"."catalogeddate" > ?`, []any{"2001-06-15"}},
		{"month", queryir.Compare{Left: queryir.DatePart{Part: queryir.Month, Of: col("t0", "catalogeddate")}, Op: queryir.Eq, Value: ir.Int(6)},
			`CAST(strftime('%m', "t0"."catalogeddate") AS INTEGER) = ?`, []any{int64(6)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := c.predicate(tt.pred).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

func TestPredicate_EmptyConnectives(t *testing.T) {
	c := NewSQLCompiler(SQLite)

	sql, _, err := c.predicate(queryir.And{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=1)", sql)

	sql, _, err = c.predicate(queryir.Or{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=0)", sql)

	sql, _, err = c.predicate(queryir.In{Expr: col("t0", "countamt")}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=0)", sql)
}

func TestPostgresDates(t *testing.T) {
	c := NewSQLCompiler(Postgres)
	d := ir.Date{Year: 1999, Month: 12, Day: 31}

	sql, args, err := c.predicate(queryir.Compare{
		Left: queryir.DatePart{Part: queryir.Year, Of: col("t0", "catalogeddate")}, Op: queryir.Eq, Value: ir.Int(1999),
	}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, `CAST(EXTRACT(YEAR FROM "t0"."catalogeddate") AS INTEGER) = ?`, sql)
	assert.Equal(t, []any{int64(1999)}, args)

	assert.Equal(t, d.Time(), c.DateParam(d))
	assert.Equal(t, "1999-12-31", NewSQLCompiler(SQLite).DateParam(d))
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"sqlite3": SQLite, "SQLite": SQLite, "pgx": Postgres, "postgres": Postgres} {
		got, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"name"`, QuoteIdent("name"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
