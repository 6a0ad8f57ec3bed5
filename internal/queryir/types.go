package queryir

import "github.com/specify/storedq/internal/ir"

// Expr is a scalar expression over a joined row.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Column references a column of an aliased table.
type Column struct {
	Alias string // table alias from the assembler's arena (t0, t1, anc2, ...)
	Name  string // physical column name from the registry
}

func (Column) exprNode() {}

// Part selects a component of a calendar date.
type Part int

const (
	Day Part = iota + 1
	Month
	Year
)

// String returns the part name as used in stringId suffixes.
func (p Part) String() string {
	switch p {
	case Day:
		return "Day"
	case Month:
		return "Month"
	case Year:
		return "Year"
	default:
		return "none"
	}
}

// DatePart extracts a numeric date component (1-31, 1-12, or the year).
type DatePart struct {
	Part Part
	Of   Expr
}

func (DatePart) exprNode() {}

// Lower folds an expression to lower case for case-insensitive matching.
type Lower struct {
	Of Expr
}

func (Lower) exprNode() {}

// Op is a binary comparison operator.
type Op int

const (
	Eq Op = iota + 1
	NotEq
	Lt
	Gt
	LtOrEq
	GtOrEq
)

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case NotEq:
		return "<>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case LtOrEq:
		return "<="
	case GtOrEq:
		return ">="
	default:
		return "?op"
	}
}

// Compare compares an expression with a literal.
//
//	<Left> <Op> ?
type Compare struct {
	Left  Expr
	Op    Op
	Value ir.Value
}

func (Compare) predicateNode() {}

// CompareColumns compares two expressions. Used for join conditions.
//
//	<Left> <Op> <Right>
type CompareColumns struct {
	Left  Expr
	Op    Op
	Right Expr
}

func (CompareColumns) predicateNode() {}

// Like matches an expression against a SQL LIKE pattern.
// With Escaped set, backslash escapes % and _ in Pattern.
type Like struct {
	Expr    Expr
	Pattern string
	Escaped bool
}

func (Like) predicateNode() {}

// Between tests Lo <= Expr <= Hi against literals.
type Between struct {
	Expr Expr
	Lo   ir.Value
	Hi   ir.Value
}

func (Between) predicateNode() {}

// BetweenColumns tests Lo <= Expr <= Hi against other expressions.
// The tree filter uses it for node-number ranges.
type BetweenColumns struct {
	Expr Expr
	Lo   Expr
	Hi   Expr
}

func (BetweenColumns) predicateNode() {}

// In tests membership in a literal list. An empty list matches nothing.
type In struct {
	Expr   Expr
	Values []ir.Value
}

func (In) predicateNode() {}

// IsNull tests for SQL NULL.
type IsNull struct {
	Expr Expr
}

func (IsNull) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Of Predicate
}

func (Not) predicateNode() {}

// And is a conjunction. Empty means true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. Empty means false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// True is the predicate that matches every row.
var True Predicate = And{}

// Table is an aliased registry table.
type Table struct {
	Name     string
	Alias    string
	IDColumn string
}

// ID returns the table's id column expression.
func (t Table) ID() Column {
	return Column{Alias: t.Alias, Name: t.IDColumn}
}

// JoinKind selects inner or left outer join.
type JoinKind int

const (
	// LeftJoin keeps root rows whose related rows are missing. Relationship
	// hops use it so display-only fields never narrow the result.
	LeftJoin JoinKind = iota + 1
	// InnerJoin drops rows without a match. Tree ancestor joins use it.
	InnerJoin
)

// Join attaches an aliased table.
type Join struct {
	Kind  JoinKind
	Table Table
	On    Predicate
}

// Output is a projected column.
type Output struct {
	Expr  Expr
	Label string
}

// Select is a complete query over a root table.
//
// Semantics:
//
//	SELECT [DISTINCT] <root id>, <Columns...>
//	FROM <From> <Joins...>
//	WHERE <Where...> [AND <root id> > After]
//	ORDER BY <root id> ASC
//	[LIMIT <Limit>]
//
// Where is a conjunction. Joins appear in order; each may only reference
// aliases introduced before it.
//
// After and Limit page over root ids, not rows. When a Distinct query
// projects a joined column, one root id can yield several rows; all of them
// belong to the same page.
type Select struct {
	From     Table
	Joins    []Join
	Where    []Predicate
	Columns  []Output
	After    *int64 // keyset: only rows with root id greater than *After
	Limit    uint64 // max root ids per page; 0 means no limit
	Distinct bool   // set when a to-many join can repeat root rows
}

// OrderBy returns the ordering column, always the root id.
func (s Select) OrderBy() Column {
	return s.From.ID()
}
