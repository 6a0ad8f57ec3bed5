package ops

import (
	"fmt"
	"time"

	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/schema"
)

// Code is a stored-query operator code.
type Code int

const (
	Like Code = iota
	Equals
	Greater
	Less
	GreaterOrEqual
	LessOrEqual
	True
	False
	DoesNotMatter
	Between
	In
	Contains
	Empty
	TrueOrNull
	FalseOrNull
	NotEquals
	StartsWith
	EndsWith
	IsNull
	OlderThanYears
	YoungerThanYears
	WithinLastDays
)

var codeNames = [...]string{
	"Like", "Equals", "Greater", "Less", "GreaterOrEqual", "LessOrEqual",
	"True", "False", "DoesNotMatter", "Between", "In", "Contains", "Empty",
	"TrueOrNull", "FalseOrNull", "NotEquals", "StartsWith", "EndsWith",
	"IsNull", "OlderThanYears", "YoungerThanYears", "WithinLastDays",
}

// String returns the operator name.
func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Target is what an operator filters: an expression and the semantic type
// of its values. A date-part expression has type integer.
type Target struct {
	Expr   queryir.Expr
	Type   schema.FieldType
	Values []string // enum members, for enum targets
}

type buildFunc func(op Operator, t Target, operand string) (queryir.Predicate, error)

// Operator is a resolved operator code.
type Operator struct {
	Code Code

	types        map[schema.FieldType]bool
	needsOperand bool
	build        buildFunc
	now          func() time.Time
}

// Name returns the operator's name.
func (o Operator) Name() string { return o.Code.String() }

// NeedsOperand reports whether the operand is part of the predicate.
// Operators such as True or IsNull ignore it.
func (o Operator) NeedsOperand() bool { return o.needsOperand }

// Applies reports whether the operator can filter fields of type t.
func (o Operator) Applies(t schema.FieldType) bool { return o.types[t] }

// Build returns the predicate for operand over the target.
//
// Fails with UNSUPPORTED_OPERATOR when the operator does not apply to the
// target's type, and with OPERAND_TYPE when the operand cannot be coerced.
func (o Operator) Build(t Target, operand string) (queryir.Predicate, error) {
	if !o.Applies(t.Type) {
		return nil, queryerr.NewUnsupportedOperatorError(o.Name(), t.Type.String())
	}
	return o.build(o, t, operand)
}

// Option configures a Library.
type Option func(*Library)

// WithClock sets the clock age operators measure from.
func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		l.now = now
	}
}

// Library resolves operator codes.
type Library struct {
	ops []Operator // indexed by code
	now func() time.Time
}

// NewLibrary builds the operator library.
func NewLibrary(opts ...Option) *Library {
	l := &Library{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	var (
		text      = types(schema.TypeText, schema.TypeEnum)
		ordered   = types(schema.TypeInteger, schema.TypeFloat, schema.TypeDate, schema.TypeText)
		listable  = types(schema.TypeInteger, schema.TypeFloat, schema.TypeDate, schema.TypeText, schema.TypeEnum)
		boolean   = types(schema.TypeBoolean)
		date      = types(schema.TypeDate)
		all       = types(schema.TypeText, schema.TypeInteger, schema.TypeFloat, schema.TypeDate, schema.TypeBoolean, schema.TypeEnum)
		operand   = true
		noOperand = false
	)

	l.ops = []Operator{
		{Code: Like, types: text, needsOperand: operand, build: buildLike},
		{Code: Equals, types: all, needsOperand: operand, build: buildEquals},
		{Code: Greater, types: ordered, needsOperand: operand, build: buildCompare},
		{Code: Less, types: ordered, needsOperand: operand, build: buildCompare},
		{Code: GreaterOrEqual, types: ordered, needsOperand: operand, build: buildCompare},
		{Code: LessOrEqual, types: ordered, needsOperand: operand, build: buildCompare},
		{Code: True, types: boolean, needsOperand: noOperand, build: buildBool},
		{Code: False, types: boolean, needsOperand: noOperand, build: buildBool},
		{Code: DoesNotMatter, types: boolean, needsOperand: noOperand, build: buildDoesNotMatter},
		{Code: Between, types: ordered, needsOperand: operand, build: buildBetween},
		{Code: In, types: listable, needsOperand: operand, build: buildIn},
		{Code: Contains, types: text, needsOperand: operand, build: buildAffix},
		{Code: Empty, types: all, needsOperand: noOperand, build: buildEmpty},
		{Code: TrueOrNull, types: boolean, needsOperand: noOperand, build: buildBool},
		{Code: FalseOrNull, types: boolean, needsOperand: noOperand, build: buildBool},
		{Code: NotEquals, types: all, needsOperand: operand, build: buildEquals},
		{Code: StartsWith, types: text, needsOperand: operand, build: buildAffix},
		{Code: EndsWith, types: text, needsOperand: operand, build: buildAffix},
		{Code: IsNull, types: all, needsOperand: noOperand, build: buildIsNull},
		{Code: OlderThanYears, types: date, needsOperand: operand, build: buildAge},
		{Code: YoungerThanYears, types: date, needsOperand: operand, build: buildAge},
		{Code: WithinLastDays, types: date, needsOperand: operand, build: buildAge},
	}
	for i := range l.ops {
		l.ops[i].now = l.now
	}
	return l
}

func types(ts ...schema.FieldType) map[schema.FieldType]bool {
	m := make(map[schema.FieldType]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

// Resolve returns the operator for code, or UNKNOWN_OPERATOR.
func (l *Library) Resolve(code int) (Operator, error) {
	if code < 0 || code >= len(l.ops) {
		return Operator{}, queryerr.NewUnknownOperatorError(code)
	}
	return l.ops[code], nil
}

// Operators returns every operator in code order.
func (l *Library) Operators() []Operator {
	out := make([]Operator, len(l.ops))
	copy(out, l.ops)
	return out
}
