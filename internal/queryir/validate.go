package queryir

import (
	"fmt"
)

// ValidationResult contains the structural problems found in a Select.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists each structural defect found.
	Problems []string
}

// Validate checks that a Select is well formed:
//  1. every alias is introduced once
//  2. joins reference only aliases introduced before them
//  3. filters and columns reference only introduced aliases
//  4. every predicate and expression is non-nil
//
// Validate is a pure function with no side effects.
func Validate(sel Select) ValidationResult {
	v := &validator{
		known:    map[string]bool{},
		problems: []string{},
	}
	v.validateSelect(sel)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	known    map[string]bool
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) introduce(t Table) {
	if t.Alias == "" {
		v.addProblem("table %s has no alias", t.Name)
		return
	}
	if v.known[t.Alias] {
		v.addProblem("alias %s introduced twice", t.Alias)
	}
	v.known[t.Alias] = true
}

func (v *validator) validateSelect(sel Select) {
	v.introduce(sel.From)
	if sel.From.IDColumn == "" {
		v.addProblem("root table %s has no id column", sel.From.Name)
	}

	for _, j := range sel.Joins {
		v.introduce(j.Table)
		if j.Kind != LeftJoin && j.Kind != InnerJoin {
			v.addProblem("join %s has invalid kind %d", j.Table.Alias, j.Kind)
		}
		if j.On == nil {
			v.addProblem("join %s has no condition", j.Table.Alias)
			continue
		}
		v.validatePredicate(j.On)
	}

	for _, p := range sel.Where {
		v.validatePredicate(p)
	}
	for _, c := range sel.Columns {
		if c.Label == "" {
			v.addProblem("output column without label")
		}
		v.validateExpr(c.Expr)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case Column:
		if !v.known[expr.Alias] {
			v.addProblem("column %s.%s references unknown alias", expr.Alias, expr.Name)
		}
	case DatePart:
		if expr.Part < Day || expr.Part > Year {
			v.addProblem("invalid date part %d", expr.Part)
		}
		v.validateExpr(expr.Of)
	case Lower:
		v.validateExpr(expr.Of)
	default:
		v.addProblem("unknown expression type: %T", e)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Compare:
		v.validateOp(pred.Op)
		v.validateExpr(pred.Left)
		if pred.Value == nil {
			v.addProblem("comparison without value")
		}
	case CompareColumns:
		v.validateOp(pred.Op)
		v.validateExpr(pred.Left)
		v.validateExpr(pred.Right)
	case Like:
		v.validateExpr(pred.Expr)
	case Between:
		v.validateExpr(pred.Expr)
		if pred.Lo == nil || pred.Hi == nil {
			v.addProblem("between without bounds")
		}
	case BetweenColumns:
		v.validateExpr(pred.Expr)
		v.validateExpr(pred.Lo)
		v.validateExpr(pred.Hi)
	case In:
		v.validateExpr(pred.Expr)
	case IsNull:
		v.validateExpr(pred.Expr)
	case Not:
		v.validatePredicate(pred.Of)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateOp(op Op) {
	if op < Eq || op > GtOrEq {
		v.addProblem("invalid comparison operator %d", op)
	}
}
