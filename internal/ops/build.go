package ops

import (
	"strings"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/schema"
)

// textual reports whether comparisons on t ignore case.
func textual(t schema.FieldType) bool {
	return t == schema.TypeText || t == schema.TypeEnum
}

// fold lowers the target expression and value for case-insensitive
// matching of text and enum fields.
func fold(t Target, v ir.Value) (queryir.Expr, ir.Value) {
	if s, ok := v.(ir.String); ok && textual(t.Type) {
		return queryir.Lower{Of: t.Expr}, ir.String(strings.ToLower(string(s)))
	}
	return t.Expr, v
}

func buildEquals(op Operator, t Target, operand string) (queryir.Predicate, error) {
	v, err := Coerce(t, operand)
	if err != nil {
		return nil, err
	}
	expr, v := fold(t, v)
	cmp := queryir.Eq
	if op.Code == NotEquals {
		cmp = queryir.NotEq
	}
	return queryir.Compare{Left: expr, Op: cmp, Value: v}, nil
}

var compareOps = map[Code]queryir.Op{
	Greater:        queryir.Gt,
	Less:           queryir.Lt,
	GreaterOrEqual: queryir.GtOrEq,
	LessOrEqual:    queryir.LtOrEq,
}

func buildCompare(op Operator, t Target, operand string) (queryir.Predicate, error) {
	v, err := Coerce(t, operand)
	if err != nil {
		return nil, err
	}
	return queryir.Compare{Left: t.Expr, Op: compareOps[op.Code], Value: v}, nil
}

// buildLike treats * and % as wildcards. The pattern is otherwise passed
// through, so _ matches one character.
func buildLike(_ Operator, t Target, operand string) (queryir.Predicate, error) {
	pattern := strings.ReplaceAll(strings.ToLower(operand), "*", "%")
	return queryir.Like{Expr: queryir.Lower{Of: t.Expr}, Pattern: pattern}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildAffix matches the operand literally as a substring, prefix or suffix.
func buildAffix(op Operator, t Target, operand string) (queryir.Predicate, error) {
	lit := likeEscaper.Replace(strings.ToLower(operand))
	var pattern string
	switch op.Code {
	case StartsWith:
		pattern = lit + "%"
	case EndsWith:
		pattern = "%" + lit
	default:
		pattern = "%" + lit + "%"
	}
	return queryir.Like{Expr: queryir.Lower{Of: t.Expr}, Pattern: pattern, Escaped: true}, nil
}

func buildBetween(_ Operator, t Target, operand string) (queryir.Predicate, error) {
	parts := strings.Split(operand, ",")
	if len(parts) != 2 {
		return nil, queryerr.NewOperandTypeError(operand, "range of "+t.Type.String(), nil)
	}
	lo, err := Coerce(t, strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	hi, err := Coerce(t, strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return queryir.Between{Expr: t.Expr, Lo: lo, Hi: hi}, nil
}

func buildIn(_ Operator, t Target, operand string) (queryir.Predicate, error) {
	items := splitList(operand)
	if len(items) == 0 {
		return nil, queryerr.NewOperandTypeError(operand, "list of "+t.Type.String(), nil)
	}

	expr := t.Expr
	values := make([]ir.Value, 0, len(items))
	for _, item := range items {
		v, err := Coerce(t, item)
		if err != nil {
			return nil, err
		}
		expr, v = fold(t, v)
		values = append(values, v)
	}
	return queryir.In{Expr: expr, Values: values}, nil
}

func buildBool(op Operator, t Target, _ string) (queryir.Predicate, error) {
	want := op.Code == True || op.Code == TrueOrNull
	eq := queryir.Compare{Left: t.Expr, Op: queryir.Eq, Value: ir.Bool(want)}
	if op.Code == TrueOrNull || op.Code == FalseOrNull {
		return queryir.Or{Predicates: []queryir.Predicate{eq, queryir.IsNull{Expr: t.Expr}}}, nil
	}
	return eq, nil
}

func buildDoesNotMatter(Operator, Target, string) (queryir.Predicate, error) {
	return queryir.True, nil
}

// buildEmpty treats the empty string as empty for text.
func buildEmpty(_ Operator, t Target, _ string) (queryir.Predicate, error) {
	if t.Type == schema.TypeText {
		return queryir.Or{Predicates: []queryir.Predicate{
			queryir.IsNull{Expr: t.Expr},
			queryir.Compare{Left: t.Expr, Op: queryir.Eq, Value: ir.String("")},
		}}, nil
	}
	return queryir.IsNull{Expr: t.Expr}, nil
}

func buildIsNull(_ Operator, t Target, _ string) (queryir.Predicate, error) {
	return queryir.IsNull{Expr: t.Expr}, nil
}

// buildAge compares a date with a cutoff measured back from the library
// clock's current date. Older and younger are complements on non-null dates.
func buildAge(op Operator, t Target, operand string) (queryir.Predicate, error) {
	n, err := count(operand)
	if err != nil {
		return nil, err
	}
	today := ir.NewDate(op.now())

	switch op.Code {
	case OlderThanYears:
		return queryir.Compare{Left: t.Expr, Op: queryir.Lt, Value: today.AddDate(-n, 0, 0)}, nil
	case YoungerThanYears:
		return queryir.Compare{Left: t.Expr, Op: queryir.GtOrEq, Value: today.AddDate(-n, 0, 0)}, nil
	default:
		return queryir.Compare{Left: t.Expr, Op: queryir.GtOrEq, Value: today.AddDate(0, 0, -n)}, nil
	}
}
