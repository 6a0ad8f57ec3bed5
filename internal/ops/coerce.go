package ops

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/schema"
)

// Accepted date operand layouts. The second is what form fields submit.
var dateLayouts = []string{ir.DateLayout, "01/02/2006"}

// Coerce converts an operand to a value of the target's type.
// Text values are returned as given; enum values are returned as the
// declared member they match ignoring case.
func Coerce(t Target, operand string) (ir.Value, error) {
	s := strings.TrimSpace(operand)
	fail := func(cause error) (ir.Value, error) {
		return nil, queryerr.NewOperandTypeError(operand, t.Type.String(), cause)
	}

	switch t.Type {
	case schema.TypeText:
		return ir.String(operand), nil

	case schema.TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fail(err)
		}
		return ir.Int(n), nil

	case schema.TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fail(errors.New("not a finite number"))
		}
		return ir.Float(f), nil

	case schema.TypeDate:
		for _, layout := range dateLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return ir.NewDate(tm), nil
			}
		}
		return fail(fmt.Errorf("want %s or MM/DD/YYYY", ir.DateLayout))

	case schema.TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y", "1":
			return ir.Bool(true), nil
		case "false", "f", "no", "n", "0":
			return ir.Bool(false), nil
		}
		return fail(errors.New("not a boolean"))

	case schema.TypeEnum:
		for _, member := range t.Values {
			if strings.EqualFold(member, s) {
				return ir.String(member), nil
			}
		}
		return fail(fmt.Errorf("not one of %s", strings.Join(t.Values, ", ")))

	default:
		return fail(fmt.Errorf("unknown field type %d", t.Type))
	}
}

// splitList splits a comma-separated operand, dropping blank items.
func splitList(operand string) []string {
	var items []string
	for _, item := range strings.Split(operand, ",") {
		if strings.TrimSpace(item) != "" {
			items = append(items, strings.TrimSpace(item))
		}
	}
	return items
}

// count parses a non-negative integer operand of the age operators.
func count(operand string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(operand))
	if err != nil {
		return 0, queryerr.NewOperandTypeError(operand, "integer", err)
	}
	if n < 0 {
		return 0, queryerr.NewOperandTypeError(operand, "integer", errors.New("must not be negative"))
	}
	return n, nil
}
