package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	IDs      []int64 // Returned ids for context
	SQL      string  // Page SQL for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nReturned ids: %v\n", e.IDs)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "SQL: %s\n", e.SQL)
	}
	return buf.String()
}

func (r *Result) failure(typ, expected, actual string) *AssertionError {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, IDs: r.IDs, SQL: r.SQL}
}

// CheckExpectation compares a result with the scenario's expectation.
// Returns one message per mismatch.
func CheckExpectation(result *Result, expect Expectation) []string {
	var errs []string
	add := func(err error) { errs = append(errs, err.Error()) }

	if expect.Error != "" {
		if result.ErrorCode != expect.Error {
			actual := "query succeeded"
			if result.ErrorCode != "" {
				actual = result.ErrorCode
			}
			add(result.failure("error", expect.Error, actual))
		}
		return errs
	}
	if result.ErrorCode != "" {
		// Already reported by execute.
		return errs
	}

	if expect.IDs != nil && !slices.Equal(*expect.IDs, result.IDs) {
		add(result.failure("ids", fmt.Sprint(*expect.IDs), fmt.Sprint(result.IDs)))
	}
	if expect.Total != nil && *expect.Total != result.Total {
		add(result.failure("total", fmt.Sprint(*expect.Total), fmt.Sprint(result.Total)))
	}
	if expect.HasMore != nil && *expect.HasMore != result.HasMore {
		add(result.failure("hasMore", fmt.Sprint(*expect.HasMore), fmt.Sprint(result.HasMore)))
	}
	return errs
}

// assertRow checks that the row with the given id holds the expected
// values (subset match by column label).
func assertRow(result *Result, assertion Assertion) error {
	row, ok := result.row(assertion.ID)
	if !ok {
		return result.failure(AssertRow, fmt.Sprintf("row %d", assertion.ID), "row not returned")
	}
	for label, want := range assertion.Values {
		got, exists := row[label]
		if !exists {
			return result.failure(AssertRow,
				fmt.Sprintf("row %d has column %q", assertion.ID, label),
				fmt.Sprintf("columns %v", sortedKeys(row)))
		}
		if !cellEqual(want, got) {
			return result.failure(AssertRow,
				fmt.Sprintf("row %d %s = %v", assertion.ID, label, want),
				fmt.Sprintf("%v (%T)", got, got))
		}
	}
	return nil
}

func assertColumns(result *Result, assertion Assertion) error {
	if !slices.Equal(assertion.Labels, result.Columns) {
		return result.failure(AssertColumns, fmt.Sprint(assertion.Labels), fmt.Sprint(result.Columns))
	}
	return nil
}

func assertSQL(result *Result, assertion Assertion) error {
	contains := strings.Contains(result.SQL, assertion.Text)
	switch {
	case assertion.Type == AssertSQLContains && !contains:
		return result.failure(assertion.Type, fmt.Sprintf("SQL containing %q", assertion.Text), "not found")
	case assertion.Type == AssertSQLNotContains && contains:
		return result.failure(assertion.Type, fmt.Sprintf("SQL without %q", assertion.Text), "found")
	}
	return nil
}

// cellEqual compares an expected YAML value with a value read from the
// store. YAML integers decode as int, the store returns int64; SQLite
// stores booleans as integers.
func cellEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case int:
		return cellEqual(int64(exp), actual)
	case int64:
		switch a := actual.(type) {
		case int64:
			return exp == a
		case float64:
			return float64(exp) == a
		}
		return false
	case float64:
		switch a := actual.(type) {
		case float64:
			return exp == a
		case int64:
			return exp == float64(a)
		}
		return false
	case bool:
		switch a := actual.(type) {
		case bool:
			return exp == a
		case int64:
			return exp == (a != 0)
		}
		return false
	}

	// Fallback to DeepEqual for complex types
	return reflect.DeepEqual(expected, actual)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRow:
			err = assertRow(result, assertion)
		case AssertColumns:
			err = assertColumns(result, assertion)
		case AssertSQLContains, AssertSQLNotContains:
			err = assertSQL(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
