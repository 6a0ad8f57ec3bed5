// Package queryerr defines the error taxonomy of the stored-query core.
//
// Every failure that reaches a caller carries one stable Code so client UIs
// can react specifically (re-prompt for an operand versus report a stale
// saved query). Errors are created by the package that detects them and
// travel up unchanged, possibly wrapped with fmt.Errorf("...: %w").
package queryerr

import (
	"errors"
	"fmt"
)

// Code categorizes stored-query errors. Values are part of the API contract.
type Code string

const (
	// ErrCodeUnknownTable indicates a table id or name is not registered.
	ErrCodeUnknownTable Code = "UNKNOWN_TABLE"

	// ErrCodeUnknownField indicates a field or relationship is not on its table.
	ErrCodeUnknownField Code = "UNKNOWN_FIELD"

	// ErrCodeUnknownOperator indicates an operator code outside the library.
	ErrCodeUnknownOperator Code = "UNKNOWN_OPERATOR"

	// ErrCodeUnsupportedOperator indicates an operator that does not apply
	// to the field's semantic type.
	ErrCodeUnsupportedOperator Code = "UNSUPPORTED_OPERATOR"

	// ErrCodeOperandType indicates an operand that cannot be coerced.
	ErrCodeOperandType Code = "OPERAND_TYPE"

	// ErrCodeMalformedStringID indicates a stringId that does not parse.
	ErrCodeMalformedStringID Code = "MALFORMED_STRING_ID"

	// ErrCodeAmbiguousJoinField indicates relationship inference found
	// more than one candidate.
	ErrCodeAmbiguousJoinField Code = "AMBIGUOUS_JOIN_FIELD"

	// ErrCodeMissingJoinField indicates relationship inference found no
	// candidate, or the named relationship does not lead to the path table.
	ErrCodeMissingJoinField Code = "MISSING_JOIN_FIELD"

	// ErrCodeInvalidDatePart indicates a date-part suffix on a non-date field.
	ErrCodeInvalidDatePart Code = "INVALID_DATE_PART"

	// ErrCodeRootMismatch indicates a field rooted at another table than the query.
	ErrCodeRootMismatch Code = "ROOT_MISMATCH"

	// ErrCodeUnscopedQuery indicates a query without a tenant scope filter.
	ErrCodeUnscopedQuery Code = "UNSCOPED_QUERY"

	// ErrCodeExecutionFailed indicates the data store failed to run a query.
	ErrCodeExecutionFailed Code = "EXECUTION_FAILED"

	// ErrCodeInternal is reported for errors that carry no code.
	ErrCodeInternal Code = "INTERNAL"
)

// Error is the single error type of the stored-query core.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Table names the table involved, when there is one.
	Table string

	// Field names the field, relationship or stringId involved.
	Field string

	// Details contains additional context (related tables, operand, ...).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Table != "" && e.Field != "":
		msg += fmt.Sprintf(" (table=%s, field=%s)", e.Table, e.Field)
	case e.Table != "":
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	case e.Field != "":
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
// Returns ErrCodeInternal for errors outside the taxonomy and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsUnknownTable returns true if err is an UNKNOWN_TABLE error.
func IsUnknownTable(err error) bool { return Is(err, ErrCodeUnknownTable) }

// IsUnknownOperator returns true if err is an UNKNOWN_OPERATOR error.
func IsUnknownOperator(err error) bool { return Is(err, ErrCodeUnknownOperator) }

// IsOperandType returns true if err is an OPERAND_TYPE error.
func IsOperandType(err error) bool { return Is(err, ErrCodeOperandType) }

// IsMalformedStringID returns true if err is a MALFORMED_STRING_ID error.
func IsMalformedStringID(err error) bool { return Is(err, ErrCodeMalformedStringID) }

// IsAmbiguousJoinField returns true if err is an AMBIGUOUS_JOIN_FIELD error.
func IsAmbiguousJoinField(err error) bool { return Is(err, ErrCodeAmbiguousJoinField) }

// IsMissingJoinField returns true if err is a MISSING_JOIN_FIELD error.
func IsMissingJoinField(err error) bool { return Is(err, ErrCodeMissingJoinField) }

// IsExecutionFailed returns true if err is an EXECUTION_FAILED error.
func IsExecutionFailed(err error) bool { return Is(err, ErrCodeExecutionFailed) }

// NewUnknownTableError reports an unregistered table id or name.
func NewUnknownTableError(ref string) *Error {
	return &Error{
		Code:    ErrCodeUnknownTable,
		Message: fmt.Sprintf("no table registered as %q", ref),
		Table:   ref,
	}
}

// NewUnknownFieldError reports a field or relationship missing from table.
func NewUnknownFieldError(table, field string) *Error {
	return &Error{
		Code:    ErrCodeUnknownField,
		Message: fmt.Sprintf("table %s has no field %q", table, field),
		Table:   table,
		Field:   field,
	}
}

// NewUnknownOperatorError reports an operator code outside the library.
func NewUnknownOperatorError(code int) *Error {
	return &Error{
		Code:    ErrCodeUnknownOperator,
		Message: fmt.Sprintf("unknown operator code %d", code),
		Details: map[string]string{"operator": fmt.Sprintf("%d", code)},
	}
}

// NewUnsupportedOperatorError reports an operator not defined for a field type.
func NewUnsupportedOperatorError(operator, fieldType string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedOperator,
		Message: fmt.Sprintf("operator %s does not apply to %s fields", operator, fieldType),
		Details: map[string]string{"operator": operator, "type": fieldType},
	}
}

// NewOperandTypeError reports an operand that cannot be read as fieldType.
func NewOperandTypeError(operand, fieldType string, cause error) *Error {
	return &Error{
		Code:    ErrCodeOperandType,
		Message: fmt.Sprintf("operand %q is not a valid %s", operand, fieldType),
		Details: map[string]string{"operand": operand, "type": fieldType},
		Err:     cause,
	}
}

// NewMalformedStringIDError reports a stringId that does not parse.
func NewMalformedStringIDError(stringID, reason string) *Error {
	return &Error{
		Code:    ErrCodeMalformedStringID,
		Message: reason,
		Field:   stringID,
	}
}

// NewAmbiguousJoinFieldError reports several relationship candidates.
func NewAmbiguousJoinFieldError(owner, target string, candidates []string) *Error {
	return &Error{
		Code:    ErrCodeAmbiguousJoinField,
		Message: fmt.Sprintf("%d fields of %s match joined table %s", len(candidates), owner, target),
		Table:   owner,
		Details: map[string]string{"target": target, "candidates": fmt.Sprintf("%v", candidates)},
	}
}

// NewMissingJoinFieldError reports that no relationship joins owner to target.
func NewMissingJoinFieldError(owner, target, reason string) *Error {
	return &Error{
		Code:    ErrCodeMissingJoinField,
		Message: fmt.Sprintf("cannot join %s to %s: %s", owner, target, reason),
		Table:   owner,
		Details: map[string]string{"target": target},
	}
}

// NewInvalidDatePartError reports a date part requested on a non-date field.
func NewInvalidDatePartError(table, field, part string) *Error {
	return &Error{
		Code:    ErrCodeInvalidDatePart,
		Message: fmt.Sprintf("date part %s requires a date field", part),
		Table:   table,
		Field:   field,
	}
}

// NewRootMismatchError reports a field rooted at a different table.
func NewRootMismatchError(stringID string, want, got int) *Error {
	return &Error{
		Code:    ErrCodeRootMismatch,
		Message: fmt.Sprintf("field is rooted at table %d, query is rooted at %d", got, want),
		Field:   stringID,
	}
}

// NewUnscopedQueryError reports a query that cannot carry a tenant filter.
func NewUnscopedQueryError(table, reason string) *Error {
	return &Error{
		Code:    ErrCodeUnscopedQuery,
		Message: reason,
		Table:   table,
	}
}

// NewExecutionError wraps a data-store failure, keeping the original cause.
func NewExecutionError(stage string, cause error) *Error {
	return &Error{
		Code:    ErrCodeExecutionFailed,
		Message: fmt.Sprintf("%s failed", stage),
		Err:     cause,
	}
}
