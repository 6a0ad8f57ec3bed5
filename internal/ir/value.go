package ir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Value is a sealed interface representing a typed operand value.
// Only Null, String, Int, Float, Bool, Date and List implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents SQL NULL.
type Null struct{}

func (Null) irValue() {}

// String is a text value.
type String string

func (String) irValue() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) irValue() {}

// Float is a floating point value.
// Floats may appear in predicates but never in canonical JSON.
type Float float64

func (Float) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Date is a calendar date (no time, no zone).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) irValue() {}

// DateLayout is the ISO layout used for dates in text form.
const DateLayout = "2006-01-02"

// NewDate builds a Date from a time, discarding the clock part.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// AddDate mirrors time.Time.AddDate on calendar dates.
func (d Date) AddDate(years, months, days int) Date {
	return NewDate(d.Time().AddDate(years, months, days))
}

// List is an ordered list of values (operands of IN).
type List []Value

func (List) irValue() {}

// Object maps string keys to values. Only used for canonical encoding.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a different order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// Format renders a value for logs and CLI output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "NULL"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Date:
		return val.String()
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
