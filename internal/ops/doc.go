// Package ops is the operator library: it maps stored-query operator codes
// to relational predicates over a field expression.
//
// Codes 0-14 are the codes saved queries have always used. Codes 15-21 add
// negative equality, prefix/suffix matching, null tests and age filters
// relative to the library's clock.
//
// A Library is immutable after construction and safe for concurrent use.
package ops
