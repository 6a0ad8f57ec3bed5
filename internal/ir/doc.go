// Package ir provides the typed values shared by the stored-query packages.
//
// Operands arrive as strings on the wire. The operator library coerces them
// into ir values once, and every later stage (query IR, SQL compilation,
// fingerprints) works on the typed form only. ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface; only this package implements it
//   - Dates are calendar dates without time zone
//   - Canonical JSON (used for fingerprints) forbids floats and null
package ir
