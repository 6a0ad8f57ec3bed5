// Package queryir provides the relational intermediate representation (IR)
// produced by the query assembler and consumed by the SQL compiler.
//
// The IR is the abstraction boundary between stored-query semantics and a
// concrete SQL dialect:
//
//	[field specifications] → [assembler] → [Query IR] → [querysql: SQLite | Postgres]
//
// SEALED INTERFACES:
//
// Expr and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// over them exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	    // column <op> ?
//	case Not:
//	    // NOT (...)
//	default:
//	    // impossible
//	}
//
// VALUES:
//
// Literal operands are ir.Value. They are always bound as parameters and
// never interpolated into SQL text. Identifiers (table names, columns,
// aliases) come only from the schema registry and the assembler's alias
// arena, never from user input.
//
// ORDERING:
//
// A Select is always ordered by the root table's id column. The compiler
// adds this ordering unconditionally; keyset pagination (After) depends on it.
package queryir
