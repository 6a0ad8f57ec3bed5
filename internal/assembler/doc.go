// Package assembler builds relational queries from resolved field
// specifications.
//
// Each specification joins from the shared root alias along its own path,
// one fresh alias per hop, so independent specifications never chain off
// each other's joins. Fields on tree tables that name a rank instead of a
// column go through the ancestor strategy in tree.go. Every query must be
// scoped to a collection before Select will produce it.
package assembler
