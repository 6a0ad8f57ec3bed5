// Package schema holds the read-only schema registry of the collections
// database: tables, their typed fields, relationships between tables, the
// hierarchy ("tree") columns of tree tables and each table's tenant scope.
//
// A Registry is built once from a Description and never mutated afterwards,
// so it is safe for any number of concurrent readers. There is no global
// registry: resolvers and assemblers receive the *Registry they work with,
// which lets tests run side by side with different fixture schemas.
//
// Every lookup is an explicit map access returning either a typed result or
// a queryerr error; nothing is resolved by reflection.
package schema
