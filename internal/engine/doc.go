// Package engine runs stored queries end to end.
//
// A run resolves every field descriptor of the request (failing the whole
// run on the first bad one), assembles a single query rooted at the
// requested table and scoped to the requested collection, compiles it for
// the store's dialect and executes two statements through a Querier:
//
//  1. a count of distinct root ids over the whole scoped result
//  2. one keyset page: root id greater than the cursor, ordered by root
//     id, limited to the page size
//
// Pagination is by keyset rather than offset so a page stays stable while
// rows are added ahead of the cursor.
//
// The engine keeps no per-run state. Registry, operator library and
// compiler are shared read-only; the query under construction and its alias
// arena belong to one run. Execution is the only blocking call. Its
// failures are reported as EXECUTION_FAILED and not retried.
package engine
