// Package fieldspec resolves saved-query field descriptors against the
// schema registry.
//
// A descriptor names its field with a stringId:
//
//	1,63-preparations,65.preptype.name
//	│ │               │  │        └ field (or tree rank, or date field with NumericDay|Month|Year)
//	│ │               │  └ terminal table name
//	│ │               └ hop to table 65; relationship name inferred
//	│ └ hop to table 63 through relationship "preparations"
//	└ root table id
//
// Resolution is pure: it only reads the registry. A descriptor either
// resolves completely or fails with one coded error.
package fieldspec
