package schema

import (
	"fmt"
	"strings"
)

// FieldType is the semantic type of a field, fixed at registry build time.
// Operator applicability and operand coercion are keyed by it.
type FieldType int

const (
	TypeText FieldType = iota + 1
	TypeInteger
	TypeFloat
	TypeDate
	TypeBoolean
	TypeEnum
)

var fieldTypeNames = map[FieldType]string{
	TypeText:    "text",
	TypeInteger: "integer",
	TypeFloat:   "float",
	TypeDate:    "date",
	TypeBoolean: "boolean",
	TypeEnum:    "enum",
}

// String returns the lower-case type name used in schema descriptions.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType parses a type name as written in schema descriptions.
func ParseFieldType(s string) (FieldType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// RelKind says which side of a relationship holds the foreign key.
type RelKind int

const (
	// ManyToOne: the owning table holds Column pointing at the target id.
	ManyToOne RelKind = iota + 1
	// OneToMany: the target table holds Column pointing back at the owner id.
	OneToMany
)

// String returns the kind as written in schema descriptions.
func (k RelKind) String() string {
	switch k {
	case ManyToOne:
		return "many-to-one"
	case OneToMany:
		return "one-to-many"
	default:
		return fmt.Sprintf("RelKind(%d)", int(k))
	}
}

// ParseRelKind parses "many-to-one" / "one-to-many".
func ParseRelKind(s string) (RelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "many-to-one", "manytoone":
		return ManyToOne, nil
	case "one-to-many", "onetomany":
		return OneToMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship kind %q", s)
	}
}

// Description is the static schema description the registry is built from.
// It is produced by an external collaborator (see package compiler).
type Description struct {
	Tables []TableDescription
}

// TableDescription describes one table.
type TableDescription struct {
	ID            int
	Name          string
	IDColumn      string
	Fields        []FieldDescription
	Relationships []RelationshipDescription
	Tree          *TreeDescription  // nil for regular tables
	Scope         *ScopeDescription // nil for unscoped tables
}

// FieldDescription describes a physical column.
type FieldDescription struct {
	Name   string
	Column string // defaults to Name
	Type   FieldType
	Values []string // allowed values of enum fields
}

// RelationshipDescription describes an outgoing relationship.
type RelationshipDescription struct {
	Name   string
	Target int
	Kind   RelKind
	Column string // foreign key column, see RelKind
}

// TreeDescription names the hierarchy fields of a tree table.
type TreeDescription struct {
	Definition             string // field holding the tree definition id
	DefinitionItem         string // field holding the rank (definition item) id
	NodeNumber             string
	HighestChildNodeNumber string
	NameField              string // defaults to "name"
}

// ScopeDescription says how rows of a table belong to a collection.
// With Via empty, Field is a column of the table itself. Otherwise Via is a
// chain of many-to-one relationships and Field lives on the last target.
type ScopeDescription struct {
	Via   []string
	Field string
}

// Field is a registered physical column.
type Field struct {
	Name   string
	Column string
	Type   FieldType
	Values []string
}

// Relationship is a registered outgoing relationship.
type Relationship struct {
	Name   string
	Target *Table
	Kind   RelKind
	Column string
}

// Tree holds the hierarchy fields of a tree table.
type Tree struct {
	Definition             *Field
	DefinitionItem         *Field
	NodeNumber             *Field
	HighestChildNodeNumber *Field
	Name                   *Field
}

// Scope is a resolved tenant scope rule.
type Scope struct {
	Via   []*Relationship
	Field *Field
}
