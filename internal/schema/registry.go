package schema

import (
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/cases"

	"github.com/specify/storedq/internal/queryerr"
)

// RankTableSuffix is appended to a tree table's name to find the table
// holding its rank definitions (Taxon -> TaxonTreeDefItem).
const RankTableSuffix = "TreeDefItem"

// Table is a registered relational entity. Immutable after NewRegistry.
type Table struct {
	ID       int
	Name     string
	IDColumn string

	fields      []*Field
	fieldByName map[string]*Field
	rels        []*Relationship
	relByName   map[string]*Relationship
	tree        *Tree
	scope       *Scope
}

// Field returns the physical field with the exact given name.
func (t *Table) Field(name string) (*Field, bool) {
	f, ok := t.fieldByName[name]
	return f, ok
}

// Relationship returns the relationship with the exact given name.
func (t *Table) Relationship(name string) (*Relationship, bool) {
	r, ok := t.relByName[name]
	return r, ok
}

// Fields returns the fields in declaration order.
func (t *Table) Fields() []*Field { return t.fields }

// Relationships returns the relationships in declaration order.
func (t *Table) Relationships() []*Relationship { return t.rels }

// HasPhysicalField reports whether name is a column of the table.
// Tree rank names ("Family", "Order") are not.
func (t *Table) HasPhysicalField(name string) bool {
	_, ok := t.fieldByName[name]
	return ok
}

// MemberNames lists field names then relationship names, in declaration order.
func (t *Table) MemberNames() []string {
	names := make([]string, 0, len(t.fields)+len(t.rels))
	for _, f := range t.fields {
		names = append(names, f.Name)
	}
	for _, r := range t.rels {
		names = append(names, r.Name)
	}
	return names
}

// IsTree reports whether the table is hierarchical.
func (t *Table) IsTree() bool { return t.tree != nil }

// Tree returns the hierarchy fields of a tree table.
func (t *Table) Tree() (Tree, bool) {
	if t.tree == nil {
		return Tree{}, false
	}
	return *t.tree, true
}

// Scope returns the table's tenant scope rule.
func (t *Table) Scope() (Scope, bool) {
	if t.scope == nil {
		return Scope{}, false
	}
	return *t.scope, true
}

// Registry maps table ids and names to tables.
type Registry struct {
	tables []*Table // ordered by id
	byID   map[int]*Table
	byName map[string]*Table // keyed by case-folded name
}

// foldName case-folds a table name for lookups. Legacy callers mix case.
// A Caser is stateful, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// NewRegistry builds a registry from a description.
// The description must be consistent; see compiler.Validate for a
// diagnostic pass that reports every problem at once.
func NewRegistry(desc Description) (*Registry, error) {
	r := &Registry{
		byID:   make(map[int]*Table, len(desc.Tables)),
		byName: make(map[string]*Table, len(desc.Tables)),
	}

	// Pass 1: tables and fields
	for _, td := range desc.Tables {
		if td.Name == "" {
			return nil, fmt.Errorf("table %d has no name", td.ID)
		}
		if _, dup := r.byID[td.ID]; dup {
			return nil, fmt.Errorf("duplicate table id %d (%s)", td.ID, td.Name)
		}
		folded := foldName(td.Name)
		if _, dup := r.byName[folded]; dup {
			return nil, fmt.Errorf("duplicate table name %q", td.Name)
		}

		t := &Table{
			ID:          td.ID,
			Name:        td.Name,
			IDColumn:    td.IDColumn,
			fieldByName: make(map[string]*Field, len(td.Fields)),
			relByName:   make(map[string]*Relationship, len(td.Relationships)),
		}
		if t.IDColumn == "" {
			t.IDColumn = "id"
		}
		for _, fd := range td.Fields {
			if _, dup := t.fieldByName[fd.Name]; dup {
				return nil, fmt.Errorf("table %s: duplicate field %q", td.Name, fd.Name)
			}
			if _, ok := fieldTypeNames[fd.Type]; !ok {
				return nil, fmt.Errorf("table %s: field %q has invalid type %v", td.Name, fd.Name, fd.Type)
			}
			col := fd.Column
			if col == "" {
				col = fd.Name
			}
			f := &Field{Name: fd.Name, Column: col, Type: fd.Type, Values: fd.Values}
			t.fields = append(t.fields, f)
			t.fieldByName[f.Name] = f
		}

		r.tables = append(r.tables, t)
		r.byID[t.ID] = t
		r.byName[folded] = t
	}
	sort.Slice(r.tables, func(i, j int) bool { return r.tables[i].ID < r.tables[j].ID })

	// Pass 2: relationships, trees and scopes need every table registered
	for _, td := range desc.Tables {
		t := r.byID[td.ID]
		for _, rd := range td.Relationships {
			target, ok := r.byID[rd.Target]
			if !ok {
				return nil, fmt.Errorf("table %s: relationship %q targets unknown table %d", td.Name, rd.Name, rd.Target)
			}
			if _, dup := t.relByName[rd.Name]; dup {
				return nil, fmt.Errorf("table %s: duplicate relationship %q", td.Name, rd.Name)
			}
			if _, clash := t.fieldByName[rd.Name]; clash {
				return nil, fmt.Errorf("table %s: relationship %q shadows a field", td.Name, rd.Name)
			}
			if rd.Kind != ManyToOne && rd.Kind != OneToMany {
				return nil, fmt.Errorf("table %s: relationship %q has invalid kind", td.Name, rd.Name)
			}
			if rd.Column == "" {
				return nil, fmt.Errorf("table %s: relationship %q has no column", td.Name, rd.Name)
			}
			rel := &Relationship{Name: rd.Name, Target: target, Kind: rd.Kind, Column: rd.Column}
			t.rels = append(t.rels, rel)
			t.relByName[rel.Name] = rel
		}

		if td.Tree != nil {
			tree, err := buildTree(t, *td.Tree)
			if err != nil {
				return nil, err
			}
			t.tree = tree
		}
	}

	// Scopes walk relationships, so they come after every table has its own
	for _, td := range desc.Tables {
		if td.Scope == nil {
			continue
		}
		t := r.byID[td.ID]
		scope, err := buildScope(t, *td.Scope)
		if err != nil {
			return nil, err
		}
		t.scope = scope
	}

	// Rank tables are looked up lazily, but a tree without one is unusable
	for _, t := range r.tables {
		if t.IsTree() {
			if _, err := r.RankTable(t); err != nil {
				return nil, fmt.Errorf("tree table %s: %w", t.Name, err)
			}
		}
	}

	return r, nil
}

func buildTree(t *Table, td TreeDescription) (*Tree, error) {
	nameField := td.NameField
	if nameField == "" {
		nameField = "name"
	}
	lookup := func(role, name string) (*Field, error) {
		f, ok := t.fieldByName[name]
		if !ok {
			return nil, fmt.Errorf("tree table %s: %s field %q is not a field", t.Name, role, name)
		}
		return f, nil
	}

	var err error
	tree := &Tree{}
	if tree.Definition, err = lookup("definition", td.Definition); err != nil {
		return nil, err
	}
	if tree.DefinitionItem, err = lookup("definitionItem", td.DefinitionItem); err != nil {
		return nil, err
	}
	if tree.NodeNumber, err = lookup("nodeNumber", td.NodeNumber); err != nil {
		return nil, err
	}
	if tree.HighestChildNodeNumber, err = lookup("highestChildNodeNumber", td.HighestChildNodeNumber); err != nil {
		return nil, err
	}
	if tree.Name, err = lookup("name", nameField); err != nil {
		return nil, err
	}
	return tree, nil
}

func buildScope(t *Table, sd ScopeDescription) (*Scope, error) {
	scope := &Scope{}
	node := t
	for _, name := range sd.Via {
		rel, ok := node.relByName[name]
		if !ok {
			return nil, fmt.Errorf("table %s: scope relationship %q not found on %s", t.Name, name, node.Name)
		}
		if rel.Kind != ManyToOne {
			return nil, fmt.Errorf("table %s: scope relationship %q must be many-to-one", t.Name, name)
		}
		scope.Via = append(scope.Via, rel)
		node = rel.Target
	}
	f, ok := node.fieldByName[sd.Field]
	if !ok {
		return nil, fmt.Errorf("table %s: scope field %q not found on %s", t.Name, sd.Field, node.Name)
	}
	scope.Field = f
	return scope, nil
}

// TableByID returns the table registered under id.
func (r *Registry) TableByID(id int) (*Table, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, queryerr.NewUnknownTableError(strconv.Itoa(id))
	}
	return t, nil
}

// TableByName returns the table with the given name, ignoring case.
func (r *Registry) TableByName(name string) (*Table, error) {
	t, ok := r.byName[foldName(name)]
	if !ok {
		return nil, queryerr.NewUnknownTableError(name)
	}
	return t, nil
}

// Tables returns all tables ordered by id.
func (r *Registry) Tables() []*Table {
	return r.tables
}

// RankTable returns the rank definition table of a tree table
// (<TableName>TreeDefItem). It must have an id column and a name field.
func (r *Registry) RankTable(t *Table) (*Table, error) {
	if !t.IsTree() {
		return nil, fmt.Errorf("table %s is not a tree", t.Name)
	}
	rank, err := r.TableByName(t.Name + RankTableSuffix)
	if err != nil {
		return nil, err
	}
	if _, ok := rank.Field(t.tree.Name.Name); !ok {
		return nil, queryerr.NewUnknownFieldError(rank.Name, t.tree.Name.Name)
	}
	return rank, nil
}

// SameName reports whether two names are equal ignoring case, using the
// same folding as table lookups.
func SameName(a, b string) bool {
	return foldName(a) == foldName(b)
}
