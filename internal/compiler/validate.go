package compiler

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/specify/storedq/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrNoTables          = "E100" // description defines no tables
	ErrTableIdentity     = "E101" // table without name or with a non-positive id
	ErrDuplicateTableID  = "E102" // two tables share an id
	ErrDuplicateTable    = "E103" // two tables share a name, ignoring case
	ErrInvalidFieldType  = "E104" // unknown field type, or enum without values
	ErrDuplicateMember   = "E105" // duplicate field or relationship name
	ErrUnknownTarget     = "E106" // relationship targets an unknown table
	ErrInvalidRelation   = "E107" // bad relationship kind or missing column
	ErrInvalidTree       = "E108" // tree field missing or rank table missing
	ErrUnresolvedScope   = "E109" // scope chain or scope field does not resolve
	ErrAmbiguousIDColumn = "E110" // id column also declared as a field column
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is a non-empty list of validation problems.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

var fold = cases.Fold()

// Validate checks a schema description and returns every problem found
// (it does not fail fast). A description that validates cleanly builds a
// registry.
func Validate(desc schema.Description) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if len(desc.Tables) == 0 {
		add(ErrNoTables, "table", "at least one table is required")
		return errs
	}

	byID := make(map[int]*schema.TableDescription, len(desc.Tables))
	byName := make(map[string]*schema.TableDescription, len(desc.Tables))
	for i := range desc.Tables {
		t := &desc.Tables[i]
		path := fmt.Sprintf("table[%d]", i)

		if strings.TrimSpace(t.Name) == "" {
			add(ErrTableIdentity, path+".name", "table name is required")
		}
		if t.ID <= 0 {
			add(ErrTableIdentity, path+".id", "table %q needs a positive id, got %d", t.Name, t.ID)
		}
		if prev, ok := byID[t.ID]; ok {
			add(ErrDuplicateTableID, path+".id", "tables %q and %q share id %d", prev.Name, t.Name, t.ID)
		} else {
			byID[t.ID] = t
		}
		key := fold.String(t.Name)
		if prev, ok := byName[key]; ok && t.Name != "" {
			add(ErrDuplicateTable, path+".name", "table %q duplicates %q", t.Name, prev.Name)
		} else {
			byName[key] = t
		}
	}

	for i := range desc.Tables {
		t := &desc.Tables[i]
		errs = append(errs, validateTable(t, byID, byName)...)
	}
	return errs
}

func validateTable(t *schema.TableDescription, byID map[int]*schema.TableDescription, byName map[string]*schema.TableDescription) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: t.Name + "." + field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	idColumn := t.IDColumn
	if idColumn == "" {
		idColumn = "id"
	}

	members := map[string]bool{}
	fields := map[string]schema.FieldDescription{}
	for _, f := range t.Fields {
		if members[f.Name] {
			add(ErrDuplicateMember, "fields."+f.Name, "duplicate member name %q", f.Name)
		}
		members[f.Name] = true
		fields[f.Name] = f

		if _, ok := typeNames[f.Type]; !ok {
			add(ErrInvalidFieldType, "fields."+f.Name, "invalid type %v for field %q", f.Type, f.Name)
		}
		if f.Type == schema.TypeEnum && len(f.Values) == 0 {
			add(ErrInvalidFieldType, "fields."+f.Name, "enum field %q has no values", f.Name)
		}
		column := f.Column
		if column == "" {
			column = f.Name
		}
		if column == idColumn {
			add(ErrAmbiguousIDColumn, "fields."+f.Name, "field %q uses the id column %q", f.Name, idColumn)
		}
	}

	rels := map[string]schema.RelationshipDescription{}
	for _, r := range t.Relationships {
		if members[r.Name] {
			add(ErrDuplicateMember, "relationships."+r.Name, "duplicate member name %q", r.Name)
		}
		members[r.Name] = true
		rels[r.Name] = r

		if _, ok := byID[r.Target]; !ok {
			add(ErrUnknownTarget, "relationships."+r.Name, "target table %d is not defined", r.Target)
		}
		if r.Kind != schema.ManyToOne && r.Kind != schema.OneToMany {
			add(ErrInvalidRelation, "relationships."+r.Name, "invalid relationship kind %v", r.Kind)
		}
		if strings.TrimSpace(r.Column) == "" {
			add(ErrInvalidRelation, "relationships."+r.Name, "relationship %q needs a column", r.Name)
		}
	}

	if tree := t.Tree; tree != nil {
		nameField := tree.NameField
		if nameField == "" {
			nameField = "name"
		}
		for _, f := range [][2]string{
			{"definition", tree.Definition},
			{"definitionItem", tree.DefinitionItem},
			{"nodeNumber", tree.NodeNumber},
			{"highestChildNodeNumber", tree.HighestChildNodeNumber},
			{"nameField", nameField},
		} {
			if _, ok := fields[f[1]]; !ok {
				add(ErrInvalidTree, "tree."+f[0], "tree field %q is not a field of %s", f[1], t.Name)
			}
		}
		rankName := t.Name + schema.RankTableSuffix
		rank, ok := byName[fold.String(rankName)]
		switch {
		case !ok:
			add(ErrInvalidTree, "tree", "tree table %s has no rank table %s", t.Name, rankName)
		case !hasField(rank, nameField):
			add(ErrInvalidTree, "tree", "rank table %s has no field %q", rank.Name, nameField)
		}
	}

	if scope := t.Scope; scope != nil {
		owner := t
		ownerRels := rels
		for i, via := range scope.Via {
			r, ok := ownerRels[via]
			if !ok || r.Kind != schema.ManyToOne {
				add(ErrUnresolvedScope, fmt.Sprintf("scope.via[%d]", i), "%q is not a many-to-one relationship of %s", via, owner.Name)
				owner = nil
				break
			}
			if owner = byID[r.Target]; owner == nil {
				break
			}
			ownerRels = map[string]schema.RelationshipDescription{}
			for _, rr := range owner.Relationships {
				ownerRels[rr.Name] = rr
			}
		}
		if owner != nil && !hasField(owner, scope.Field) {
			add(ErrUnresolvedScope, "scope.field", "scope field %q is not a field of %s", scope.Field, owner.Name)
		}
	}

	return errs
}

var typeNames = map[schema.FieldType]bool{
	schema.TypeText: true, schema.TypeInteger: true, schema.TypeFloat: true,
	schema.TypeDate: true, schema.TypeBoolean: true, schema.TypeEnum: true,
}

func hasField(t *schema.TableDescription, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
