package compiler

import (
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/specify/storedq/internal/schema"
)

//go:embed schema.cue
var definitions string

// CompileSchema turns a loaded CUE value into a schema description. Tables
// live under the top-level "table" struct, keyed by table name:
//
//	table: CollectionObject: {
//		id:       1
//		idColumn: "collectionobjectid"
//		fields: {
//			catalogNumber: "text"
//			catalogedDate: {type: "date", column: "catalogeddate"}
//		}
//		relationships: {
//			collectingEvent: {target: "CollectingEvent", column: "collectingeventid"}
//		}
//		scope: field: "collectionMemberId"
//	}
//
// Each table is checked against the #Table definition first, so shape
// errors carry their source position. Semantic checks are left to Validate
// and schema.NewRegistry.
func CompileSchema(v cue.Value) (schema.Description, error) {
	if err := v.Err(); err != nil {
		return schema.Description{}, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return schema.Description{}, &CompileError{
			Field:   "table",
			Message: "no tables defined",
			Pos:     v.Pos(),
		}
	}

	def := v.Context().CompileString(definitions).LookupPath(cue.ParsePath("#Table"))
	if err := def.Err(); err != nil {
		return schema.Description{}, fmt.Errorf("compile table definition: %w", err)
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return schema.Description{}, formatCUEError(err)
	}

	var desc schema.Description
	var targets []pendingTarget
	for iter.Next() {
		td, pending, err := compileTable(iter.Label(), iter.Value(), def)
		if err != nil {
			return schema.Description{}, err
		}
		for i := range pending {
			pending[i].table = len(desc.Tables)
		}
		targets = append(targets, pending...)
		desc.Tables = append(desc.Tables, td)
	}

	if err := resolveTargets(&desc, targets); err != nil {
		return schema.Description{}, err
	}
	return desc, nil
}

// pendingTarget is a relationship whose target was given by table name.
type pendingTarget struct {
	table, rel int
	name       string
	pos        token.Pos
}

func compileTable(name string, raw, def cue.Value) (schema.TableDescription, []pendingTarget, error) {
	v := raw.Unify(def)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schema.TableDescription{}, nil, formatCUEError(err)
	}

	td := schema.TableDescription{Name: name}

	id, err := v.LookupPath(cue.ParsePath("id")).Int64()
	if err != nil {
		return td, nil, formatCUEError(err)
	}
	td.ID = int(id)

	if td.IDColumn, err = optionalString(v, "idColumn"); err != nil {
		return td, nil, err
	}

	if td.Fields, err = compileFields(v); err != nil {
		return td, nil, err
	}

	var pending []pendingTarget
	if td.Relationships, pending, err = compileRelationships(v); err != nil {
		return td, nil, err
	}

	if treeVal := v.LookupPath(cue.ParsePath("tree")); treeVal.Exists() {
		tree := &schema.TreeDescription{}
		for _, f := range []struct {
			label string
			dst   *string
		}{
			{"definition", &tree.Definition},
			{"definitionItem", &tree.DefinitionItem},
			{"nodeNumber", &tree.NodeNumber},
			{"highestChildNodeNumber", &tree.HighestChildNodeNumber},
			{"nameField", &tree.NameField},
		} {
			if *f.dst, err = optionalString(treeVal, f.label); err != nil {
				return td, nil, err
			}
		}
		td.Tree = tree
	}

	if scopeVal := v.LookupPath(cue.ParsePath("scope")); scopeVal.Exists() {
		scope := &schema.ScopeDescription{}
		if scope.Field, err = optionalString(scopeVal, "field"); err != nil {
			return td, nil, err
		}
		if scope.Via, err = stringList(scopeVal.LookupPath(cue.ParsePath("via"))); err != nil {
			return td, nil, err
		}
		td.Scope = scope
	}

	return td, pending, nil
}

// compileFields reads fields in declaration order. A field is either a bare
// type name or a struct with type, column and enum values.
func compileFields(v cue.Value) ([]schema.FieldDescription, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.FieldDescription
	for iter.Next() {
		fv := iter.Value()
		fd := schema.FieldDescription{Name: iter.Label()}

		typeName, err := fv.String()
		if err != nil {
			if typeName, err = optionalString(fv, "type"); err != nil {
				return nil, err
			}
			if fd.Column, err = optionalString(fv, "column"); err != nil {
				return nil, err
			}
			if fd.Values, err = stringList(fv.LookupPath(cue.ParsePath("values"))); err != nil {
				return nil, err
			}
		}

		if fd.Type, err = schema.ParseFieldType(typeName); err != nil {
			return nil, &CompileError{Field: "fields." + fd.Name, Message: err.Error(), Pos: fv.Pos()}
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

func compileRelationships(v cue.Value) ([]schema.RelationshipDescription, []pendingTarget, error) {
	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if !relsVal.Exists() {
		return nil, nil, nil
	}
	iter, err := relsVal.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	var rels []schema.RelationshipDescription
	var pending []pendingTarget
	for iter.Next() {
		rv := iter.Value()
		rd := schema.RelationshipDescription{Name: iter.Label()}

		kind, err := optionalString(rv, "kind")
		if err != nil {
			return nil, nil, err
		}
		if rd.Kind, err = schema.ParseRelKind(kind); err != nil {
			return nil, nil, &CompileError{Field: "relationships." + rd.Name, Message: err.Error(), Pos: rv.Pos()}
		}
		if rd.Column, err = optionalString(rv, "column"); err != nil {
			return nil, nil, err
		}

		target := rv.LookupPath(cue.ParsePath("target"))
		if id, err := target.Int64(); err == nil {
			rd.Target = int(id)
		} else {
			name, err := target.String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			pending = append(pending, pendingTarget{rel: len(rels), name: name, pos: target.Pos()})
		}
		rels = append(rels, rd)
	}
	return rels, pending, nil
}

// resolveTargets fills in relationship targets given by table name.
func resolveTargets(desc *schema.Description, pending []pendingTarget) error {
	ids := make(map[string]int, len(desc.Tables))
	for _, t := range desc.Tables {
		ids[t.Name] = t.ID
	}

	for _, p := range pending {
		t := &desc.Tables[p.table]
		rel := &t.Relationships[p.rel]
		id, ok := ids[p.name]
		if !ok {
			return &CompileError{
				Field:   fmt.Sprintf("table.%s.relationships.%s", t.Name, rel.Name),
				Message: fmt.Sprintf("unknown target table %q (known: %v)", p.name, sortedNames(ids)),
				Pos:     p.pos,
			}
		}
		rel.Target = id
	}
	return nil
}

func sortedNames(ids map[string]int) []string {
	names := make([]string, 0, len(ids))
	for n := range ids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func optionalString(v cue.Value, label string) (string, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
