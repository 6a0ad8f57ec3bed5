package fieldspec

import (
	"regexp"
	"sort"

	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/schema"
)

// Descriptor is the wire form of one saved-query field.
type Descriptor struct {
	StringID     string `json:"stringId" yaml:"stringId"`
	OperatorCode int    `json:"operatorCode" yaml:"operatorCode"`
	StartValue   string `json:"startValue" yaml:"startValue"`
	IsNot        bool   `json:"isNot" yaml:"isNot"`
	IsDisplay    bool   `json:"isDisplay" yaml:"isDisplay"`
	ID           int64  `json:"id" yaml:"id"`
}

// Hop is one resolved step of a join path.
type Hop struct {
	Relationship *schema.Relationship
	Table        *schema.Table
}

// Spec is a resolved field specification. It is built once per descriptor
// and read by the assembler; nothing mutates it.
type Spec struct {
	StringID     string
	FieldName    string       // a physical field, or a rank name on a tree table
	DatePart     queryir.Part // zero when no date part is requested
	RootTable    *schema.Table
	JoinPath     []Hop
	OperatorCode int
	Operand      string // empty means join/project only
	Negate       bool
	Display      bool
	SourceID     int64
}

// Table returns the terminal table of the join path.
func (s Spec) Table() *schema.Table {
	if len(s.JoinPath) == 0 {
		return s.RootTable
	}
	return s.JoinPath[len(s.JoinPath)-1].Table
}

// IsRank reports whether the field names a tree rank rather than a column
// or a relationship.
func (s Spec) IsRank() bool {
	t := s.Table()
	if !t.IsTree() || t.HasPhysicalField(s.FieldName) {
		return false
	}
	_, isRel := t.Relationship(s.FieldName)
	return !isRel
}

// datePartPattern matches a date field suffixed with the part to extract.
var datePartPattern = regexp.MustCompile(`^(.*)Numeric(Day|Month|Year)$`)

var parts = map[string]queryir.Part{"Day": queryir.Day, "Month": queryir.Month, "Year": queryir.Year}

// Resolve turns a descriptor into a Spec. A non-nil override replaces the
// descriptor's StartValue.
func Resolve(reg *schema.Registry, d Descriptor, override *string) (Spec, error) {
	id, err := ParseStringID(d.StringID)
	if err != nil {
		return Spec{}, err
	}

	root, err := reg.TableByID(id.Path[0].TableID)
	if err != nil {
		return Spec{}, err
	}

	path, err := walk(reg, root, id.Path[1:])
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		StringID:     d.StringID,
		FieldName:    id.FieldName,
		RootTable:    root,
		JoinPath:     path,
		OperatorCode: d.OperatorCode,
		Operand:      d.StartValue,
		Negate:       d.IsNot,
		Display:      d.IsDisplay,
		SourceID:     d.ID,
	}
	if override != nil {
		spec.Operand = *override
	}

	terminal := spec.Table()
	if !schema.SameName(id.TableName, terminal.Name) {
		return Spec{}, queryerr.NewMalformedStringIDError(d.StringID,
			"table name "+id.TableName+" does not match path terminal "+terminal.Name)
	}

	if m := datePartPattern.FindStringSubmatch(id.FieldName); m != nil {
		spec.FieldName, spec.DatePart = m[1], parts[m[2]]
		f, ok := terminal.Field(spec.FieldName)
		if !ok {
			return Spec{}, queryerr.NewUnknownFieldError(terminal.Name, spec.FieldName)
		}
		if f.Type != schema.TypeDate {
			return Spec{}, queryerr.NewInvalidDatePartError(terminal.Name, spec.FieldName, m[2])
		}
		return spec, nil
	}

	// a relationship name is a hop, never a value or a rank
	if !terminal.HasPhysicalField(spec.FieldName) && !spec.IsRank() {
		return Spec{}, queryerr.NewUnknownFieldError(terminal.Name, spec.FieldName)
	}
	return spec, nil
}

// walk resolves each path element to a (relationship, table) hop.
func walk(reg *schema.Registry, root *schema.Table, elems []PathElem) ([]Hop, error) {
	var path []Hop
	node := root
	for _, elem := range elems {
		table, err := reg.TableByID(elem.TableID)
		if err != nil {
			return nil, err
		}

		var rel *schema.Relationship
		if elem.Relationship != "" {
			r, ok := node.Relationship(elem.Relationship)
			if !ok {
				return nil, queryerr.NewUnknownFieldError(node.Name, elem.Relationship)
			}
			rel = r
		} else {
			if rel, err = infer(node, table); err != nil {
				return nil, err
			}
		}

		if rel.Target != table {
			return nil, queryerr.NewMissingJoinFieldError(node.Name, table.Name,
				"relationship "+rel.Name+" leads to "+rel.Target.Name)
		}
		path = append(path, Hop{Relationship: rel, Table: table})
		node = table
	}
	return path, nil
}

// infer finds the member of owner named like target, ignoring case.
// Exactly one member must match and it must be a relationship.
func infer(owner, target *schema.Table) (*schema.Relationship, error) {
	var candidates []string
	for _, name := range owner.MemberNames() {
		if schema.SameName(name, target.Name) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return nil, queryerr.NewMissingJoinFieldError(owner.Name, target.Name, "no field is named like the joined table")
	case 1:
		rel, ok := owner.Relationship(candidates[0])
		if !ok {
			return nil, queryerr.NewMissingJoinFieldError(owner.Name, target.Name, candidates[0]+" is not a relationship")
		}
		return rel, nil
	default:
		return nil, queryerr.NewAmbiguousJoinFieldError(owner.Name, target.Name, candidates)
	}
}
