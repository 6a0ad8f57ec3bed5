package fieldspec

// Summary is a printable view of a Spec, used by the CLI.
type Summary struct {
	StringID string   `json:"stringId" yaml:"stringId"`
	Root     string   `json:"root" yaml:"root"`
	Path     []string `json:"path" yaml:"path"`
	Table    string   `json:"table" yaml:"table"`
	Field    string   `json:"field" yaml:"field"`
	Mode     string   `json:"mode" yaml:"mode"`
	DatePart string   `json:"datePart,omitempty" yaml:"datePart,omitempty"`
	Operator int      `json:"operator" yaml:"operator"`
	Operand  string   `json:"operand" yaml:"operand"`
	Negate   bool     `json:"negate" yaml:"negate"`
	Display  bool     `json:"display" yaml:"display"`
	SourceID int64    `json:"sourceId" yaml:"sourceId"`
}

// Field resolution modes.
const (
	ModeDirect   = "direct"
	ModeDatePart = "date part"
	ModeTreeRank = "tree rank"
)

// Mode names how the assembler will resolve the field.
func (s Spec) Mode() string {
	switch {
	case s.IsRank():
		return ModeTreeRank
	case s.DatePart != 0:
		return ModeDatePart
	default:
		return ModeDirect
	}
}

// Summarize returns the printable view of s.
func (s Spec) Summarize() Summary {
	sum := Summary{
		StringID: s.StringID,
		Root:     s.RootTable.Name,
		Path:     []string{},
		Table:    s.Table().Name,
		Field:    s.FieldName,
		Mode:     s.Mode(),
		Operator: s.OperatorCode,
		Operand:  s.Operand,
		Negate:   s.Negate,
		Display:  s.Display,
		SourceID: s.SourceID,
	}
	if s.DatePart != 0 {
		sum.DatePart = s.DatePart.String()
	}
	for _, hop := range s.JoinPath {
		sum.Path = append(sum.Path, hop.Relationship.Name+" -> "+hop.Table.Name)
	}
	return sum
}
