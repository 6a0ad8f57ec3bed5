package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/specify/storedq/internal/savedquery"
)

// Scenario defines a stored-query conformance scenario: a schema, the rows
// to seed, one saved query and what running it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema directory.
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Fixture names a built-in data set seeded before Rows.
	// "specify" is the collections fixture; empty seeds nothing.
	Fixture string `yaml:"fixture,omitempty"`

	// Rows are extra rows to insert, in order.
	Rows []RowSpec `yaml:"rows,omitempty"`

	// Now fixes the clock age operators measure from (YYYY-MM-DD).
	// Empty uses testutil.DefaultNow.
	Now string `yaml:"now,omitempty"`

	// Query is the saved query to run.
	Query savedquery.Query `yaml:"query"`

	// AllPages follows the keyset cursor until the last page and collects
	// the ids of every page.
	AllPages bool `yaml:"allPages,omitempty"`

	// Expect is the expected outcome.
	Expect Expectation `yaml:"expect"`

	// Assertions are extra checks on rows, columns and SQL.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the compiled SQL against testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// RowSpec is one row to insert. Table is a table name.
type RowSpec struct {
	Table  string         `yaml:"table"`
	Values map[string]any `yaml:"values"`
}

// Expectation is the expected result of the query. Unset fields are not
// checked. Error excludes the other fields: a query that must fail has no
// rows.
type Expectation struct {
	// IDs are the root ids in order. An empty list expects no rows.
	IDs *[]int64 `yaml:"ids,omitempty"`

	// Total is the expected total count.
	Total *int64 `yaml:"total,omitempty"`

	// HasMore is whether another page follows the first one.
	HasMore *bool `yaml:"hasMore,omitempty"`

	// Error is the expected error code (e.g. UNKNOWN_FIELD).
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the result beyond the expectation.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row": the row with ID has Values (subset match, by column label)
	// - "columns": the display column labels are exactly Labels
	// - "sql_contains": the page SQL contains Text
	// - "sql_not_contains": the page SQL does not contain Text
	Type string `yaml:"type"`

	// ID is the root id of the row (used by row).
	ID int64 `yaml:"id,omitempty"`

	// Values are expected cell values keyed by column label (used by row).
	Values map[string]any `yaml:"values,omitempty"`

	// Labels are the expected display column labels (used by columns).
	Labels []string `yaml:"labels,omitempty"`

	// Text is the SQL fragment (used by sql_contains and sql_not_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRow            = "row"
	AssertColumns        = "columns"
	AssertSQLContains    = "sql_contains"
	AssertSQLNotContains = "sql_not_contains"
)

// Fixture names.
const (
	FixtureSpecify = "specify"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the schema path relative to the scenario BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	names := map[string]string{}
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", path, s.Name, prev)
		}
		names[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// now returns the scenario clock.
func (s *Scenario) now() (time.Time, bool, error) {
	if s.Now == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.DateOnly, s.Now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("now: %w", err)
	}
	return t, true, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	switch s.Fixture {
	case "", FixtureSpecify:
	default:
		return fmt.Errorf("unknown fixture %q", s.Fixture)
	}
	if _, _, err := s.now(); err != nil {
		return err
	}

	for i, row := range s.Rows {
		if row.Table == "" {
			return fmt.Errorf("rows[%d]: table is required", i)
		}
		if len(row.Values) == 0 {
			return fmt.Errorf("rows[%d]: values are required", i)
		}
	}

	if s.Query.RootTable == "" && s.Query.RootTableID == 0 {
		return fmt.Errorf("query: rootTable or rootTableId is required")
	}

	e := s.Expect
	if e.Error == "" && e.IDs == nil && e.Total == nil && e.HasMore == nil {
		return fmt.Errorf("expect: at least one of ids, total, hasMore or error is required")
	}
	if e.Error != "" && (e.IDs != nil || e.Total != nil || e.HasMore != nil) {
		return fmt.Errorf("expect: error excludes ids, total and hasMore")
	}
	if s.AllPages && e.HasMore != nil {
		return fmt.Errorf("expect: hasMore is meaningless with allPages")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRow:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for row", index)
		}
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values are required for row", index)
		}
	case AssertColumns:
		if a.Labels == nil {
			return fmt.Errorf("assertions[%d]: labels are required for columns", index)
		}
	case AssertSQLContains, AssertSQLNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
