package harness

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// SQLSnapshot renders the SQL a scenario ran: the page query, its bound
// arguments and the count query, one per line.
func SQLSnapshot(result *Result) []byte {
	args := make([]string, len(result.Args))
	for i, a := range result.Args {
		if s, ok := a.(string); ok {
			args[i] = strconv.Quote(s)
		} else {
			args[i] = fmt.Sprint(a)
		}
	}

	var buf strings.Builder
	fmt.Fprintln(&buf, result.SQL)
	fmt.Fprintf(&buf, "-- args: %s\n", strings.Join(args, ", "))
	fmt.Fprintln(&buf, result.CountSQL)
	return []byte(buf.String())
}

// RunWithGolden executes a scenario, fails t on any expectation or
// assertion error, and compares the SQL against testdata/golden/{name}.golden
// when the scenario asks for it.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	if scenario.Golden && result.ErrorCode == "" {
		AssertGolden(t, scenario.Name, result)
	}
	return result, nil
}

// AssertGolden compares the given result's SQL against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, SQLSnapshot(result))
}
