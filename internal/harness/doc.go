// Package harness runs stored-query conformance scenarios.
//
// A scenario names a CUE schema, the rows to seed, one saved query and the
// outcome the query must produce. Each scenario runs against its own
// in-memory SQLite database through the real engine, so a scenario checks
// resolution, assembly, SQL compilation and execution together.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: prep_type_mummified
//	description: "Fish specimens with a mummified preparation"
//	schema: ../schema/specify        # relative to the scenario file
//	fixture: specify                 # optional built-in data set
//	rows:                            # optional extra rows
//	  - table: CollectionObject
//	    values: { id: 10, catalogNumber: "000010", collectionMemberId: 4 }
//	now: 2024-03-15                  # optional clock for age operators
//	query:
//	  rootTable: CollectionObject
//	  scope: 4
//	  fields:
//	    - stringId: 1,63-preparations,65.preptype.name
//	      operatorCode: 1
//	      startValue: mummified
//	allPages: false                  # follow the keyset cursor to the end
//	expect:
//	  ids: [1]
//	  total: 1
//	  hasMore: false
//	  # or: error: UNKNOWN_FIELD
//	assertions:
//	  - type: row
//	    id: 1
//	    values: { "10": "000001" }
//	golden: true
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - row: the row with the given root id holds the values (subset match)
//   - columns: the display column labels, in order
//   - sql_contains / sql_not_contains: a fragment of the page SQL
//
// # Deterministic Testing
//
// The harness uses a fixed clock (testutil.FixedClock), a fixed run id
// (the scenario name) and an in-memory SQLite database per scenario, so
// golden SQL files are stable across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/prep_type.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
