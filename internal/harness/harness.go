package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specify/storedq/internal/compiler"
	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/schema"
	"github.com/specify/storedq/internal/store"
	"github.com/specify/storedq/internal/testutil"
)

// maxPages bounds AllPages so a cursor that never advances fails the
// scenario instead of looping.
const maxPages = 1000

// Harness runs one scenario against its own database.
type Harness struct {
	store  *store.Store
	reg    *schema.Registry
	engine *engine.Engine
	clock  *testutil.FixedClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers (fixed clock, fixed run id) keep results and SQL
// reproducible.
//
// Execution flow:
// 1. Load and validate the schema
// 2. Create a fresh in-memory database and its tables
// 3. Seed the fixture and the scenario rows
// 4. Compile and run the query, following pages when asked
// 5. Check the expectation and assertions
//
// An error is returned only when the scenario cannot be set up. A query
// that fails is a result, checked against Expect.Error.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context for the database calls.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result := NewResult()
	h.execute(ctx, scenario, result)

	for _, msg := range CheckExpectation(result, scenario.Expect) {
		result.AddError(msg)
	}
	if result.ErrorCode == "" {
		for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
			result.AddError(msg)
		}
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	reg, err := compiler.LoadRegistry(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	st, err := store.Open(ctx, store.DriverSQLite, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	now, _, err := scenario.now()
	if err != nil {
		st.Close()
		return nil, err
	}
	clock := testutil.NewFixedClock(now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios

	eng := engine.New(reg, st, st.Dialect(),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.Name)),
		engine.WithNow(clock.Now),
		engine.WithLogger(logger),
	)
	return &Harness{store: st, reg: reg, engine: eng, clock: clock, logger: logger}, nil
}

// seed creates the tables and inserts the fixture, then the scenario rows.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	var rows []testutil.Row
	if scenario.Fixture == FixtureSpecify {
		rows = testutil.FixtureRows()
	}
	for i, spec := range scenario.Rows {
		t, err := h.reg.TableByName(spec.Table)
		if err != nil {
			return fmt.Errorf("rows[%d]: %w", i, err)
		}
		rows = append(rows, testutil.Row{Table: t.ID, Values: spec.Values})
	}
	return testutil.Seed(ctx, h.store, h.reg, rows)
}

// execute compiles and runs the query, recording either the outcome or the
// error code.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) {
	fail := func(err error) {
		result.ErrorCode = string(queryerr.CodeOf(err))
		h.logger.Info("query failed", "scenario", scenario.Name, "code", result.ErrorCode, "error", err)
		if scenario.Expect.Error == "" {
			result.AddError(fmt.Sprintf("query failed: %v", err))
		}
	}

	req, err := scenario.Query.Request(h.reg)
	if err != nil {
		fail(err)
		return
	}

	compiled, err := h.engine.Compile(req)
	if err != nil {
		fail(err)
		return
	}
	result.SQL, result.Args, result.CountSQL = compiled.SQL, compiled.Args, compiled.CountSQL

	for page := 0; ; page++ {
		if page == maxPages {
			result.AddError(fmt.Sprintf("gave up after %d pages", maxPages))
			return
		}
		res, err := h.engine.Run(ctx, req)
		if err != nil {
			fail(err)
			return
		}
		result.Pages++
		if page == 0 {
			result.Total = res.TotalCount
			result.HasMore = res.HasMore
			for _, c := range res.Columns {
				result.Columns = append(result.Columns, c.Label)
			}
		}
		for _, row := range res.Rows {
			id, _ := row[querysql.IDLabel].(int64)
			result.IDs = append(result.IDs, id)
			result.Rows = append(result.Rows, row)
		}
		if !scenario.AllPages || !res.HasMore {
			return
		}
		req.LastID = res.LastID
	}
}
