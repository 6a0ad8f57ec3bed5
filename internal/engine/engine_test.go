package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specify/storedq/internal/fieldspec"
	"github.com/specify/storedq/internal/ops"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	s, reg := testutil.NewFixtureStore(t)
	clock := testutil.NewFixedClock(testutil.DefaultNow)
	base := []EngineOption{
		WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3", "run-4")),
		WithNow(clock.Now),
		WithLogger(quietLogger()),
	}
	return New(reg, s, querysql.SQLite, append(base, opts...)...)
}

func field(id int64, stringID string, op ops.Code, value string, display bool) fieldspec.Descriptor {
	return fieldspec.Descriptor{ID: id, StringID: stringID, OperatorCode: int(op), StartValue: value, IsDisplay: display}
}

func ids(rows []map[string]any) []int64 {
	out := []int64{}
	for _, r := range rows {
		out = append(out, r["id"].(int64))
	}
	return out
}

func TestRun_PrepTypeQuery(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Run(context.Background(), Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields: []fieldspec.Descriptor{
			field(1, "1.collectionobject.catalogNumber", ops.Equals, "", true),
			field(2, "1,63-preparations,65.preptype.name", ops.Equals, "mummified", false),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, int64(1), res.Seq)
	assert.Equal(t, int64(1), e.Runs())
	assert.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, []Column{{Label: "1", StringID: "1.collectionobject.catalogNumber", FieldID: 1}}, res.Columns)
	assert.Equal(t, []map[string]any{{"id": int64(1), "1": "000001"}}, res.Rows)
	assert.Equal(t, int64(1), res.LastID)
	assert.False(t, res.HasMore)
	assert.Len(t, res.Fingerprint, 64)
}

func TestRun_KeysetPages(t *testing.T) {
	e := newTestEngine(t)
	req := Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		PageSize:    2,
	}

	first, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(first.Rows))
	assert.Equal(t, int64(3), first.TotalCount)
	assert.Equal(t, int64(2), first.LastID)
	assert.True(t, first.HasMore)

	req.LastID = first.LastID
	second, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(second.Rows))
	assert.Equal(t, int64(3), second.TotalCount, "count ignores the cursor")
	assert.False(t, second.HasMore)
	assert.Equal(t, first.Fingerprint, second.Fingerprint, "fingerprint ignores pagination")

	req.LastID = second.LastID
	third, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, third.Rows)
	assert.NotNil(t, third.Rows)
	assert.Equal(t, int64(0), third.LastID)
}

func TestRun_KeysetPagesKeepRepeatedIDs(t *testing.T) {
	e := newTestEngine(t, WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3", "run-4", "run-5", "run-6")))
	req := Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields: []fieldspec.Descriptor{
			field(1, "1.collectionobject.catalogNumber", ops.Equals, "", true),
			field(2, "1,63-preparations,65.preptype.name", ops.Equals, "", true),
		},
	}

	// Specimen 1 has two preparations and so two rows.
	whole, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, whole.Rows, 4)
	assert.False(t, whole.HasMore)

	req.PageSize = 1
	var paged []map[string]any
	var pages [][]int64
	for i := 0; i < 5; i++ {
		res, err := e.Run(context.Background(), req)
		require.NoError(t, err)
		paged = append(paged, res.Rows...)
		pages = append(pages, ids(res.Rows))
		assert.Equal(t, int64(3), res.TotalCount)
		if !res.HasMore {
			break
		}
		req.LastID = res.LastID
	}

	assert.Equal(t, [][]int64{{1, 1}, {2}, {3}}, pages)
	assert.ElementsMatch(t, whole.Rows, paged)
}

func TestTruncatePage(t *testing.T) {
	row := func(id int64) map[string]any { return map[string]any{"id": id} }

	tests := []struct {
		name    string
		rows    []map[string]any
		size    int
		want    []int64
		hasMore bool
	}{
		{"empty", nil, 2, []int64{}, false},
		{"fits", []map[string]any{row(1), row(2)}, 2, []int64{1, 2}, false},
		{"one extra id", []map[string]any{row(1), row(2), row(3)}, 2, []int64{1, 2}, true},
		{"repeated ids count once", []map[string]any{row(1), row(1), row(2), row(3), row(3)}, 2, []int64{1, 1, 2}, true},
		{"repeated last id", []map[string]any{row(1), row(2), row(2)}, 2, []int64{1, 2, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasMore := truncatePage(tt.rows, tt.size)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.hasMore, hasMore)
		})
	}
}

func TestRun_DefaultPageSize(t *testing.T) {
	e := newTestEngine(t, WithPageSize(0))
	assert.Equal(t, DefaultPageSize, e.pageSize)

	e = newTestEngine(t, WithPageSize(1))
	res, err := e.Run(context.Background(), Request{RootTableID: testutil.CollectionObjectID, Scope: testutil.FishCollection})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.True(t, res.HasMore)
}

func TestRun_OperandOverride(t *testing.T) {
	e := newTestEngine(t)
	req := Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields:      []fieldspec.Descriptor{field(7, "1.collectionobject.catalogNumber", ops.Equals, "000001", false)},
	}

	saved, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(saved.Rows))

	req.Operands = map[int64]string{7: "000003"}
	prompted, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(prompted.Rows))
	assert.NotEqual(t, saved.Fingerprint, prompted.Fingerprint)
}

func TestRun_CountOnly(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Run(context.Background(), Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields:      []fieldspec.Descriptor{field(1, "1,9-determinations,4.taxon.Family", ops.Equals, "Salmonidae", false)},
		CountOnly:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)
	assert.Nil(t, res.Rows)
}

func TestRun_RejectsBeforeExecuting(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code queryerr.Code
	}{
		{"no scope", Request{RootTableID: testutil.CollectionObjectID}, queryerr.ErrCodeUnscopedQuery},
		{"unknown root", Request{RootTableID: 999, Scope: 4}, queryerr.ErrCodeUnknownTable},
		{"unscoped root", Request{RootTableID: testutil.AgentID, Scope: 4}, queryerr.ErrCodeUnscopedQuery},
		{"bad operand", Request{RootTableID: testutil.CollectionObjectID, Scope: 4,
			Fields: []fieldspec.Descriptor{field(1, "1.collectionobject.countAmt", ops.Greater, "lots", false)}}, queryerr.ErrCodeOperandType},
		{"root mismatch", Request{RootTableID: testutil.PreparationID, Scope: 4,
			Fields: []fieldspec.Descriptor{field(1, "1.collectionobject.countAmt", ops.Greater, "1", false)}}, queryerr.ErrCodeRootMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &failingQuerier{err: errors.New("must not be called")}
			e := New(testutil.FixtureRegistry(), db, querysql.SQLite,
				WithRunIDGenerator(UUIDv7Generator{}), WithLogger(quietLogger()))

			_, err := e.Run(context.Background(), tt.req)
			assert.Equal(t, tt.code, queryerr.CodeOf(err))
			assert.Zero(t, db.calls)
		})
	}
}

type failingQuerier struct {
	err   error
	calls int
}

func (f *failingQuerier) QueryRows(context.Context, string, ...any) ([]map[string]any, error) {
	f.calls++
	return nil, f.err
}

func (f *failingQuerier) QueryCount(context.Context, string, ...any) (int64, error) {
	f.calls++
	return 0, f.err
}

func TestRun_ExecutionFailure(t *testing.T) {
	cause := errors.New("connection reset")
	db := &failingQuerier{err: cause}
	e := New(testutil.FixtureRegistry(), db, querysql.Postgres, WithLogger(quietLogger()))

	_, err := e.Run(context.Background(), Request{RootTableID: testutil.CollectionObjectID, Scope: 4})
	require.Error(t, err)
	assert.True(t, queryerr.IsExecutionFailed(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, db.calls, "failures are not retried")
}

func TestRun_CanceledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, Request{RootTableID: testutil.CollectionObjectID, Scope: 4})
	assert.True(t, queryerr.IsExecutionFailed(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(t, WithLogger(logger))

	_, err := e.Run(context.Background(), Request{RootTableID: testutil.CollectionObjectID, Scope: 4})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "msg=\"query run\"")
	assert.Contains(t, out, "rows=3")
	assert.Contains(t, out, "fingerprint=")
}

func TestCompile(t *testing.T) {
	e := New(testutil.FixtureRegistry(), &failingQuerier{}, querysql.Postgres, WithPageSize(10))

	c, err := e.Compile(Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields:      []fieldspec.Descriptor{field(3, "1,63-preparations,65.preptype.name", ops.Equals, "Mummified", true)},
		LastID:      25,
	})
	require.NoError(t, err)

	assert.Contains(t, c.SQL, `LEFT JOIN "Preparation" AS "t1"`)
	assert.Contains(t, c.SQL, `"t0"."collectionobjectid" IN (SELECT DISTINCT "t0"."collectionobjectid" FROM`)
	assert.Contains(t, c.SQL, `ORDER BY "t0"."collectionobjectid" ASC LIMIT 11)`)
	assert.Contains(t, c.CountSQL, `COUNT(DISTINCT "t0"."collectionobjectid")`)
	assert.NotContains(t, c.CountSQL, "LIMIT")
	assert.Contains(t, c.Args, int64(25))
	assert.Contains(t, c.Args, "mummified")
	require.Len(t, c.Fields, 1)
	assert.Equal(t, "1,63-preparations,65.preptype.name", c.Fields[0].StringID)
}

func TestEngine_ConcurrentRuns(t *testing.T) {
	e := newTestEngine(t, WithRunIDGenerator(UUIDv7Generator{}))
	req := Request{
		RootTableID: testutil.CollectionObjectID,
		Scope:       testutil.FishCollection,
		Fields:      []fieldspec.Descriptor{field(1, "1,9-determinations,4.taxon.Order", ops.Equals, "Salmoniformes", true)},
	}

	errs := make(chan error, 8)
	results := make(chan *Result, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := e.Run(context.Background(), req)
			errs <- err
			results <- res
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
		res := <-results
		assert.Equal(t, []int64{1, 2, 3}, ids(res.Rows))
	}
}
