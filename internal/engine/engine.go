package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/specify/storedq/internal/assembler"
	"github.com/specify/storedq/internal/fieldspec"
	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/ops"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/schema"
)

// DefaultPageSize is the page size used when neither the request nor the
// engine sets one.
const DefaultPageSize = 40

// Querier executes compiled SQL. *store.Store implements it.
type Querier interface {
	QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error)
	QueryCount(ctx context.Context, query string, args ...any) (int64, error)
}

// Request is one stored-query run.
type Request struct {
	RootTableID int
	Scope       int64 // collection id; required
	Fields      []fieldspec.Descriptor

	// Operands replaces the start value of the descriptor with that id.
	Operands map[int64]string

	PageSize  int   // 0 uses the engine default
	LastID    int64 // keyset cursor: only rows with a greater id; 0 for the first page
	CountOnly bool  // skip the page query
}

// Column describes one displayed field of the result.
type Column struct {
	Label    string `json:"label"`
	StringID string `json:"stringId"`
	FieldID  int64  `json:"fieldId"`
}

// Result is one page of a run.
type Result struct {
	RunID       string           `json:"runId"`
	Seq         int64            `json:"seq"`
	Fingerprint string           `json:"fingerprint"`
	Columns     []Column         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	TotalCount  int64            `json:"totalCount"`
	LastID      int64            `json:"lastId"`  // id of the last row on the page, 0 if none
	HasMore     bool             `json:"hasMore"` // another page follows LastID
}

// Compiled is the SQL a request runs, without executing it.
type Compiled struct {
	Fingerprint string              `json:"fingerprint"`
	Fields      []fieldspec.Summary `json:"fields"`
	SQL         string              `json:"sql"`
	Args        []any               `json:"args"`
	CountSQL    string              `json:"countSql"`
	CountArgs   []any               `json:"countArgs"`
}

// Engine resolves, assembles and executes stored queries.
//
// Engine holds only immutable collaborators and is safe for concurrent
// use; every Run builds its own query. Execution is the only blocking step
// and is never retried here.
type Engine struct {
	reg      *schema.Registry
	asm      *assembler.Assembler
	compiler *querysql.SQLCompiler
	db       Querier
	runIDs   RunIDGenerator
	runs     RunCounter
	pageSize int
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithPageSize sets the default page size. Values below 1 keep
// DefaultPageSize.
func WithPageSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) { e.runIDs = g }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithNow sets the clock the age operators measure from.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// Runs reports how many queries this engine has started running.
func (e *Engine) Runs() int64 {
	return e.runs.Runs()
}

// New creates an Engine over reg that executes through db in dialect d.
func New(reg *schema.Registry, db Querier, d querysql.Dialect, opts ...EngineOption) *Engine {
	e := &Engine{
		reg:      reg,
		compiler: querysql.NewSQLCompiler(d),
		db:       db,
		runIDs:   UUIDv7Generator{},
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.asm = assembler.New(reg, ops.NewLibrary(ops.WithClock(e.now)))
	return e
}

// plan is a request resolved and assembled, ready to compile.
type plan struct {
	sel         queryir.Select
	specs       []fieldspec.Spec
	columns     []Column
	fingerprint string
	pageSize    int
}

func (e *Engine) plan(req Request) (*plan, error) {
	if req.Scope <= 0 {
		return nil, queryerr.NewUnscopedQueryError(fmt.Sprintf("table %d", req.RootTableID), "request has no collection scope")
	}
	root, err := e.reg.TableByID(req.RootTableID)
	if err != nil {
		return nil, err
	}

	specs := make([]fieldspec.Spec, 0, len(req.Fields))
	fields := make(ir.List, 0, len(req.Fields))
	for _, d := range req.Fields {
		var override *string
		if v, ok := req.Operands[d.ID]; ok {
			override = &v
		}
		spec, err := fieldspec.Resolve(e.reg, d, override)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		fields = append(fields, ir.Object{
			"stringId": ir.String(spec.StringID),
			"operator": ir.Int(spec.OperatorCode),
			"operand":  ir.String(spec.Operand),
			"negate":   ir.Bool(spec.Negate),
			"display":  ir.Bool(spec.Display),
			"id":       ir.Int(spec.SourceID),
		})
	}

	q, err := e.asm.AssembleSpecs(root, req.Scope, specs)
	if err != nil {
		return nil, err
	}
	sel, err := q.Select()
	if err != nil {
		return nil, err
	}

	fingerprint, err := ir.RequestFingerprint(req.RootTableID, req.Scope, fields)
	if err != nil {
		return nil, err
	}

	// Display labels follow the assembler's deduplication, in field order.
	var columns []Column
	out := q.Columns()
	for _, spec := range specs {
		if !spec.Display {
			continue
		}
		columns = append(columns, Column{Label: out[len(columns)].Label, StringID: spec.StringID, FieldID: spec.SourceID})
	}

	size := req.PageSize
	if size <= 0 {
		size = e.pageSize
	}
	return &plan{sel: sel, specs: specs, columns: columns, fingerprint: fingerprint, pageSize: size}, nil
}

// page limits sel to one keyset page. One extra row is fetched to learn
// whether another page follows.
func (p *plan) page(lastID int64) queryir.Select {
	sel := p.sel
	if lastID > 0 {
		sel.After = &lastID
	}
	sel.Limit = uint64(p.pageSize) + 1
	return sel
}

// Compile returns the SQL a request would run.
func (e *Engine) Compile(req Request) (*Compiled, error) {
	p, err := e.plan(req)
	if err != nil {
		return nil, err
	}
	sql, args, err := e.compiler.Compile(p.page(req.LastID))
	if err != nil {
		return nil, err
	}
	countSQL, countArgs, err := e.compiler.CompileCount(p.sel)
	if err != nil {
		return nil, err
	}

	summaries := make([]fieldspec.Summary, len(p.specs))
	for i, spec := range p.specs {
		summaries[i] = spec.Summarize()
	}
	return &Compiled{
		Fingerprint: p.fingerprint,
		Fields:      summaries,
		SQL:         sql,
		Args:        args,
		CountSQL:    countSQL,
		CountArgs:   countArgs,
	}, nil
}

// Run executes a request and returns one page. The total count covers the
// whole scoped result, not only the rows after LastID. Resolution and
// assembly failures are returned as they are; failures of the data store
// come back as EXECUTION_FAILED wrapping the driver error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: e.runIDs.Generate(), Seq: e.runs.Next()}
	log := e.logger.With("run_id", res.RunID, "seq", res.Seq, "root", req.RootTableID, "scope", req.Scope)

	p, err := e.plan(req)
	if err != nil {
		log.Warn("query rejected", "code", queryerr.CodeOf(err), "error", err)
		return nil, err
	}
	res.Fingerprint = p.fingerprint
	res.Columns = p.columns
	log = log.With("fingerprint", p.fingerprint)

	countSQL, countArgs, err := e.compiler.CompileCount(p.sel)
	if err != nil {
		return nil, err
	}
	log.Debug("counting", "sql", countSQL)
	if res.TotalCount, err = e.db.QueryCount(ctx, countSQL, countArgs...); err != nil {
		log.Error("count failed", "error", err)
		return nil, queryerr.NewExecutionError("count", err)
	}

	if req.CountOnly {
		log.Info("query counted", "total", res.TotalCount)
		return res, nil
	}

	sql, args, err := e.compiler.Compile(p.page(req.LastID))
	if err != nil {
		return nil, err
	}
	log.Debug("fetching page", "sql", sql, "after", req.LastID, "page_size", p.pageSize)
	rows, err := e.db.QueryRows(ctx, sql, args...)
	if err != nil {
		log.Error("page query failed", "error", err)
		return nil, queryerr.NewExecutionError("rows", err)
	}

	rows, res.HasMore = truncatePage(rows, p.pageSize)
	if rows == nil {
		rows = []map[string]any{}
	}
	res.Rows = rows
	if n := len(rows); n > 0 {
		res.LastID = rowID(rows[n-1])
	}

	log.Info("query run", "rows", len(rows), "total", res.TotalCount, "has_more", res.HasMore)
	return res, nil
}

// truncatePage keeps the rows of the first size root ids. Rows arrive
// ordered by id and a displayed to-many field can repeat an id, so the cut
// counts ids, not rows. The page query fetches one id more than size to
// detect a following page.
func truncatePage(rows []map[string]any, size int) ([]map[string]any, bool) {
	seen := 0
	for i, row := range rows {
		if i == 0 || rowID(row) != rowID(rows[i-1]) {
			seen++
		}
		if seen > size {
			return rows[:i], true
		}
	}
	return rows, false
}

func rowID(row map[string]any) int64 {
	switch id := row[querysql.IDLabel].(type) {
	case int64:
		return id
	case int32:
		return int64(id)
	case int:
		return int64(id)
	default:
		return 0
	}
}
