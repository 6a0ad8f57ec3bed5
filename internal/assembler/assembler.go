package assembler

import (
	"fmt"
	"strconv"

	"github.com/specify/storedq/internal/fieldspec"
	"github.com/specify/storedq/internal/ops"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/schema"
)

// Assembler applies field specifications to queries. It holds only
// immutable collaborators and is safe for concurrent use.
type Assembler struct {
	reg *schema.Registry
	lib *ops.Library
}

// New creates an Assembler.
func New(reg *schema.Registry, lib *ops.Library) *Assembler {
	return &Assembler{reg: reg, lib: lib}
}

// Query is a query under construction. Apply, Project and Scope return a
// new Query and leave the receiver untouched, so a failed step never
// leaves a half-built query behind.
type Query struct {
	root     *schema.Table
	from     queryir.Table
	joins    []queryir.Join
	where    []queryir.Predicate
	columns  []queryir.Output
	labels   map[string]bool
	distinct bool
	scoped   bool
	aliases  arena
}

// Begin starts a query rooted at table root.
func (a *Assembler) Begin(root *schema.Table) *Query {
	return &Query{
		root:    root,
		from:    queryir.Table{Name: root.Name, Alias: rootAlias, IDColumn: root.IDColumn},
		labels:  map[string]bool{},
		aliases: newArena(),
	}
}

func (q *Query) clone() *Query {
	c := *q
	c.joins = append([]queryir.Join(nil), q.joins...)
	c.where = append([]queryir.Predicate(nil), q.where...)
	c.columns = append([]queryir.Output(nil), q.columns...)
	c.labels = make(map[string]bool, len(q.labels))
	for k := range q.labels {
		c.labels[k] = true
	}
	c.aliases = q.aliases.clone()
	return &c
}

// Root returns the root table.
func (q *Query) Root() *schema.Table { return q.root }

// Apply adds one field specification: joins along its path, resolves the
// field expression and, when the operand is non-empty, attaches the
// operator's predicate (negated if requested). Displayed fields are
// projected under their source id.
//
// Returns the extended query and the field expression.
func (a *Assembler) Apply(q *Query, spec fieldspec.Spec) (*Query, queryir.Expr, error) {
	if spec.RootTable.ID != q.root.ID {
		return nil, nil, queryerr.NewRootMismatchError(spec.StringID, q.root.ID, spec.RootTable.ID)
	}

	next := q.clone()
	node := next.join(spec.JoinPath)

	target, err := a.resolveField(next, node, spec)
	if err != nil {
		return nil, nil, err
	}

	if spec.Operand != "" {
		op, err := a.lib.Resolve(spec.OperatorCode)
		if err != nil {
			return nil, nil, err
		}
		pred, err := op.Build(target, spec.Operand)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", spec.StringID, err)
		}
		if spec.Negate {
			pred = queryir.Not{Of: pred}
		}
		next.where = append(next.where, pred)
	}

	if spec.Display {
		next = next.Project(target.Expr, strconv.FormatInt(spec.SourceID, 10))
	}
	return next, target.Expr, nil
}

// join walks a path from the root alias, adding one left join per hop.
// It returns the aliased terminal table.
func (q *Query) join(path []fieldspec.Hop) queryir.Table {
	prev := q.from
	for _, hop := range path {
		t := queryir.Table{
			Name:     hop.Table.Name,
			Alias:    q.aliases.alias(hopPrefix),
			IDColumn: hop.Table.IDColumn,
		}
		q.joins = append(q.joins, queryir.Join{
			Kind:  queryir.LeftJoin,
			Table: t,
			On:    joinCondition(prev, hop.Relationship, t),
		})
		if hop.Relationship.Kind == schema.OneToMany {
			q.distinct = true
		}
		prev = t
	}
	return prev
}

// joinCondition links owner to target through rel.
func joinCondition(owner queryir.Table, rel *schema.Relationship, target queryir.Table) queryir.Predicate {
	if rel.Kind == schema.OneToMany {
		return queryir.CompareColumns{
			Left:  queryir.Column{Alias: target.Alias, Name: rel.Column},
			Op:    queryir.Eq,
			Right: owner.ID(),
		}
	}
	return queryir.CompareColumns{
		Left:  queryir.Column{Alias: owner.Alias, Name: rel.Column},
		Op:    queryir.Eq,
		Right: target.ID(),
	}
}

// resolveField picks the field expression in one of three modes:
// tree rank, date part or direct column.
func (a *Assembler) resolveField(q *Query, node queryir.Table, spec fieldspec.Spec) (ops.Target, error) {
	table := spec.Table()

	if spec.IsRank() {
		expr, err := a.joinRank(q, node, table, spec.FieldName)
		if err != nil {
			return ops.Target{}, err
		}
		return ops.Target{Expr: expr, Type: schema.TypeText}, nil
	}

	f, ok := table.Field(spec.FieldName)
	if !ok {
		return ops.Target{}, queryerr.NewUnknownFieldError(table.Name, spec.FieldName)
	}
	col := queryir.Column{Alias: node.Alias, Name: f.Column}

	if spec.DatePart != 0 {
		if f.Type != schema.TypeDate {
			return ops.Target{}, queryerr.NewInvalidDatePartError(table.Name, f.Name, spec.DatePart.String())
		}
		return ops.Target{Expr: queryir.DatePart{Part: spec.DatePart, Of: col}, Type: schema.TypeInteger}, nil
	}
	return ops.Target{Expr: col, Type: f.Type, Values: f.Values}, nil
}

// Project adds an output column. A label already in use gets a numeric
// suffix.
func (q *Query) Project(expr queryir.Expr, label string) *Query {
	next := q.clone()
	unique := label
	for n := 2; next.labels[unique]; n++ {
		unique = label + "_" + strconv.Itoa(n)
	}
	next.labels[unique] = true
	next.columns = append(next.columns, queryir.Output{Expr: expr, Label: unique})
	return next
}

// Columns returns the projected columns in order.
func (q *Query) Columns() []queryir.Output {
	return append([]queryir.Output(nil), q.columns...)
}

// Filter attaches an extra predicate. The engine uses it for keyset
// conditions that are not field specifications.
func (q *Query) Filter(p queryir.Predicate) *Query {
	next := q.clone()
	next.where = append(next.where, p)
	return next
}

// Select returns the finished query. It fails with UNSCOPED_QUERY unless
// Scope has been applied.
func (q *Query) Select() (queryir.Select, error) {
	if !q.scoped {
		return queryir.Select{}, queryerr.NewUnscopedQueryError(q.root.Name, "query has no collection scope")
	}
	return queryir.Select{
		From:     q.from,
		Joins:    append([]queryir.Join(nil), q.joins...),
		Where:    append([]queryir.Predicate(nil), q.where...),
		Columns:  q.Columns(),
		Distinct: q.distinct,
	}, nil
}

// AssembleAll resolves every descriptor, then applies them in order to a
// query rooted at rootID and scoped to collection scope. Any failure fails
// the whole query; nothing partial is returned.
func (a *Assembler) AssembleAll(rootID int, scope int64, descriptors []fieldspec.Descriptor) (*Query, error) {
	root, err := a.reg.TableByID(rootID)
	if err != nil {
		return nil, err
	}

	specs := make([]fieldspec.Spec, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := fieldspec.Resolve(a.reg, d, nil)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return a.AssembleSpecs(root, scope, specs)
}

// AssembleSpecs applies already resolved specifications to a query rooted
// at root and scopes it.
func (a *Assembler) AssembleSpecs(root *schema.Table, scope int64, specs []fieldspec.Spec) (*Query, error) {
	q := a.Begin(root)
	var err error
	for _, spec := range specs {
		if q, _, err = a.Apply(q, spec); err != nil {
			return nil, err
		}
	}
	return q.Scope(scope)
}
