package assembler

import (
	"errors"
	"fmt"

	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryerr"
	"github.com/specify/storedq/internal/queryir"
)

// Scope restricts the query to rows of one collection, following the root
// table's scope rule. Tables without a rule cannot be queried, and the
// collection id must be positive.
func (q *Query) Scope(collection int64) (*Query, error) {
	rule, ok := q.root.Scope()
	if !ok {
		return nil, queryerr.NewUnscopedQueryError(q.root.Name, "table has no collection scope rule")
	}
	if collection <= 0 {
		return nil, queryerr.NewUnscopedQueryError(q.root.Name, fmt.Sprintf("collection id %d is not a valid scope", collection))
	}
	if q.scoped {
		return nil, errors.New("query is already scoped")
	}

	next := q.clone()
	prev := next.from
	for _, rel := range rule.Via {
		t := queryir.Table{Name: rel.Target.Name, Alias: next.aliases.alias(scopePrefix), IDColumn: rel.Target.IDColumn}
		next.joins = append(next.joins, queryir.Join{
			Kind:  queryir.InnerJoin,
			Table: t,
			On:    joinCondition(prev, rel, t),
		})
		prev = t
	}

	next.where = append(next.where, queryir.Compare{
		Left:  queryir.Column{Alias: prev.Alias, Name: rule.Field.Column},
		Op:    queryir.Eq,
		Value: ir.Int(collection),
	})
	next.scoped = true
	return next, nil
}
