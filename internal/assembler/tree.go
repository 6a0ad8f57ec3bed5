package assembler

import (
	"github.com/specify/storedq/internal/ir"
	"github.com/specify/storedq/internal/queryir"
	"github.com/specify/storedq/internal/schema"
)

// joinRank resolves a rank name on a tree table. It joins the tree again as
// an ancestor of node (same definition, node number inside the ancestor's
// inclusive range) and joins the ancestor's rank item, restricted to items
// named rank exactly. The result is the ancestor's name: a node matches when
// it descends from, or is, a node of that rank.
func (a *Assembler) joinRank(q *Query, node queryir.Table, table *schema.Table, rank string) (queryir.Expr, error) {
	tree, _ := table.Tree()
	rankTable, err := a.reg.RankTable(table)
	if err != nil {
		return nil, err
	}

	anc := queryir.Table{Name: table.Name, Alias: q.aliases.alias(ancestorPrefix), IDColumn: table.IDColumn}
	col := func(t queryir.Table, f *schema.Field) queryir.Column {
		return queryir.Column{Alias: t.Alias, Name: f.Column}
	}

	q.joins = append(q.joins, queryir.Join{
		Kind:  queryir.InnerJoin,
		Table: anc,
		On: queryir.And{Predicates: []queryir.Predicate{
			queryir.CompareColumns{Left: col(anc, tree.Definition), Op: queryir.Eq, Right: col(node, tree.Definition)},
			queryir.BetweenColumns{
				Expr: col(node, tree.NodeNumber),
				Lo:   col(anc, tree.NodeNumber),
				Hi:   col(anc, tree.HighestChildNodeNumber),
			},
		}},
	})

	rankName, _ := rankTable.Field(tree.Name.Name)
	item := queryir.Table{Name: rankTable.Name, Alias: q.aliases.alias(rankPrefix), IDColumn: rankTable.IDColumn}
	q.joins = append(q.joins, queryir.Join{
		Kind:  queryir.InnerJoin,
		Table: item,
		On: queryir.And{Predicates: []queryir.Predicate{
			queryir.CompareColumns{Left: item.ID(), Op: queryir.Eq, Right: col(anc, tree.DefinitionItem)},
			queryir.Compare{Left: col(item, rankName), Op: queryir.Eq, Value: ir.String(rank)},
		}},
	})

	return col(anc, tree.Name), nil
}
