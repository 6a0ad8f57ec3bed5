package assembler

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/specify/storedq/internal/ops"
	"github.com/specify/storedq/internal/store"
	"github.com/specify/storedq/internal/testutil"
)

// fish specimens by cataloged date and count; specimen 3 has no count.
var (
	catalogedOn = map[int64][2]int{1: {2001, 7}, 2: {2000, 1}, 3: {2010, 6}}
	fishIDs     = []int64{1, 2, 3}
)

func without(all, drop []int64) []int64 {
	gone := map[int64]bool{}
	for _, id := range drop {
		gone[id] = true
	}
	out := []int64{}
	for _, id := range all {
		if !gone[id] {
			out = append(out, id)
		}
	}
	return out
}

func TestLaw_NegationPartitionsNonNullRows(t *testing.T) {
	s, _ := testutil.NewFixtureStore(t)
	a := newAssembler()
	nulls := ids(t, s, assemble(t, a, testutil.FishCollection, desc(countAmt, ops.IsNull, "1")))
	assert.Equal(t, []int64{3}, nulls)

	rapid.Check(t, func(rt *rapid.T) {
		op := rapid.SampledFrom([]ops.Code{
			ops.Equals, ops.NotEquals, ops.Greater, ops.Less, ops.GreaterOrEqual, ops.LessOrEqual,
		}).Draw(rt, "op")
		n := rapid.IntRange(-1, 5).Draw(rt, "n")

		d := desc(countAmt, op, strconv.Itoa(n))
		pos := ids(rt, s, assemble(rt, a, testutil.FishCollection, d))
		d.IsNot = true
		neg := ids(rt, s, assemble(rt, a, testutil.FishCollection, d))

		for _, id := range pos {
			assert.NotContains(rt, neg, id)
		}
		assert.ElementsMatch(rt, without(fishIDs, nulls), append(pos, neg...))

		// NOT op selects what the complementary operator selects
		flipped := ids(rt, s, assemble(rt, a, testutil.FishCollection, desc(countAmt, complement[op], strconv.Itoa(n))))
		assert.Equal(rt, flipped, neg, "NOT %v vs %v", op, complement[op])
	})
}

var complement = map[ops.Code]ops.Code{
	ops.Equals:         ops.NotEquals,
	ops.NotEquals:      ops.Equals,
	ops.Greater:        ops.LessOrEqual,
	ops.LessOrEqual:    ops.Greater,
	ops.Less:           ops.GreaterOrEqual,
	ops.GreaterOrEqual: ops.Less,
}

func TestLaw_MonthPart(t *testing.T) {
	s, _ := testutil.NewFixtureStore(t)
	a := newAssembler()

	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.IntRange(1, 12).Draw(rt, "month")
		want := []int64{}
		for _, id := range fishIDs {
			if catalogedOn[id][1] == m {
				want = append(want, id)
			}
		}
		got := ids(rt, s, assemble(rt, a, testutil.FishCollection, desc(catalogedMonth, ops.Equals, strconv.Itoa(m))))
		assert.Equal(rt, want, got)
	})
}

func TestLaw_YearPartOrdering(t *testing.T) {
	s, _ := testutil.NewFixtureStore(t)
	a := newAssembler()

	rapid.Check(t, func(rt *rapid.T) {
		y := rapid.IntRange(1998, 2012).Draw(rt, "year")
		want := []int64{}
		for _, id := range fishIDs {
			if catalogedOn[id][0] >= y {
				want = append(want, id)
			}
		}
		got := ids(rt, s, assemble(rt, a, testutil.FishCollection, desc(catalogedYear, ops.GreaterOrEqual, strconv.Itoa(y))))
		assert.Equal(rt, want, got)
	})
}

func TestLaw_BetweenIsInclusive(t *testing.T) {
	s, _ := testutil.NewFixtureStore(t)
	a := newAssembler()

	for id, on := range catalogedOn {
		y := strconv.Itoa(on[0])
		got := ids(t, s, assemble(t, a, testutil.FishCollection, desc(catalogedYear, ops.Between, y+","+y)))
		assert.Equal(t, []int64{id}, got)
	}
}

// treeRows is one specimen determined as a species with node number node,
// under a single order spanning [lo, hi].
func treeRows(lo, hi, node int) []testutil.Row {
	return []testutil.Row{
		{Table: testutil.TaxonTreeDefItemID, Values: map[string]any{"id": 3, "name": "Order", "rankId": 100, "taxonTreeDefId": 1}},
		{Table: testutil.TaxonTreeDefItemID, Values: map[string]any{"id": 6, "name": "Species", "rankId": 220, "taxonTreeDefId": 1}},
		{Table: testutil.TaxonID, Values: map[string]any{"id": 1, "name": "Perciformes",
			"nodeNumber": lo, "highestChildNodeNumber": hi, "taxonTreeDefId": 1, "taxonTreeDefItemId": 3}},
		{Table: testutil.TaxonID, Values: map[string]any{"id": 2, "name": "Perca fluviatilis",
			"nodeNumber": node, "highestChildNodeNumber": node, "taxonTreeDefId": 1, "taxonTreeDefItemId": 6}},
		{Table: testutil.CollectionObjectID, Values: map[string]any{"id": 1, "catalogNumber": "000001",
			"collectionMemberId": testutil.FishCollection}},
		{Table: testutil.DeterminationID, Values: map[string]any{"id": 1, "collectionObject": 1, "taxon": 2,
			"isCurrent": true, "collectionMemberId": testutil.FishCollection}},
	}
}

func TestLaw_TreeRangeIsInclusive(t *testing.T) {
	a := newAssembler()

	check := func(t testingT, lo, hi, node int) {
		ctx := context.Background()
		s, err := store.Open(ctx, store.DriverSQLite, ":memory:")
		require.NoError(t, err)
		defer s.Close()
		require.NoError(t, testutil.Seed(ctx, s, a.reg, treeRows(lo, hi, node)))

		got := ids(t, s, assemble(t, a, testutil.FishCollection, desc(rankID("Order"), ops.Equals, "Perciformes")))
		if lo <= node && node <= hi {
			assert.Equal(t, []int64{1}, got, "node %d in [%d, %d]", node, lo, hi)
		} else {
			assert.Empty(t, got, "node %d outside [%d, %d]", node, lo, hi)
		}
	}

	for name, node := range map[string]int{"below": 9, "lower bound": 10, "inside": 15, "upper bound": 20, "above": 21} {
		t.Run(name, func(t *testing.T) { check(t, 10, 20, node) })
	}

	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(1, 50).Draw(rt, "lo")
		hi := rapid.IntRange(lo, 60).Draw(rt, "hi")
		node := rapid.IntRange(0, 70).Draw(rt, "node")
		check(rt, lo, hi, node)
	})
}
