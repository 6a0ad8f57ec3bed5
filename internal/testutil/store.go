package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/specify/storedq/internal/schema"
	"github.com/specify/storedq/internal/store"
)

// Row is one fixture row for a table.
type Row struct {
	Table  int
	Values map[string]any
}

// FixtureRows is the seeded data set.
//
// Fish collection (4): specimens 1-3. Herp collection (5): specimen 4.
//
// Taxon tree (node numbers in brackets, ranges inclusive):
//
//	Life [1-9]
//	  Animalia [2-9]
//	    Salmoniformes (Order) [3-6]
//	      Salmonidae (Family) [4-6]
//	        Salmo (Genus) [5-6]
//	          Salmo trutta (Species) [6-6]
//	    Cypriniformes (Order) [7-9]
//	      Cyprinidae (Family) [8-9]
//	        Cyprinus carpio (Species) [9-9]
//
// Current determinations: 1 Salmo trutta, 2 Cyprinus carpio,
// 3 Salmonidae, 4 Salmo trutta. Specimen 2 also has a superseded
// determination as Salmo trutta.
func FixtureRows() []Row {
	rows := []Row{
		{CollectionID, map[string]any{"id": FishCollection, "collectionName": "Fish", "code": "ICH"}},
		{CollectionID, map[string]any{"id": HerpCollection, "collectionName": "Herpetology", "code": "HERP"}},

		{AgentID, map[string]any{"id": 1, "firstName": "Ann", "lastName": "Smith"}},
		{AgentID, map[string]any{"id": 2, "firstName": "Bo", "lastName": "Jones"}},

		{LocalityID, map[string]any{"id": 1, "localityName": "Lake Baikal", "latitude1": 53.5, "longitude1": 108.0}},
		{LocalityID, map[string]any{"id": 2, "localityName": "Rio Negro", "latitude1": -3.1, "longitude1": -60.0}},

		{CollectingEventID, map[string]any{"id": 1, "startDate": "2001-06-15", "stationFieldNumber": "BK-01", "locality": 1}},
		{CollectingEventID, map[string]any{"id": 2, "startDate": "1999-12-31", "stationFieldNumber": "RN-07", "locality": 2}},
		{CollectingEventID, map[string]any{"id": 3, "startDate": "2010-06-01", "stationFieldNumber": "BK-22", "locality": 1}},
	}

	ranks := []struct {
		id   int
		name string
		rank int
	}{{1, "Life", 0}, {2, "Kingdom", 10}, {3, "Order", 100}, {4, "Family", 140}, {5, "Genus", 180}, {6, "Species", 220}}
	for _, r := range ranks {
		rows = append(rows, Row{TaxonTreeDefItemID, map[string]any{"id": r.id, "name": r.name, "rankId": r.rank, "taxonTreeDefId": 1}})
	}

	taxa := []struct {
		id, parent, node, highest, item int
		name                            string
	}{
		{1, 0, 1, 9, 1, "Life"},
		{2, 1, 2, 9, 2, "Animalia"},
		{3, 2, 3, 6, 3, "Salmoniformes"},
		{4, 3, 4, 6, 4, "Salmonidae"},
		{5, 4, 5, 6, 5, "Salmo"},
		{6, 5, 6, 6, 6, "Salmo trutta"},
		{7, 2, 7, 9, 3, "Cypriniformes"},
		{8, 7, 8, 9, 4, "Cyprinidae"},
		{9, 8, 9, 9, 6, "Cyprinus carpio"},
	}
	for _, tx := range taxa {
		values := map[string]any{
			"id": tx.id, "name": tx.name, "fullName": tx.name,
			"nodeNumber": tx.node, "highestChildNodeNumber": tx.highest,
			"taxonTreeDefId": 1, "taxonTreeDefItemId": tx.item, "rankId": ranks[tx.item-1].rank,
		}
		if tx.parent != 0 {
			values["parent"] = tx.parent
		}
		rows = append(rows, Row{TaxonID, values})
	}

	rows = append(rows,
		Row{PrepTypeID, map[string]any{"id": 1, "name": "Skeleton", "isLoanable": true, "collectionId": FishCollection}},
		Row{PrepTypeID, map[string]any{"id": 2, "name": "Mummified", "isLoanable": false, "collectionId": FishCollection}},
		Row{PrepTypeID, map[string]any{"id": 3, "name": "EtOH", "isLoanable": true, "collectionId": FishCollection}},
		Row{PrepTypeID, map[string]any{"id": 4, "name": "Mummified", "isLoanable": false, "collectionId": HerpCollection}},

		Row{CollectionObjectID, map[string]any{"id": 1, "catalogNumber": "000001", "text1": "dry, 50% intact",
			"countAmt": 1, "catalogedDate": "2001-07-01", "yesNo1": true, "collectionMemberId": FishCollection,
			"collectingEvent": 1, "cataloger": 1, "collection": FishCollection}},
		Row{CollectionObjectID, map[string]any{"id": 2, "catalogNumber": "000002", "text1": "in jar",
			"countAmt": 3, "catalogedDate": "2000-01-15", "yesNo1": false, "collectionMemberId": FishCollection,
			"collectingEvent": 2, "cataloger": 2, "collection": FishCollection}},
		Row{CollectionObjectID, map[string]any{"id": 3, "catalogNumber": "000003",
			"catalogedDate": "2010-06-20", "collectionMemberId": FishCollection,
			"collectingEvent": 3, "cataloger": 1, "collection": FishCollection}},
		Row{CollectionObjectID, map[string]any{"id": 4, "catalogNumber": "000004", "text1": "DRY",
			"countAmt": 2, "catalogedDate": "2001-06-15", "yesNo1": true, "collectionMemberId": HerpCollection,
			"collectingEvent": 1, "cataloger": 1, "collection": HerpCollection}},

		Row{PreparationID, map[string]any{"id": 1, "collectionObject": 1, "prepType": 2, "countAmt": 1, "collectionMemberId": FishCollection}},
		Row{PreparationID, map[string]any{"id": 2, "collectionObject": 1, "prepType": 1, "countAmt": 1, "collectionMemberId": FishCollection}},
		Row{PreparationID, map[string]any{"id": 3, "collectionObject": 2, "prepType": 1, "countAmt": 3, "collectionMemberId": FishCollection}},
		Row{PreparationID, map[string]any{"id": 4, "collectionObject": 3, "prepType": 3, "countAmt": 5, "collectionMemberId": FishCollection}},
		Row{PreparationID, map[string]any{"id": 5, "collectionObject": 4, "prepType": 4, "countAmt": 2, "collectionMemberId": HerpCollection}},

		Row{DeterminationID, map[string]any{"id": 1, "collectionObject": 1, "taxon": 6, "isCurrent": true,
			"determinedDate": "2001-08-01", "typeStatusName": "Holotype", "determiner": 2, "collectionMemberId": FishCollection}},
		Row{DeterminationID, map[string]any{"id": 2, "collectionObject": 2, "taxon": 9, "isCurrent": true,
			"determinedDate": "2000-02-01", "determiner": 2, "collectionMemberId": FishCollection}},
		Row{DeterminationID, map[string]any{"id": 3, "collectionObject": 3, "taxon": 4, "isCurrent": true,
			"determinedDate": "2010-07-01", "typeStatusName": "Paratype", "determiner": 1, "collectionMemberId": FishCollection}},
		Row{DeterminationID, map[string]any{"id": 4, "collectionObject": 4, "taxon": 6, "isCurrent": true,
			"determinedDate": "2001-07-01", "determiner": 1, "collectionMemberId": HerpCollection}},
		Row{DeterminationID, map[string]any{"id": 5, "collectionObject": 2, "taxon": 6, "isCurrent": false,
			"determinedDate": "1999-01-01", "determiner": 1, "collectionMemberId": FishCollection}},
	)
	return rows
}

// Seed creates the fixture tables and inserts rows.
func Seed(ctx context.Context, s *store.Store, reg *schema.Registry, rows []Row) error {
	if err := s.CreateTables(ctx, reg); err != nil {
		return err
	}
	for i, row := range rows {
		t, err := reg.TableByID(row.Table)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := s.Insert(ctx, t, row.Values); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// NewMemoryStore opens an empty in-memory SQLite store closed at test end.
func NewMemoryStore(tb testing.TB) *store.Store {
	tb.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	if err != nil {
		tb.Fatalf("open memory store: %v", err)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}

// NewFixtureStore opens an in-memory store seeded with FixtureRows.
func NewFixtureStore(tb testing.TB) (*store.Store, *schema.Registry) {
	tb.Helper()
	s := NewMemoryStore(tb)
	reg := FixtureRegistry()
	if err := Seed(context.Background(), s, reg, FixtureRows()); err != nil {
		tb.Fatalf("seed fixture: %v", err)
	}
	return s, reg
}
