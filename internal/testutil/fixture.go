package testutil

import (
	"strings"

	"github.com/specify/storedq/internal/schema"
)

// Table ids of the fixture schema. They follow the collections platform's
// numbering so stringIds in tests read like real saved queries.
const (
	CollectionObjectID = 1
	LocalityID         = 2
	TaxonID            = 4
	AgentID            = 5
	DeterminationID    = 9
	CollectingEventID  = 10
	CollectionID       = 23
	PreparationID      = 63
	PrepTypeID         = 65
	TaxonTreeDefItemID = 77
)

// Collection (tenant) ids used by the seeded data.
const (
	FishCollection = 4
	HerpCollection = 5
)

func text(name string) schema.FieldDescription {
	return schema.FieldDescription{Name: name, Column: lower(name), Type: schema.TypeText}
}

func integer(name string) schema.FieldDescription {
	return schema.FieldDescription{Name: name, Column: lower(name), Type: schema.TypeInteger}
}

func field(name string, typ schema.FieldType) schema.FieldDescription {
	return schema.FieldDescription{Name: name, Column: lower(name), Type: typ}
}

func toOne(name string, target int, column string) schema.RelationshipDescription {
	return schema.RelationshipDescription{Name: name, Target: target, Kind: schema.ManyToOne, Column: column}
}

func toMany(name string, target int, column string) schema.RelationshipDescription {
	return schema.RelationshipDescription{Name: name, Target: target, Kind: schema.OneToMany, Column: column}
}

func lower(s string) string { return strings.ToLower(s) }

func memberScope() *schema.ScopeDescription {
	return &schema.ScopeDescription{Field: "collectionMemberId"}
}

// FixtureDescription returns a small schema shaped like the collections
// platform: specimens with preparations and determinations, a taxon tree
// with its rank table, and collecting events with localities.
// Each call returns a fresh value.
func FixtureDescription() schema.Description {
	return schema.Description{Tables: []schema.TableDescription{
		{
			ID: CollectionObjectID, Name: "CollectionObject", IDColumn: "collectionobjectid",
			Fields: []schema.FieldDescription{
				text("catalogNumber"),
				text("text1"),
				integer("countAmt"),
				field("catalogedDate", schema.TypeDate),
				field("yesNo1", schema.TypeBoolean),
				integer("collectionMemberId"),
			},
			Relationships: []schema.RelationshipDescription{
				toOne("collectingEvent", CollectingEventID, "collectingeventid"),
				toOne("cataloger", AgentID, "catalogerid"),
				toOne("collection", CollectionID, "collectionid"),
				toMany("preparations", PreparationID, "collectionobjectid"),
				toMany("determinations", DeterminationID, "collectionobjectid"),
			},
			Scope: memberScope(),
		},
		{
			ID: LocalityID, Name: "Locality", IDColumn: "localityid",
			Fields: []schema.FieldDescription{
				text("localityName"),
				field("latitude1", schema.TypeFloat),
				field("longitude1", schema.TypeFloat),
			},
		},
		{
			ID: TaxonID, Name: "Taxon", IDColumn: "taxonid",
			Fields: []schema.FieldDescription{
				text("name"),
				text("fullName"),
				integer("rankId"),
				integer("nodeNumber"),
				integer("highestChildNodeNumber"),
				integer("taxonTreeDefId"),
				integer("taxonTreeDefItemId"),
			},
			Relationships: []schema.RelationshipDescription{
				toOne("parent", TaxonID, "parentid"),
			},
			Tree: &schema.TreeDescription{
				Definition:             "taxonTreeDefId",
				DefinitionItem:         "taxonTreeDefItemId",
				NodeNumber:             "nodeNumber",
				HighestChildNodeNumber: "highestChildNodeNumber",
			},
		},
		{
			ID: AgentID, Name: "Agent", IDColumn: "agentid",
			Fields: []schema.FieldDescription{
				text("firstName"),
				text("lastName"),
			},
		},
		{
			ID: DeterminationID, Name: "Determination", IDColumn: "determinationid",
			Fields: []schema.FieldDescription{
				field("isCurrent", schema.TypeBoolean),
				field("determinedDate", schema.TypeDate),
				{Name: "typeStatusName", Column: "typestatusname", Type: schema.TypeEnum,
					Values: []string{"Holotype", "Paratype", "Neotype"}},
				integer("collectionMemberId"),
			},
			Relationships: []schema.RelationshipDescription{
				toOne("collectionObject", CollectionObjectID, "collectionobjectid"),
				toOne("taxon", TaxonID, "taxonid"),
				toOne("determiner", AgentID, "determinerid"),
			},
			Scope: memberScope(),
		},
		{
			ID: CollectingEventID, Name: "CollectingEvent", IDColumn: "collectingeventid",
			Fields: []schema.FieldDescription{
				field("startDate", schema.TypeDate),
				text("stationFieldNumber"),
			},
			Relationships: []schema.RelationshipDescription{
				toOne("locality", LocalityID, "localityid"),
			},
		},
		{
			ID: CollectionID, Name: "Collection", IDColumn: "collectionid",
			Fields: []schema.FieldDescription{
				text("collectionName"),
				text("code"),
			},
		},
		{
			ID: PreparationID, Name: "Preparation", IDColumn: "preparationid",
			Fields: []schema.FieldDescription{
				integer("countAmt"),
				text("remarks"),
				integer("collectionMemberId"),
			},
			Relationships: []schema.RelationshipDescription{
				toOne("collectionObject", CollectionObjectID, "collectionobjectid"),
				toOne("prepType", PrepTypeID, "preptypeid"),
			},
			Scope: memberScope(),
		},
		{
			ID: PrepTypeID, Name: "PrepType", IDColumn: "preptypeid",
			Fields: []schema.FieldDescription{
				text("name"),
				field("isLoanable", schema.TypeBoolean),
				integer("collectionId"),
			},
			Scope: &schema.ScopeDescription{Field: "collectionId"},
		},
		{
			ID: TaxonTreeDefItemID, Name: "TaxonTreeDefItem", IDColumn: "taxontreedefitemid",
			Fields: []schema.FieldDescription{
				text("name"),
				integer("rankId"),
				integer("taxonTreeDefId"),
			},
		},
	}}
}

// FixtureRegistry builds the registry of FixtureDescription.
// It panics on error; the fixture is static.
func FixtureRegistry() *schema.Registry {
	reg, err := schema.NewRegistry(FixtureDescription())
	if err != nil {
		panic("testutil: fixture schema: " + err.Error())
	}
	return reg
}
