package viewsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionRequestKey(t *testing.T) {
	base := SubscriptionRequest{
		View:    "health",
		Filter:  []ColumnFilter{{Column: "location_id", Value: "L1"}},
		OrderBy: &OrderBy{Column: "created_at", Ascending: false},
		Limit:   10,
	}

	same := SubscriptionRequest{
		View:    "health",
		Filter:  []ColumnFilter{{Column: "location_id", Value: "L1"}},
		OrderBy: &OrderBy{Column: "created_at", Ascending: false},
		Limit:   10,
	}
	assert.Equal(t, base.Key(), same.Key())

	variants := []SubscriptionRequest{
		{View: "risk", Filter: base.Filter, OrderBy: base.OrderBy, Limit: base.Limit},
		{View: "health", Filter: []ColumnFilter{{Column: "location_id", Value: "L2"}}, OrderBy: base.OrderBy, Limit: base.Limit},
		{View: "health", Filter: base.Filter, OrderBy: &OrderBy{Column: "created_at", Ascending: true}, Limit: base.Limit},
		{View: "health", Filter: base.Filter, OrderBy: base.OrderBy, Limit: 20},
		{View: "health", Filter: base.Filter, OrderBy: base.OrderBy},
		{View: "health"},
	}

	for _, v := range variants {
		assert.NotEqual(t, base.Key(), v.Key())
	}
}

func TestEventPredicateMatches(t *testing.T) {
	change := &Change{
		Kind:      ChangeKindInsert,
		Schema:    "public",
		Table:     "climate_data",
		NewRecord: Record{"id": "c1", "location_id": "L1"},
	}

	assert.True(t, EventPredicate{Schema: "public", Table: "climate_data"}.Matches(change))
	assert.True(t, EventPredicate{Kind: ChangeKindInsert, Schema: "public", Table: "climate_data"}.Matches(change))
	assert.True(t, EventPredicate{
		Schema: "public",
		Table:  "climate_data",
		Filter: &ColumnFilter{Column: "location_id", Value: "L1"},
	}.Matches(change))

	assert.False(t, EventPredicate{Kind: ChangeKindDelete, Schema: "public", Table: "climate_data"}.Matches(change))
	assert.False(t, EventPredicate{Schema: "audit", Table: "climate_data"}.Matches(change))
	assert.False(t, EventPredicate{Schema: "public", Table: "land_health"}.Matches(change))
	assert.False(t, EventPredicate{
		Schema: "public",
		Table:  "climate_data",
		Filter: &ColumnFilter{Column: "location_id", Value: "L2"},
	}.Matches(change))
	assert.False(t, EventPredicate{
		Schema: "public",
		Table:  "climate_data",
		Filter: &ColumnFilter{Column: "missing_col", Value: "x"},
	}.Matches(change))
}

func TestEventPredicateFilterFallsBackToOldRecord(t *testing.T) {
	change := &Change{
		Kind:      ChangeKindDelete,
		Schema:    "public",
		Table:     "climate_data",
		OldRecord: Record{"id": "c1", "location_id": "L1"},
	}

	assert.True(t, EventPredicate{
		Schema: "public",
		Table:  "climate_data",
		Filter: &ColumnFilter{Column: "location_id", Value: "L1"},
	}.Matches(change))
}
