package viewsync

import (
	"context"
)

// QueryOptions carries the predicates applied to a snapshot read.
type QueryOptions struct {
	// Filters are AND-combined equality predicates.
	Filters []ColumnFilter
	OrderBy *OrderBy
	// Limit caps the number of rows returned. Zero or negative means no cap.
	Limit int
}

// SnapshotStore is the interface for the one-time read that seeds a record
// set before live updates begin. Queries run against the logical view name,
// not the source table, since the view may expose derived or renamed columns.
type SnapshotStore interface {
	Query(ctx context.Context, view string, opts QueryOptions) ([]Record, error)
}

// EventPredicate scopes a stream binding to a subset of changes.
type EventPredicate struct {
	// Kind restricts the binding to one change kind. Empty matches all kinds.
	Kind   ChangeKind
	Schema string
	Table  string
	// Filter is an optional single-column equality narrowing.
	Filter *ColumnFilter
}

// Matches reports whether a change satisfies the predicate.
func (p EventPredicate) Matches(c *Change) bool {
	if p.Kind != "" && p.Kind != c.Kind {
		return false
	}
	if p.Schema != "" && p.Schema != c.Schema {
		return false
	}
	if p.Table != "" && p.Table != c.Table {
		return false
	}
	if p.Filter != nil {
		v, ok := c.GetNewColumnValue(p.Filter.Column)
		if !ok {
			v, ok = c.GetOldColumnValue(p.Filter.Column)
		}
		if !ok || !sameKey(v, p.Filter.Value) {
			return false
		}
	}
	return true
}

// Channel is a single stream binding scope. Handlers are registered with On
// before Subscribe opens the channel; the status callback receives channel
// lifecycle transitions.
type Channel interface {
	On(pred EventPredicate, fn func(*Change))
	Subscribe(status func(ChannelStatus)) error
}

// ChannelProvider is the interface for implementing a change-stream transport.
type ChannelProvider interface {
	OpenChannel(topic string) Channel
	CloseChannel(ch Channel) error
}
