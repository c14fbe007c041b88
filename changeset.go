package viewsync

import (
	"fmt"
	"strings"
	"time"
)

// ChangeKind is the type for change kinds
type ChangeKind string

// ChangeKind constants
const (
	ChangeKindInsert ChangeKind = "insert"
	ChangeKindUpdate ChangeKind = "update"
	ChangeKindDelete ChangeKind = "delete"
)

// ParseChangeKind parses a change kind from a string.
func ParseChangeKind(kind string) ChangeKind {
	switch strings.ToLower(kind) {
	case "insert":
		return ChangeKindInsert
	case "update":
		return ChangeKindUpdate
	case "delete":
		return ChangeKindDelete
	default:
		return ""
	}
}

// Record is a single row in view shape. Rows carry a stable unique `id`
// column alongside whatever columns the view exposes.
type Record map[string]interface{}

// ID returns the record's `id` value and a bool denoting whether one is present.
func (r Record) ID() (interface{}, bool) {
	id, ok := r["id"]
	return id, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Change represents a single mutation on a Postgres table.
// Inserts carry NewRecord only, deletes carry OldRecord only, and updates
// carry NewRecord and usually OldRecord.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	Schema    string     `json:"schema"`
	Table     string     `json:"table"`
	Timestamp time.Time  `json:"timestamp"`
	NewRecord Record     `json:"new_record"`
	OldRecord Record     `json:"old_record"`
}

// String implements Stringer to create a useful string representation of a Change.
func (c *Change) String() string {
	return fmt.Sprintf("{kind: %s, schema: %s, table: %s, timestamp: %s}", c.Kind, c.Schema, c.Table, c.Timestamp)
}

// GetNewColumnValue returns the new value for a column and a bool denoting
// whether the column is present in the new record.
func (c *Change) GetNewColumnValue(column string) (interface{}, bool) {
	if c.NewRecord == nil {
		return nil, false
	}
	v, ok := c.NewRecord[column]
	return v, ok
}

// GetOldColumnValue returns the previous value for a column and a bool denoting
// whether the column is present in the old record.
func (c *Change) GetOldColumnValue(column string) (interface{}, bool) {
	if c.OldRecord == nil {
		return nil, false
	}
	v, ok := c.OldRecord[column]
	return v, ok
}
