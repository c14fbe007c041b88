package viewsync

import (
	"encoding/json"
	"fmt"
	"sort"
)

// mergeChange applies a transformed change to an ordered record set and
// returns the resulting set.
//
// Inserts prepend the new record and drop the tail past limit. Updates
// replace every record whose id matches; an update for an unknown id is a
// no-op (no insert-on-update). Deletes remove every record whose id matches.
// After an insert or update the set is re-sorted when an ordering is set.
// Equal sort keys have no guaranteed relative order.
func mergeChange(records []Record, change *Change, orderBy *OrderBy, limit int) []Record {
	switch change.Kind {
	case ChangeKindInsert:
		if change.NewRecord == nil {
			return records
		}
		records = append([]Record{change.NewRecord}, records...)
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	case ChangeKindUpdate:
		if change.NewRecord == nil {
			return records
		}
		id, ok := change.NewRecord.ID()
		if !ok {
			return records
		}
		for i, rec := range records {
			if recID, ok := rec.ID(); ok && sameKey(recID, id) {
				records[i] = change.NewRecord
			}
		}
	case ChangeKindDelete:
		if change.OldRecord == nil {
			return records
		}
		id, ok := change.OldRecord.ID()
		if !ok {
			return records
		}
		kept := records[:0]
		for _, rec := range records {
			if recID, ok := rec.ID(); ok && sameKey(recID, id) {
				continue
			}
			kept = append(kept, rec)
		}
		return kept
	default:
		return records
	}

	if orderBy != nil {
		sortRecords(records, orderBy)
	}
	return records
}

// sortRecords sorts records in place by the given column. The sort is not
// stable for equal keys.
func sortRecords(records []Record, orderBy *OrderBy) {
	sort.Slice(records, func(i, j int) bool {
		c := compareValues(records[i][orderBy.Column], records[j][orderBy.Column])
		if orderBy.Ascending {
			return c < 0
		}
		return c > 0
	})
}

// compareValues is a type-sensitive comparator for sort keys. Nil sorts
// lowest, numbers compare by value, everything else compares as strings.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as := asString(a)
	bs := asString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// sameKey reports whether two id values identify the same record. Numeric
// ids compare by value so a snapshot int64 matches a stream-decoded float64.
func sameKey(a, b interface{}) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	if _, ok := asFloat(b); ok {
		return false
	}
	return asString(a) == asString(b)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
