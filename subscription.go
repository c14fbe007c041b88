package viewsync

import (
	"fmt"
	"strings"
)

// ColumnFilter is a single column equality predicate.
type ColumnFilter struct {
	Column string      `json:"column" yaml:"column"`
	Value  interface{} `json:"value" yaml:"value"`
}

// OrderBy describes an ordering over a single comparable column.
type OrderBy struct {
	Column    string `json:"column" yaml:"column"`
	Ascending bool   `json:"ascending" yaml:"ascending"`
}

// SubscriptionRequest describes one live view subscription. Requests are
// immutable once active: changing any field means tearing the subscription
// down and creating a new one.
//
// Filter is an ordered list rather than a map because only the first pair is
// pushed to the stream as a server-side narrowing; the remaining pairs apply
// to the snapshot query alone, and stream consumers must not assume the
// server enforces them.
type SubscriptionRequest struct {
	View    string         `json:"view" yaml:"view"`
	Filter  []ColumnFilter `json:"filter,omitempty" yaml:"filter,omitempty"`
	OrderBy *OrderBy       `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit   int            `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Key returns the registry identity for the request. Two requests with the
// same view, filters, ordering, and limit share a subscription.
func (r SubscriptionRequest) Key() string {
	var b strings.Builder
	b.WriteString(r.View)
	for _, f := range r.Filter {
		fmt.Fprintf(&b, "|%s=%v", f.Column, f.Value)
	}
	if r.OrderBy != nil {
		dir := "desc"
		if r.OrderBy.Ascending {
			dir = "asc"
		}
		fmt.Fprintf(&b, "|order:%s.%s", r.OrderBy.Column, dir)
	}
	if r.Limit > 0 {
		fmt.Fprintf(&b, "|limit:%d", r.Limit)
	}
	return b.String()
}
