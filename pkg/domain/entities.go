// Package domain defines the persistent entities, ordering value types, and
// persistence contracts used by ordercore.
package domain

import "time"

// ResourceType identifies one of the independently ordered collections.
type ResourceType string

// Supported resource type identifiers used in Change records and persistence buckets.
const (
	// ResourceParameter identifies a pricing parameter record.
	ResourceParameter ResourceType = "parameter"
	// ResourceExcludeParameter identifies an exclude-parameter record.
	ResourceExcludeParameter ResourceType = "exclude_parameter"
	// ResourceExtra identifies an add-on extra record.
	ResourceExtra ResourceType = "extra"
)

// ResourceTypes lists every ordered collection in bucket order.
var ResourceTypes = []ResourceType{ResourceParameter, ResourceExcludeParameter, ResourceExtra}

// Valid reports whether r names a known ordered collection.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceParameter, ResourceExcludeParameter, ResourceExtra:
		return true
	}
	return false
}

// Scope is the tenant boundary within which sort keys are unique. All
// ordering operations are confined to a single scope.
type Scope struct {
	OwnerID  string       `json:"owner_id"`
	Resource ResourceType `json:"resource"`
}

// OrderedItem is one record of an ordered collection. SortOrder is unique
// within its scope; reordering never changes ID, OwnerID, or Payload.
type OrderedItem struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Resource  ResourceType   `json:"resource"`
	SortOrder int            `json:"sort_order"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Scope returns the item's owning scope.
func (i OrderedItem) Scope() Scope {
	return Scope{OwnerID: i.OwnerID, Resource: i.Resource}
}

// OrderUpdate is a single entry of a reorder request: the id of an item and
// the target position submitted for it.
type OrderUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// Action identifies the kind of mutation captured in a Change record.
type Action string

// Actions recorded by transactions.
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReorder Action = "reorder"
)

// Change captures one mutation applied within a transaction, for audit trails
// and snapshot exporters.
type Change struct {
	Resource ResourceType `json:"resource"`
	Action   Action       `json:"action"`
	Before   any          `json:"before,omitempty"`
	After    any          `json:"after,omitempty"`
}

// Result summarizes a committed transaction.
type Result struct {
	Changes []Change `json:"changes,omitempty"`
}
