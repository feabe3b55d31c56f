package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Every method either applies fully on commit or not
// at all on error.
type Transaction interface {
	// CreateItem stores a new item. A blank ID is assigned by the store.
	CreateItem(item OrderedItem) (OrderedItem, error)
	// UpdatePayload mutates an item's payload fields, leaving its order intact.
	UpdatePayload(resource ResourceType, id string, mutator func(map[string]any) error) (OrderedItem, error)
	// DeleteItem removes an item. Surviving orders are not renumbered.
	DeleteItem(resource ResourceType, id string) error
	// ApplyOrderUpdates assigns new sort orders to every listed id within the
	// scope. All updates land together or none do.
	ApplyOrderUpdates(scope Scope, updates []OrderUpdate) error
	// FindItem retrieves an item by id regardless of owner.
	FindItem(resource ResourceType, id string) (OrderedItem, bool)
	// ListItems returns the scope's active items in ascending sort order.
	ListItems(scope Scope) []OrderedItem
	// Revision returns the scope's monotonic modification counter.
	Revision(scope Scope) uint64
}

// TransactionView provides read-only access to committed or in-flight state.
type TransactionView interface {
	FindItem(resource ResourceType, id string) (OrderedItem, bool)
	ListItems(scope Scope) []OrderedItem
	Revision(scope Scope) uint64
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetItem(resource ResourceType, id string) (OrderedItem, bool)
	ListItems(scope Scope) []OrderedItem
	Revision(scope Scope) uint64
}
