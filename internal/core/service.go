package core

import (
	"context"
	"sort"

	"ordercore/pkg/domain"
)

// Service exposes transactional CRUD and reordering operations over the
// ordered collections. It is stateless between calls; all state lives in the
// backing store.
type Service struct {
	store domain.PersistentStore
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore) *Service {
	return &Service{store: store}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Reorder replaces the display order of an owner's collection.
//
// The request must be a full resequence: the submitted ids, taken together,
// must be exactly the scope's active ids. Entries are ranked by their
// submitted sort order and stored with normalized keys 0..n-1, which keeps
// sort orders unique without any merge logic. A non-zero expectedRevision is
// compared against the scope's current revision inside the transaction;
// a mismatch means a concurrent edit won and the caller must re-fetch.
//
// Validation runs before any write, and the store commits all-or-nothing, so
// a failed reorder leaves the stored order exactly as it was.
func (s *Service) Reorder(ctx context.Context, ownerID string, resource domain.ResourceType, updates []domain.OrderUpdate, expectedRevision uint64) (uint64, error) {
	if !resource.Valid() {
		return 0, domain.InvalidRequestError{Reason: "unknown resource type"}
	}
	if ownerID == "" {
		return 0, domain.InvalidRequestError{Reason: "owner required"}
	}
	if len(updates) == 0 {
		return 0, domain.InvalidRequestError{Reason: "updates must be a non-empty list"}
	}
	seenIDs := make(map[string]struct{}, len(updates))
	seenOrders := make(map[int]struct{}, len(updates))
	for _, u := range updates {
		if u.ID == "" {
			return 0, domain.InvalidRequestError{Reason: "update entry missing id"}
		}
		if _, dup := seenIDs[u.ID]; dup {
			return 0, domain.InvalidRequestError{Reason: "duplicate id " + u.ID + " in updates"}
		}
		seenIDs[u.ID] = struct{}{}
		if _, dup := seenOrders[u.SortOrder]; dup {
			return 0, domain.InvalidRequestError{Reason: "duplicate sortOrder values in updates"}
		}
		seenOrders[u.SortOrder] = struct{}{}
	}

	scope := domain.Scope{OwnerID: ownerID, Resource: resource}
	var revision uint64
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var missing []string
		for _, u := range updates {
			item, ok := tx.FindItem(resource, u.ID)
			if !ok {
				missing = append(missing, u.ID)
				continue
			}
			if item.OwnerID != ownerID {
				return domain.ForbiddenError{Resource: resource, ID: u.ID}
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return domain.NotFoundError{Resource: resource, IDs: missing}
		}

		active := tx.ListItems(scope)
		if len(active) != len(updates) {
			return domain.InvalidRequestError{Reason: "updates must cover the full collection (stale client state)"}
		}
		for _, item := range active {
			if _, ok := seenIDs[item.ID]; !ok {
				return domain.InvalidRequestError{Reason: "updates missing active id " + item.ID + " (stale client state)"}
			}
		}

		if expectedRevision != 0 {
			if current := tx.Revision(scope); current != expectedRevision {
				return domain.ConflictError{Scope: scope, Expected: expectedRevision, Current: current}
			}
		}

		resequenced := make([]domain.OrderUpdate, len(updates))
		copy(resequenced, updates)
		sort.SliceStable(resequenced, func(i, j int) bool {
			return resequenced[i].SortOrder < resequenced[j].SortOrder
		})
		for i := range resequenced {
			resequenced[i].SortOrder = i
		}
		if err := tx.ApplyOrderUpdates(scope, resequenced); err != nil {
			return domain.StorageError{Op: "apply order updates", Err: err}
		}
		revision = tx.Revision(scope)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revision, nil
}

// CreateItem persists a new item with a sort order appended after the current
// maximum for its scope.
func (s *Service) CreateItem(ctx context.Context, ownerID string, resource domain.ResourceType, payload map[string]any) (domain.OrderedItem, error) {
	if !resource.Valid() {
		return domain.OrderedItem{}, domain.InvalidRequestError{Reason: "unknown resource type"}
	}
	if ownerID == "" {
		return domain.OrderedItem{}, domain.InvalidRequestError{Reason: "owner required"}
	}
	scope := domain.Scope{OwnerID: ownerID, Resource: resource}
	var created domain.OrderedItem
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		existing := tx.ListItems(scope)
		orders := make([]int, 0, len(existing))
		for _, item := range existing {
			orders = append(orders, item.SortOrder)
		}
		var err error
		created, err = tx.CreateItem(domain.OrderedItem{
			OwnerID:   ownerID,
			Resource:  resource,
			SortOrder: NextOrder(orders),
			Payload:   payload,
		})
		if err != nil {
			return domain.StorageError{Op: "create", Err: err}
		}
		return nil
	})
	if err != nil {
		return domain.OrderedItem{}, err
	}
	return created, nil
}

// UpdatePayload mutates an item's payload fields. Sort order is untouched.
func (s *Service) UpdatePayload(ctx context.Context, ownerID string, resource domain.ResourceType, id string, mutator func(map[string]any) error) (domain.OrderedItem, error) {
	var updated domain.OrderedItem
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		item, ok := tx.FindItem(resource, id)
		if !ok {
			return domain.NotFoundError{Resource: resource, IDs: []string{id}}
		}
		if item.OwnerID != ownerID {
			return domain.ForbiddenError{Resource: resource, ID: id}
		}
		var err error
		updated, err = tx.UpdatePayload(resource, id, mutator)
		if err != nil {
			return domain.StorageError{Op: "update payload", Err: err}
		}
		return nil
	})
	if err != nil {
		return domain.OrderedItem{}, err
	}
	return updated, nil
}

// DeleteItem removes an item. Survivors keep their sort orders; gaps are
// tolerated until the next reorder normalizes them.
func (s *Service) DeleteItem(ctx context.Context, ownerID string, resource domain.ResourceType, id string) error {
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		item, ok := tx.FindItem(resource, id)
		if !ok {
			return domain.NotFoundError{Resource: resource, IDs: []string{id}}
		}
		if item.OwnerID != ownerID {
			return domain.ForbiddenError{Resource: resource, ID: id}
		}
		if err := tx.DeleteItem(resource, id); err != nil {
			return domain.StorageError{Op: "delete", Err: err}
		}
		return nil
	})
	return err
}

// GetItem retrieves a single item within the caller's scope.
func (s *Service) GetItem(_ context.Context, ownerID string, resource domain.ResourceType, id string) (domain.OrderedItem, error) {
	item, ok := s.store.GetItem(resource, id)
	if !ok {
		return domain.OrderedItem{}, domain.NotFoundError{Resource: resource, IDs: []string{id}}
	}
	if item.OwnerID != ownerID {
		return domain.OrderedItem{}, domain.ForbiddenError{Resource: resource, ID: id}
	}
	return item, nil
}

// ListItems returns the scope's items in ascending sort order together with
// the scope revision the listing was read at.
func (s *Service) ListItems(ctx context.Context, ownerID string, resource domain.ResourceType) ([]domain.OrderedItem, uint64, error) {
	if !resource.Valid() {
		return nil, 0, domain.InvalidRequestError{Reason: "unknown resource type"}
	}
	scope := domain.Scope{OwnerID: ownerID, Resource: resource}
	var items []domain.OrderedItem
	var revision uint64
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		items = view.ListItems(scope)
		revision = view.Revision(scope)
		return nil
	})
	if err != nil {
		return nil, 0, domain.StorageError{Op: "list", Err: err}
	}
	return items, revision, nil
}
