// Package memory provides an in-memory implementation of the persistence
// contracts used for tests and ephemeral environments, and as the
// transactional engine wrapped by the durable backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"ordercore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// OrderedItem aliases domain.OrderedItem for in-memory persistence operations.
	OrderedItem = domain.OrderedItem
	// Scope aliases domain.Scope.
	Scope = domain.Scope
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
)

type state struct {
	items     map[domain.ResourceType]map[string]OrderedItem
	revisions map[Scope]uint64
}

func newState() state {
	items := make(map[domain.ResourceType]map[string]OrderedItem, len(domain.ResourceTypes))
	for _, r := range domain.ResourceTypes {
		items[r] = make(map[string]OrderedItem)
	}
	return state{items: items, revisions: make(map[Scope]uint64)}
}

func (s state) clone() state {
	cloned := newState()
	for r, bucket := range s.items {
		for id, item := range bucket {
			cloned.items[r][id] = cloneItem(item)
		}
	}
	for scope, rev := range s.revisions {
		cloned.revisions[scope] = rev
	}
	return cloned
}

func cloneItem(i OrderedItem) OrderedItem {
	cp := i
	if i.Payload != nil {
		cp.Payload = make(map[string]any, len(i.Payload))
		for k, v := range i.Payload {
			cp.Payload[k] = v
		}
	}
	return cp
}

// Store provides an in-memory transactional store for ordered collections.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	state   state
	changes []Change
	now     time.Time
}

var _ domain.Transaction = (*Transaction)(nil)

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces committed state only when fn returns nil, so a
// failing transaction leaves every sort order exactly as it was.
func (s *Store) RunInTransaction(_ context.Context, fn func(domain.Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	s.state = tx.state
	return Result{Changes: tx.changes}, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(&Transaction{state: snapshot})
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *Transaction) bucket(resource domain.ResourceType) (map[string]OrderedItem, error) {
	bucket, ok := tx.state.items[resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource type %q", resource)
	}
	return bucket, nil
}

func (tx *Transaction) bumpRevision(scope Scope) {
	tx.state.revisions[scope]++
}

// CreateItem stores a new item within the transaction.
func (tx *Transaction) CreateItem(item OrderedItem) (OrderedItem, error) {
	bucket, err := tx.bucket(item.Resource)
	if err != nil {
		return OrderedItem{}, err
	}
	if item.OwnerID == "" {
		return OrderedItem{}, fmt.Errorf("item owner required")
	}
	if item.ID == "" {
		item.ID = newID()
	}
	if _, exists := bucket[item.ID]; exists {
		return OrderedItem{}, fmt.Errorf("%s %q already exists", item.Resource, item.ID)
	}
	item.CreatedAt = tx.now
	item.UpdatedAt = tx.now
	if item.Payload == nil {
		item.Payload = map[string]any{}
	}
	bucket[item.ID] = cloneItem(item)
	tx.bumpRevision(item.Scope())
	tx.recordChange(Change{Resource: item.Resource, Action: domain.ActionCreate, After: cloneItem(item)})
	return cloneItem(item), nil
}

// UpdatePayload mutates an item's payload using the provided mutator. The
// item's sort order is never touched here.
func (tx *Transaction) UpdatePayload(resource domain.ResourceType, id string, mutator func(map[string]any) error) (OrderedItem, error) {
	bucket, err := tx.bucket(resource)
	if err != nil {
		return OrderedItem{}, err
	}
	current, ok := bucket[id]
	if !ok {
		return OrderedItem{}, fmt.Errorf("%s %q not found", resource, id)
	}
	before := cloneItem(current)
	updated := cloneItem(current)
	if err := mutator(updated.Payload); err != nil {
		return OrderedItem{}, err
	}
	updated.UpdatedAt = tx.now
	bucket[id] = cloneItem(updated)
	tx.bumpRevision(updated.Scope())
	tx.recordChange(Change{Resource: resource, Action: domain.ActionUpdate, Before: before, After: cloneItem(updated)})
	return cloneItem(updated), nil
}

// DeleteItem removes an item from the transaction state. Survivors keep
// their sort orders; gaps are tolerated.
func (tx *Transaction) DeleteItem(resource domain.ResourceType, id string) error {
	bucket, err := tx.bucket(resource)
	if err != nil {
		return err
	}
	current, ok := bucket[id]
	if !ok {
		return fmt.Errorf("%s %q not found", resource, id)
	}
	delete(bucket, id)
	tx.bumpRevision(current.Scope())
	tx.recordChange(Change{Resource: resource, Action: domain.ActionDelete, Before: cloneItem(current)})
	return nil
}

// ApplyOrderUpdates assigns new sort orders to the listed ids. Every id must
// resolve inside the scope; the whole batch is rejected otherwise, so the
// commit is all-or-nothing.
func (tx *Transaction) ApplyOrderUpdates(scope Scope, updates []OrderUpdate) error {
	bucket, err := tx.bucket(scope.Resource)
	if err != nil {
		return err
	}
	staged := make(map[string]OrderedItem, len(updates))
	for _, u := range updates {
		current, ok := bucket[u.ID]
		if !ok || current.OwnerID != scope.OwnerID {
			return fmt.Errorf("%s %q not found in scope %s", scope.Resource, u.ID, scope.OwnerID)
		}
		item := cloneItem(current)
		item.SortOrder = u.SortOrder
		item.UpdatedAt = tx.now
		staged[u.ID] = item
	}
	for id, item := range staged {
		bucket[id] = item
	}
	tx.bumpRevision(scope)
	tx.recordChange(Change{Resource: scope.Resource, Action: domain.ActionReorder, After: len(updates)})
	return nil
}

// OrderUpdate aliases domain.OrderUpdate.
type OrderUpdate = domain.OrderUpdate

// FindItem retrieves an item by id from the transaction snapshot.
func (tx *Transaction) FindItem(resource domain.ResourceType, id string) (OrderedItem, bool) {
	bucket, ok := tx.state.items[resource]
	if !ok {
		return OrderedItem{}, false
	}
	item, ok := bucket[id]
	if !ok {
		return OrderedItem{}, false
	}
	return cloneItem(item), true
}

// ListItems returns the scope's items in ascending sort order.
func (tx *Transaction) ListItems(scope Scope) []OrderedItem {
	return listScope(tx.state, scope)
}

// Revision returns the scope's modification counter within the snapshot.
func (tx *Transaction) Revision(scope Scope) uint64 {
	return tx.state.revisions[scope]
}

func listScope(st state, scope Scope) []OrderedItem {
	bucket := st.items[scope.Resource]
	out := make([]OrderedItem, 0, len(bucket))
	for _, item := range bucket {
		if item.OwnerID == scope.OwnerID {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Read helpers ---------------------------------------------------------------

// GetItem retrieves an item by id from committed state.
func (s *Store) GetItem(resource domain.ResourceType, id string) (OrderedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.state.items[resource]
	if !ok {
		return OrderedItem{}, false
	}
	item, ok := bucket[id]
	if !ok {
		return OrderedItem{}, false
	}
	return cloneItem(item), true
}

// ListItems returns the scope's committed items in ascending sort order.
func (s *Store) ListItems(scope Scope) []OrderedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listScope(s.state, scope)
}

// Revision returns the scope's committed modification counter.
func (s *Store) Revision(scope Scope) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.revisions[scope]
}

// Snapshot carries the full store contents for durable backends.
type Snapshot struct {
	Parameters        []OrderedItem     `json:"parameters"`
	ExcludeParameters []OrderedItem     `json:"exclude_parameters"`
	Extras            []OrderedItem     `json:"extras"`
	Revisions         map[string]uint64 `json:"revisions"`
}

// scopeKey flattens a Scope for JSON snapshot encoding.
func scopeKey(s Scope) string { return s.OwnerID + "/" + string(s.Resource) }

func parseScopeKey(key string) (Scope, bool) {
	for _, r := range domain.ResourceTypes {
		suffix := "/" + string(r)
		if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
			return Scope{OwnerID: key[:len(key)-len(suffix)], Resource: r}, true
		}
	}
	return Scope{}, false
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := Snapshot{Revisions: make(map[string]uint64, len(s.state.revisions))}
	for _, item := range s.state.items[domain.ResourceParameter] {
		snapshot.Parameters = append(snapshot.Parameters, cloneItem(item))
	}
	for _, item := range s.state.items[domain.ResourceExcludeParameter] {
		snapshot.ExcludeParameters = append(snapshot.ExcludeParameters, cloneItem(item))
	}
	for _, item := range s.state.items[domain.ResourceExtra] {
		snapshot.Extras = append(snapshot.Extras, cloneItem(item))
	}
	for scope, rev := range s.state.revisions {
		snapshot.Revisions[scopeKey(scope)] = rev
	}
	sortSnapshot(&snapshot)
	return snapshot
}

func sortSnapshot(s *Snapshot) {
	byID := func(items []OrderedItem) {
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	}
	byID(s.Parameters)
	byID(s.ExcludeParameters)
	byID(s.Extras)
}

// ImportState replaces the committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newState()
	load := func(resource domain.ResourceType, items []OrderedItem) {
		for _, item := range items {
			item.Resource = resource
			st.items[resource][item.ID] = cloneItem(item)
		}
	}
	load(domain.ResourceParameter, snapshot.Parameters)
	load(domain.ResourceExcludeParameter, snapshot.ExcludeParameters)
	load(domain.ResourceExtra, snapshot.Extras)
	for key, rev := range snapshot.Revisions {
		if scope, ok := parseScopeKey(key); ok {
			st.revisions[scope] = rev
		}
	}
	s.state = st
}
