package memory

import (
	"context"
	"errors"
	"testing"

	"ordercore/pkg/domain"
)

func TestTransactionRollbackLeavesStateUntouched(t *testing.T) {
	store := NewStore()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceParameter}); err != nil {
			return err
		}
		return errors.New("boom")
	}); err == nil {
		t.Fatalf("expected error from transaction")
	}
	if items := store.ListItems(Scope{OwnerID: "o1", Resource: domain.ResourceParameter}); len(items) != 0 {
		t.Fatalf("rolled back create leaked %d items", len(items))
	}
	if rev := store.Revision(Scope{OwnerID: "o1", Resource: domain.ResourceParameter}); rev != 0 {
		t.Fatalf("rolled back create bumped revision to %d", rev)
	}
}

func TestApplyOrderUpdatesIsAllOrNothing(t *testing.T) {
	store := NewStore()
	scope := Scope{OwnerID: "o1", Resource: domain.ResourceExtra}
	var a, b OrderedItem
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if a, err = tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceExtra, SortOrder: 0}); err != nil {
			return err
		}
		b, err = tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceExtra, SortOrder: 1})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ApplyOrderUpdates(scope, []OrderUpdate{
			{ID: b.ID, SortOrder: 0},
			{ID: "missing", SortOrder: 1},
		})
	})
	if err == nil {
		t.Fatalf("expected error for unknown id")
	}
	items := store.ListItems(scope)
	if items[0].ID != a.ID || items[0].SortOrder != 0 || items[1].ID != b.ID || items[1].SortOrder != 1 {
		t.Fatalf("partial order update leaked: %+v", items)
	}
}

func TestApplyOrderUpdatesRejectsForeignItems(t *testing.T) {
	store := NewStore()
	var foreign OrderedItem
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		foreign, err = tx.CreateItem(domain.OrderedItem{OwnerID: "o2", Resource: domain.ResourceExtra})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.ApplyOrderUpdates(Scope{OwnerID: "o1", Resource: domain.ResourceExtra}, []OrderUpdate{{ID: foreign.ID, SortOrder: 0}})
	})
	if err == nil {
		t.Fatalf("expected error for item outside scope")
	}
}

func TestRevisionBumpsPerScope(t *testing.T) {
	store := NewStore()
	s1 := Scope{OwnerID: "o1", Resource: domain.ResourceParameter}
	s2 := Scope{OwnerID: "o1", Resource: domain.ResourceExtra}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceParameter})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.Revision(s1) != 1 {
		t.Fatalf("expected revision 1, got %d", store.Revision(s1))
	}
	if store.Revision(s2) != 0 {
		t.Fatalf("sibling scope revision moved to %d", store.Revision(s2))
	}
}

func TestClonedReadsAreIsolated(t *testing.T) {
	store := NewStore()
	var created OrderedItem
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceParameter, Payload: map[string]any{"name": "a"}})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok := store.GetItem(domain.ResourceParameter, created.ID)
	if !ok {
		t.Fatalf("item not found")
	}
	got.Payload["name"] = "mutated"
	again, _ := store.GetItem(domain.ResourceParameter, created.ID)
	if again.Payload["name"] != "a" {
		t.Fatalf("caller mutation leaked into committed state")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore()
	scope := Scope{OwnerID: "o1", Resource: domain.ResourceExcludeParameter}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for i := 0; i < 3; i++ {
			if _, err := tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceExcludeParameter}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snapshot := store.ExportState()
	restored := NewStore()
	restored.ImportState(snapshot)

	if got := len(restored.ListItems(scope)); got != 3 {
		t.Fatalf("expected 3 items after import, got %d", got)
	}
	if restored.Revision(scope) != store.Revision(scope) {
		t.Fatalf("revision lost in round trip: %d vs %d", restored.Revision(scope), store.Revision(scope))
	}
}

func TestUpdatePayloadPreservesOrder(t *testing.T) {
	store := NewStore()
	var created OrderedItem
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceParameter, SortOrder: 7})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdatePayload(domain.ResourceParameter, created.ID, func(payload map[string]any) error {
			payload["name"] = "renamed"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.GetItem(domain.ResourceParameter, created.ID)
	if got.SortOrder != 7 {
		t.Fatalf("payload update moved sort order to %d", got.SortOrder)
	}
}
