package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ordercore/internal/blob"
	"ordercore/pkg/domain"
)

// Archive is the JSON document written for one owner's configuration export.
type Archive struct {
	OwnerID     string              `json:"owner_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Collections []ArchiveCollection `json:"collections"`
}

// ArchiveCollection carries one resource type's ordered items and the
// revision the export was read at.
type ArchiveCollection struct {
	Resource domain.ResourceType  `json:"resource"`
	Revision uint64               `json:"revision"`
	Items    []domain.OrderedItem `json:"items"`
}

// Archiver exports owner configuration snapshots to blob storage.
type Archiver struct {
	store domain.PersistentStore
	blobs blob.Store
	nowFn func() time.Time
}

// NewArchiver constructs an archiver over the given stores.
func NewArchiver(store domain.PersistentStore, blobs blob.Store) *Archiver {
	return &Archiver{
		store: store,
		blobs: blobs,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func archiveKey(ownerID string, ts time.Time) string {
	return fmt.Sprintf("archives/%s/%s.json", ownerID, ts.Format("20060102T150405.000000000Z"))
}

// Export snapshots every collection of the owner inside one read view and
// writes the result as a single JSON archive blob.
func (a *Archiver) Export(ctx context.Context, ownerID string) (blob.Info, error) {
	if ownerID == "" {
		return blob.Info{}, domain.InvalidRequestError{Reason: "owner required"}
	}
	archive := Archive{OwnerID: ownerID, CreatedAt: a.nowFn()}
	err := a.store.View(ctx, func(view domain.TransactionView) error {
		for _, resource := range domain.ResourceTypes {
			scope := domain.Scope{OwnerID: ownerID, Resource: resource}
			archive.Collections = append(archive.Collections, ArchiveCollection{
				Resource: resource,
				Revision: view.Revision(scope),
				Items:    view.ListItems(scope),
			})
		}
		return nil
	})
	if err != nil {
		return blob.Info{}, domain.StorageError{Op: "snapshot", Err: err}
	}
	payload, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode archive: %w", err)
	}
	info, err := a.blobs.Put(ctx, archiveKey(ownerID, archive.CreatedAt), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"owner_id": ownerID},
	})
	if err != nil {
		return blob.Info{}, domain.StorageError{Op: "write archive", Err: err}
	}
	return info, nil
}

// List enumerates the owner's stored archives in key (timestamp) order.
func (a *Archiver) List(ctx context.Context, ownerID string) ([]blob.Info, error) {
	if ownerID == "" {
		return nil, domain.InvalidRequestError{Reason: "owner required"}
	}
	infos, err := a.blobs.List(ctx, "archives/"+ownerID+"/")
	if err != nil {
		return nil, domain.StorageError{Op: "list archives", Err: err}
	}
	return infos, nil
}
