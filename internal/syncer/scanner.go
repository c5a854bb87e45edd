package syncer

import (
	"context"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

// pendingStatuses are the states that mark a local mutation awaiting upload.
// Failed records are included so the next pass retries them, and so are
// records left syncing by a pass that died mid-push: only one pass runs at
// a time, so any syncing row seen at scan time is stale. Records parked in
// conflict state are deliberately not included.
func pendingStatuses() []models.SyncStatus {
	return []models.SyncStatus{
		models.StatusCreated,
		models.StatusUpdated,
		models.StatusDeleted,
		models.StatusFailed,
		models.StatusSyncing,
	}
}

func hasPendingChange(s models.SyncStatus) bool {
	return s.Pending() || s == models.StatusFailed || s == models.StatusSyncing
}

// scanPending lists the local records queued for upload in upload priority
// order: deletions first, so a payload about to be superseded by its own
// tombstone never goes out.
func (e *Engine) scanPending(ctx context.Context, t models.EntityType) ([]models.Record, error) {
	return e.records.List(ctx, records.Filter{
		OwnerID:  e.owner,
		Type:     t,
		Statuses: pendingStatuses(),
	}, records.OrderUploadPriority)
}
