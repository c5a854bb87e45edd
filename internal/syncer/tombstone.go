package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/attachments"
	"github.com/ledgerkeeper/ledgerkeeper/internal/logging"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

// Tombstones manages the soft-delete lifecycle: creating and restoring
// deletion markers plus the entity-specific side effects that go with them.
// Deleted records stay in the local store as tombstones until their
// retention window expires, so deletions survive sync and can be undone.
type Tombstones struct {
	records  records.Repository
	receipts attachments.Store
	log      logging.Logger
	deviceID string
}

func NewTombstones(repo records.Repository, receipts attachments.Store, log logging.Logger, deviceID string) *Tombstones {
	return &Tombstones{records: repo, receipts: receipts, log: log, deviceID: deviceID}
}

// Create soft-deletes a record: runs the side effects, stamps the tombstone
// fields and queues it for upload. Deleting an already soft-deleted record
// is a no-op.
func (t *Tombstones) Create(ctx context.Context, rec models.Record, now time.Time) error {
	if rec.Meta().SoftDeleted {
		return nil
	}
	if err := t.applyDeleteEffects(ctx, rec, true, now); err != nil {
		return err
	}
	rec.Meta().MarkDeleted(t.deviceID, now)
	return t.records.Save(ctx, rec)
}

// ApplyRemote runs the local side effects for a tombstone that arrived from
// the remote store. Attachments are not purged here: the deleting device
// already did that, and a second delete of the same key is at best a no-op.
func (t *Tombstones) ApplyRemote(ctx context.Context, rec models.Record, now time.Time) error {
	return t.applyDeleteEffects(ctx, rec, false, now)
}

// Restore undoes a soft delete. The payload must still pass validation;
// a record whose data no longer validates cannot come back.
func (t *Tombstones) Restore(ctx context.Context, rec models.Record, now time.Time) error {
	if !rec.Meta().SoftDeleted {
		return nil
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot restore %s %s: %w", rec.Type(), rec.Meta().ID, err)
	}
	rec.Meta().ClearTombstone(now)
	if err := t.applyRestoreEffects(ctx, rec, now); err != nil {
		return err
	}
	return t.records.Save(ctx, rec)
}

func (t *Tombstones) applyDeleteEffects(ctx context.Context, rec models.Record, purgeAttachments bool, now time.Time) error {
	switch e := rec.(type) {
	case *models.Expense:
		if e.ReceiptKey != "" {
			if purgeAttachments && t.receipts != nil {
				if err := t.receipts.Remove(ctx, e.ReceiptKey); err != nil {
					// The deletion itself must not hang on blob storage.
					t.log.Warn(ctx, "failed to purge receipt", "key", e.ReceiptKey, "error", err)
				}
			}
			e.ReceiptKey = ""
		}
	case *models.RecurringExpense:
		e.Active = false
		return t.markOrphans(ctx, rec.Meta().OwnerID, models.EntityExpense, rec.Meta().ID, true, now)
	case *models.RecurringIncome:
		e.Active = false
		return t.markOrphans(ctx, rec.Meta().OwnerID, models.EntityIncome, rec.Meta().ID, true, now)
	}
	return nil
}

func (t *Tombstones) applyRestoreEffects(ctx context.Context, rec models.Record, now time.Time) error {
	switch e := rec.(type) {
	case *models.RecurringExpense:
		e.Active = true
		return t.markOrphans(ctx, rec.Meta().OwnerID, models.EntityExpense, rec.Meta().ID, false, now)
	case *models.RecurringIncome:
		e.Active = true
		return t.markOrphans(ctx, rec.Meta().OwnerID, models.EntityIncome, rec.Meta().ID, false, now)
	}
	return nil
}

// markOrphans flags (or unflags) the occurrences generated by a recurring
// template. Occurrences are never cascade-deleted: the money was still spent
// or received, only the link back to the template is dead.
func (t *Tombstones) markOrphans(ctx context.Context, owner string, depType models.EntityType, templateID string, orphaned bool, now time.Time) error {
	deps, err := t.records.List(ctx, records.Filter{
		OwnerID:     owner,
		Type:        depType,
		GeneratedBy: templateID,
	}, records.OrderUpdatedAtDesc)
	if err != nil {
		return err
	}

	changed := deps[:0]
	for _, d := range deps {
		var flag *bool
		switch e := d.(type) {
		case *models.Expense:
			flag = &e.Orphaned
		case *models.Income:
			flag = &e.Orphaned
		default:
			continue
		}
		if *flag == orphaned {
			continue
		}
		*flag = orphaned
		d.Meta().MarkLocalChange(now)
		changed = append(changed, d)
	}
	if len(changed) == 0 {
		return nil
	}
	t.log.Debug(ctx, "flagged template occurrences", "template", templateID, "type", depType, "orphaned", orphaned, "count", len(changed))
	return t.records.Save(ctx, changed...)
}
