package syncer

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/remote"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

// uploadCollection pushes every pending local record of one type. Failures
// are isolated per record: a record that cannot be pushed is marked failed
// and the rest of the collection continues.
func (e *Engine) uploadCollection(ctx context.Context, t models.EntityType) error {
	pending, err := e.scanPending(ctx, t)
	if err != nil {
		// A scan failure for one type must not block the others; treat it
		// as no pending records and let the next pass retry.
		e.log.Error(ctx, "pending scan failed", "collection", t, "error", err)
		return nil
	}

	for _, rec := range pending {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: upload of %s interrupted", common.ErrCancelled, t)
		}
		m := rec.Meta()
		orig := m.SyncStatus
		m.SyncStatus = models.StatusSyncing
		if err := e.records.Save(ctx, rec); err != nil {
			return err
		}

		if err := e.pushRecord(ctx, rec, orig); err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-push: put the record back in its queue state.
				m.SyncStatus = orig
				if saveErr := e.records.Save(ctx, rec); saveErr != nil {
					e.log.Error(ctx, "failed to restore record status after cancel", "collection", t, "id", m.ID, "error", saveErr)
				}
				return fmt.Errorf("%w: upload of %s interrupted", common.ErrCancelled, t)
			}
			e.log.Error(ctx, "upload failed", "collection", t, "id", m.ID, "error", err)
			m.SyncStatus = models.StatusFailed
			if err := e.records.Save(ctx, rec); err != nil {
				return err
			}
			e.bump(func(s *Status) { s.Failed++ })
			continue
		}

		m.MarkSynced()
		if err := e.records.Save(ctx, rec); err != nil {
			return err
		}
		e.bump(func(s *Status) { s.Uploaded++ })
	}
	return nil
}

// pushRecord performs the remote write for one pending record. Tombstones
// are upserted as deletion markers so other devices can pick them up; only
// a record marked deleted without a tombstone is removed outright.
func (e *Engine) pushRecord(ctx context.Context, rec models.Record, orig models.SyncStatus) error {
	m := rec.Meta()
	coll := rec.Type().Collection()

	switch {
	case m.SoftDeleted:
		switch rec.Type() {
		case models.EntityRecurringExpense:
			return e.pushTemplateTombstone(ctx, rec, models.EntityExpense)
		case models.EntityRecurringIncome:
			return e.pushTemplateTombstone(ctx, rec, models.EntityIncome)
		}
		return e.withRetry(ctx, func(ctx context.Context) error {
			return e.remote.Upsert(ctx, coll, m.ID, tombstoneDoc(rec))
		})

	case orig == models.StatusDeleted:
		// Administrative hard delete: no tombstone was kept locally.
		return e.withRetry(ctx, func(ctx context.Context) error {
			return e.remote.Delete(ctx, coll, m.ID)
		})

	default:
		return e.withRetry(ctx, func(ctx context.Context) error {
			return e.remote.Upsert(ctx, coll, m.ID, encodeRecord(rec))
		})
	}
}

// pushTemplateTombstone uploads a recurring template tombstone together with
// its pending orphan-flagged occurrences in one remote transaction, so other
// devices never observe a dead template with still-linked occurrences. The
// occurrences are marked synced here and skipped by their own collection
// pass later.
func (e *Engine) pushTemplateTombstone(ctx context.Context, rec models.Record, depType models.EntityType) error {
	m := rec.Meta()
	deps, err := e.records.List(ctx, records.Filter{
		OwnerID:     e.owner,
		Type:        depType,
		GeneratedBy: m.ID,
		Statuses:    pendingStatuses(),
	}, records.OrderUploadPriority)
	if err != nil {
		return err
	}

	ops := []remote.BatchOp{{
		Kind:       remote.OpUpsert,
		Collection: rec.Type().Collection(),
		ID:         m.ID,
		Doc:        tombstoneDoc(rec),
	}}
	for _, d := range deps {
		doc := encodeRecord(d)
		if d.Meta().SoftDeleted {
			doc = tombstoneDoc(d)
		}
		ops = append(ops, remote.BatchOp{
			Kind:       remote.OpUpsert,
			Collection: depType.Collection(),
			ID:         d.Meta().ID,
			Doc:        doc,
		})
	}

	if err := e.withRetry(ctx, func(ctx context.Context) error {
		return e.remote.RunTransaction(ctx, ops)
	}); err != nil {
		return err
	}

	if len(deps) > 0 {
		for _, d := range deps {
			d.Meta().MarkSynced()
		}
		if err := e.records.Save(ctx, deps...); err != nil {
			return err
		}
		e.bump(func(s *Status) { s.Uploaded += len(deps) })
	}
	return nil
}

// withRetry runs a remote write with exponential backoff and wraps the final
// failure into the remote error class.
func (e *Engine) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(e.cfg.RetryCount, retry.NewExponential(e.cfg.RetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteOperationFailed, err)
	}
	return nil
}
