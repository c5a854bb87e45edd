package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// downloadCollection pulls every document changed since the collection
// watermark, merges each against local state and advances the watermark only
// after the merged records are durably stored. Re-running the same pull is
// therefore always safe.
func (e *Engine) downloadCollection(ctx context.Context, t models.EntityType) error {
	since, err := e.watermark(ctx, t)
	if err != nil {
		return err
	}

	var docs map[string]wire.Document
	if err := e.withRetry(ctx, func(ctx context.Context) error {
		var listErr error
		docs, listErr = e.remote.ListChangedSince(ctx, t.Collection(), since)
		return listErr
	}); err != nil {
		return fmt.Errorf("list %s since %s: %w", t, since, err)
	}
	if len(docs) == 0 {
		return nil
	}
	e.log.Debug(ctx, "pulled remote changes", "collection", t, "count", len(docs))

	high := since
	var toSave []models.Record
	for id, doc := range docs {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: merge of %s interrupted", common.ErrCancelled, t)
		}
		if ts, err := doc.UpdatedAt(); err == nil && ts.After(high) {
			high = ts
		}

		rec, err := e.mergeDocument(ctx, t, id, doc)
		if err != nil {
			if errors.Is(err, common.ErrDataCorruption) {
				// One bad document must not block the collection.
				e.log.Warn(ctx, "skipping corrupt document", "collection", t, "id", id, "error", err)
				continue
			}
			return err
		}
		if rec != nil {
			toSave = append(toSave, rec)
		}
	}

	if len(toSave) > 0 {
		if err := e.records.Save(ctx, toSave...); err != nil {
			return err
		}
	}
	e.bump(func(s *Status) { s.Downloaded += len(docs) })
	if high.After(since) {
		if err := e.advanceWatermark(ctx, t, high); err != nil {
			return err
		}
	}
	return nil
}

// mergeDocument decides what a remote document does to local state and
// returns the record to store, or nil when local state stands.
func (e *Engine) mergeDocument(ctx context.Context, t models.EntityType, id string, doc wire.Document) (models.Record, error) {
	remoteRec, err := decodeDocument(t, e.owner, doc)
	if err != nil {
		return nil, err
	}

	local, err := e.records.Get(ctx, e.owner, t, id)
	if errors.Is(err, common.ErrNotFound) {
		if remoteRec.Meta().SoftDeleted {
			// A tombstone for a record we never had: storing it would only
			// resurrect data as a deletion marker. Ignore it.
			e.log.Debug(ctx, "ignoring tombstone for unknown record", "collection", t, "id", id)
			return nil, nil
		}
		return remoteRec, nil
	}
	if err != nil {
		return nil, err
	}

	if local.Meta().SyncStatus == models.StatusConflict {
		// Already parked for the user; just refresh the remote side.
		e.refreshConflictRemote(t, id, remoteRec)
		return nil, nil
	}

	if remoteRec.Meta().SoftDeleted {
		return e.mergeTombstone(ctx, t, id, local, remoteRec)
	}
	return e.mergeUpdate(t, id, local, remoteRec)
}

// mergeTombstone weighs a remote deletion against the local record. The
// deletion timestamp decides: a tombstone older than the local state is a
// stale event and loses, a newer one applies directly unless it collides
// with an un-uploaded local edit, in which case the strategy decides.
func (e *Engine) mergeTombstone(ctx context.Context, t models.EntityType, id string, local, remoteRec models.Record) (models.Record, error) {
	lm, rm := local.Meta(), remoteRec.Meta()

	if rm.DeletedAt == nil || !rm.DeletedAt.After(lm.UpdatedAt) {
		// Local state is at least as new as the deletion. It stands, and
		// gets re-asserted remotely on the next push.
		if !hasPendingChange(lm.SyncStatus) {
			lm.MarkLocalChange(e.now())
			return local, nil
		}
		return nil, nil
	}

	if !hasPendingChange(lm.SyncStatus) {
		// No concurrent edit: the deletion is simply the latest event.
		return local, e.entomb(ctx, local, remoteRec)
	}

	switch e.cfg.Strategy {
	case StrategyLocalWins:
		// The pending local change stands and will be uploaded.
		return nil, nil
	case StrategyUserChoice:
		e.addConflict(t, id, models.Clone(local), remoteRec)
		lm.SyncStatus = models.StatusConflict
		return local, nil
	default: // remoteWins; newestWins agrees, the deletion is strictly newer
		return local, e.entomb(ctx, local, remoteRec)
	}
}

// mergeUpdate weighs a remote live document against the local record.
// Only a strictly newer remote version can displace local state; on a tie
// the local side is never overwritten.
func (e *Engine) mergeUpdate(t models.EntityType, id string, local, remoteRec models.Record) (models.Record, error) {
	lm, rm := local.Meta(), remoteRec.Meta()

	if !rm.UpdatedAt.After(lm.UpdatedAt) {
		return nil, nil
	}

	if !hasPendingChange(lm.SyncStatus) {
		// Covers resurrection too: a live document newer than a synced
		// local tombstone means another device restored the record.
		return remoteRec, nil
	}

	switch e.cfg.Strategy {
	case StrategyLocalWins:
		return nil, nil
	case StrategyUserChoice:
		e.addConflict(t, id, models.Clone(local), remoteRec)
		lm.SyncStatus = models.StatusConflict
		return local, nil
	default: // remoteWins; newestWins agrees, the remote edit is strictly newer
		return remoteRec, nil
	}
}

// entomb applies a remote tombstone onto the local record. The local payload
// is kept: tombstone documents carry only an audit snapshot, and a later
// restore needs the full payload back.
func (e *Engine) entomb(ctx context.Context, local, remoteRec models.Record) error {
	lm, rm := local.Meta(), remoteRec.Meta()
	if !lm.SoftDeleted {
		if err := e.tomb.ApplyRemote(ctx, local, e.now()); err != nil {
			return err
		}
	}
	lm.SoftDeleted = true
	lm.DeletedAt = rm.DeletedAt
	lm.DeletedBy = rm.DeletedBy
	lm.UpdatedAt = rm.UpdatedAt
	lm.MarkSynced()
	return nil
}
