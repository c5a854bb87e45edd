package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

type conflictKey struct {
	t  models.EntityType
	id string
}

// Conflict is one record edited concurrently on both sides, waiting for the
// user to pick a winner. Local is a snapshot taken before any merging.
type Conflict struct {
	Type       models.EntityType
	ID         string
	Local      models.Record
	Remote     models.Record
	DetectedAt time.Time
}

// Resolution is the user's verdict on a conflict.
type Resolution string

const (
	KeepLocal  Resolution = "keepLocal"
	KeepRemote Resolution = "keepRemote"
)

func (e *Engine) addConflict(t models.EntityType, id string, local, remoteRec models.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conflicts[conflictKey{t, id}] = &Conflict{
		Type:       t,
		ID:         id,
		Local:      local,
		Remote:     remoteRec,
		DetectedAt: e.now(),
	}
	e.status.Conflicts = len(e.conflicts)
}

// refreshConflictRemote replaces the remote side of an already recorded
// conflict when a newer document arrives before the user has resolved it.
func (e *Engine) refreshConflictRemote(t models.EntityType, id string, remoteRec models.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.conflicts[conflictKey{t, id}]; ok {
		c.Remote = remoteRec
	}
}

// hydrateConflicts rebuilds the in-memory queue from records persisted in
// conflict state. Parked conflicts outlive the process only in the records
// table, so this runs once before the queue is first consulted after a
// restart; the remote side of each entry is re-fetched from the store.
func (e *Engine) hydrateConflicts(ctx context.Context) error {
	e.mu.Lock()
	done := e.hydrated
	e.mu.Unlock()
	if done {
		return nil
	}

	for _, t := range models.SyncOrder() {
		parked, err := e.records.List(ctx, records.Filter{
			OwnerID:  e.owner,
			Type:     t,
			Statuses: []models.SyncStatus{models.StatusConflict},
		}, records.OrderUpdatedAtDesc)
		if err != nil {
			return err
		}
		for _, local := range parked {
			e.mu.Lock()
			_, ok := e.conflicts[conflictKey{t, local.Meta().ID}]
			e.mu.Unlock()
			if ok {
				continue
			}
			if err := e.rebuildConflict(ctx, t, local); err != nil {
				return err
			}
		}
	}

	e.mu.Lock()
	e.hydrated = true
	e.mu.Unlock()
	return nil
}

// rebuildConflict re-creates one queue entry for a parked record. A remote
// side that is gone or unreadable leaves nothing to conflict with, so the
// local state is re-queued for upload instead.
func (e *Engine) rebuildConflict(ctx context.Context, t models.EntityType, local models.Record) error {
	lm := local.Meta()
	doc, err := e.remote.Get(ctx, t.Collection(), lm.ID)
	if errors.Is(err, common.ErrNotFound) {
		lm.MarkLocalChange(e.now())
		return e.records.Save(ctx, local)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemoteOperationFailed, err)
	}

	remoteRec, err := decodeDocument(t, e.owner, doc)
	if err != nil {
		e.log.Warn(ctx, "re-queueing conflict with unreadable remote document", "collection", t, "id", lm.ID, "error", err)
		lm.MarkLocalChange(e.now())
		return e.records.Save(ctx, local)
	}

	e.addConflict(t, lm.ID, models.Clone(local), remoteRec)
	return nil
}

// settleStrayConflicts clears parked conflicts left over from an earlier
// run, typically one that used the userChoice strategy before the setting
// changed. Under an automatic strategy nothing may stay parked across a
// pass; under userChoice the entries stay queued for the user.
func (e *Engine) settleStrayConflicts(ctx context.Context) error {
	if e.cfg.Strategy == StrategyUserChoice {
		return nil
	}
	cs, err := e.PendingConflicts(ctx)
	if err != nil {
		return err
	}
	for _, c := range cs {
		verdict := KeepRemote
		switch {
		case e.cfg.Strategy == StrategyLocalWins:
			verdict = KeepLocal
		case e.cfg.Strategy == StrategyNewestWins && c.Local.Meta().UpdatedAt.After(remoteStamp(c.Remote)):
			verdict = KeepLocal
		}
		if err := e.Resolve(ctx, c.Type, c.ID, verdict); err != nil {
			return err
		}
	}
	return nil
}

// remoteStamp is the instant the remote side of a conflict happened: the
// deletion time for a tombstone, the edit time otherwise.
func remoteStamp(rec models.Record) time.Time {
	m := rec.Meta()
	if m.SoftDeleted && m.DeletedAt != nil {
		return *m.DeletedAt
	}
	return m.UpdatedAt
}

// PendingConflicts returns the conflicts awaiting user resolution, ordered
// by detection time.
func (e *Engine) PendingConflicts(ctx context.Context) ([]Conflict, error) {
	if err := e.hydrateConflicts(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Conflict, 0, len(e.conflicts))
	for _, c := range e.conflicts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// Resolve settles a parked conflict with the user's verdict. KeepLocal
// re-queues the local state for upload; KeepRemote accepts the remote state
// and marks it synced.
func (e *Engine) Resolve(ctx context.Context, t models.EntityType, id string, verdict Resolution) error {
	if err := e.hydrateConflicts(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	c, ok := e.conflicts[conflictKey{t, id}]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no pending conflict for %s %s", common.ErrNotFound, t, id)
	}

	local, err := e.records.Get(ctx, e.owner, t, id)
	if err != nil {
		return err
	}

	switch verdict {
	case KeepLocal:
		local.Meta().MarkLocalChange(e.now())
		if err := e.records.Save(ctx, local); err != nil {
			return err
		}

	case KeepRemote:
		winner := c.Remote
		if winner.Meta().SoftDeleted {
			if err := e.entomb(ctx, local, winner); err != nil {
				return err
			}
			winner = local
		}
		if err := e.records.Save(ctx, winner); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown resolution %q", verdict)
	}

	e.mu.Lock()
	delete(e.conflicts, conflictKey{t, id})
	e.status.Conflicts = len(e.conflicts)
	e.mu.Unlock()
	return nil
}
