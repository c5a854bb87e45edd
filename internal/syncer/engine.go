package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/logging"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/remote"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/metadata"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

// Phase is the coarse state of a sync pass.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDownloading Phase = "downloading"
	PhaseResolving   Phase = "resolving"
	PhaseUploading   Phase = "uploading"
)

// Status is a snapshot of the engine state, safe to read from any goroutine.
type Status struct {
	Phase      Phase
	Collection models.EntityType
	// Progress runs from 0 to 1 across a whole pass.
	Progress   float64
	Downloaded int
	Uploaded   int
	Failed     int
	Conflicts  int
	LastError  error
	LastSyncAt time.Time
}

// progressFor maps the phase and collection index onto the 0..1 scale:
// downloads cover the first 45% of a pass, maintenance the next 10%,
// uploads the rest.
func progressFor(p Phase, idx int) float64 {
	n := float64(len(models.SyncOrder()))
	switch p {
	case PhaseDownloading:
		return 0.45 * float64(idx) / n
	case PhaseResolving:
		return 0.45
	case PhaseUploading:
		return 0.55 + 0.45*float64(idx)/n
	default:
		return 0
	}
}

// Engine orchestrates a sync pass: download and merge remote changes per
// collection in dependency order, run maintenance, then upload pending local
// changes in the same order. At most one pass runs at a time; a second Sync
// call while one is running returns ErrSyncInProgress.
type Engine struct {
	cfg     Config
	owner   string
	records records.Repository
	meta    metadata.Repository
	remote  remote.Store
	tomb    *Tombstones
	log     logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	status    Status
	conflicts map[conflictKey]*Conflict
	hydrated  bool
}

func New(cfg Config, owner string, repo records.Repository, meta metadata.Repository, store remote.Store, tomb *Tombstones, log logging.Logger) *Engine {
	if !cfg.Strategy.Valid() {
		cfg.Strategy = StrategyNewestWins
	}
	def := DefaultConfig()
	if cfg.DefaultRetention <= 0 {
		cfg.DefaultRetention = def.DefaultRetention
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = def.RetryCount
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	return &Engine{
		cfg:       cfg,
		owner:     owner,
		records:   repo,
		meta:      meta,
		remote:    store,
		tomb:      tomb,
		log:       log.With("component", "syncer"),
		now:       time.Now,
		status:    Status{Phase: PhaseIdle},
		conflicts: make(map[conflictKey]*Conflict),
	}
}

// Sync runs one full pass. Partial progress survives cancellation and
// errors: merged collections keep their advanced watermarks and uploaded
// records stay synced.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return common.ErrSyncInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	last := e.status.LastSyncAt
	e.status = Status{Phase: PhaseDownloading, Conflicts: len(e.conflicts), LastSyncAt: last}
	e.mu.Unlock()
	defer cancel()

	err := e.run(ctx)

	e.mu.Lock()
	e.running = false
	e.cancel = nil
	e.status.Phase = PhaseIdle
	e.status.Collection = ""
	e.status.LastError = err
	e.status.Conflicts = len(e.conflicts)
	if err == nil {
		e.status.Progress = 1
		e.status.LastSyncAt = e.now()
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) run(ctx context.Context) error {
	if err := e.checkPrerequisites(ctx); err != nil {
		return err
	}

	var downloadErr error
	for i, t := range models.SyncOrder() {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: download interrupted", common.ErrCancelled)
		}
		e.setPhase(PhaseDownloading, t, i)
		if err := e.downloadCollection(ctx, t); err != nil {
			if errors.Is(err, common.ErrRemoteOperationFailed) {
				// One collection failing to pull must not block the rest;
				// its watermark stays put and the next pass retries it.
				e.log.Error(ctx, "download failed", "collection", t, "error", err)
				if downloadErr == nil {
					downloadErr = err
				}
				continue
			}
			return err
		}
	}

	e.setPhase(PhaseResolving, "", 0)
	if err := e.purgeExpiredTombstones(ctx); err != nil {
		// Maintenance failure leaves stale tombstones around, nothing worse.
		e.log.Warn(ctx, "tombstone purge failed", "error", err)
	}
	if err := e.hydrateConflicts(ctx); err != nil {
		return err
	}
	if err := e.settleStrayConflicts(ctx); err != nil {
		return err
	}

	for i, t := range models.SyncOrder() {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: upload interrupted", common.ErrCancelled)
		}
		e.setPhase(PhaseUploading, t, i)
		if err := e.uploadCollection(ctx, t); err != nil {
			return err
		}
	}

	if downloadErr != nil {
		return downloadErr
	}

	e.mu.Lock()
	n := len(e.conflicts)
	e.mu.Unlock()
	if n > 0 {
		return fmt.Errorf("%w: %d record(s) awaiting resolution", common.ErrConflictUnresolved, n)
	}
	return nil
}

func (e *Engine) checkPrerequisites(ctx context.Context) error {
	if e.owner == "" {
		return fmt.Errorf("%w: not logged in", common.ErrPrerequisiteNotMet)
	}
	if e.cfg.DeviceID == "" {
		return fmt.Errorf("%w: device identifier not initialized", common.ErrPrerequisiteNotMet)
	}
	if err := e.remote.Ping(ctx); err != nil {
		return fmt.Errorf("%w: remote unreachable: %v", common.ErrPrerequisiteNotMet, err)
	}
	return nil
}

// Cancel aborts the running pass, if any. The pass stops at the next
// collection or document boundary; completed work is kept.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// FullResync drops every pull watermark and runs a pass that re-downloads
// all collections from the beginning of time. Local pending changes are
// merged and uploaded as in a regular pass.
func (e *Engine) FullResync(ctx context.Context) error {
	if err := e.meta.Clear(ctx, common.WatermarkKeyPrefix); err != nil {
		return err
	}
	return e.Sync(ctx)
}

func (e *Engine) setPhase(p Phase, t models.EntityType, idx int) {
	e.mu.Lock()
	e.status.Phase = p
	e.status.Collection = t
	e.status.Progress = progressFor(p, idx)
	e.mu.Unlock()
}

func (e *Engine) bump(fn func(s *Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

func watermarkKey(t models.EntityType) string {
	return common.WatermarkKeyPrefix + t.Collection()
}

// watermark returns the last pull position for the collection, or the zero
// time when none is stored yet. An unparsable value falls back to zero: a
// full re-pull is safe, just slower.
func (e *Engine) watermark(ctx context.Context, t models.EntityType) (time.Time, error) {
	raw, err := e.meta.Get(ctx, watermarkKey(t))
	if err != nil {
		return time.Time{}, err
	}
	if raw == nil {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		e.log.Warn(ctx, "discarding corrupt watermark", "collection", t, "value", string(raw))
		return time.Time{}, nil
	}
	return ts, nil
}

func (e *Engine) advanceWatermark(ctx context.Context, t models.EntityType, ts time.Time) error {
	return e.meta.Set(ctx, watermarkKey(t), []byte(ts.UTC().Format(time.RFC3339Nano)))
}

// purgeExpiredTombstones physically removes synced tombstones older than the
// per-type retention window. Pending tombstones are never purged: their
// deletion has not reached the remote yet.
func (e *Engine) purgeExpiredTombstones(ctx context.Context) error {
	deleted := true
	for _, t := range models.SyncOrder() {
		cutoff := e.now().Add(-e.cfg.RetentionFor(t))
		recs, err := e.records.List(ctx, records.Filter{
			OwnerID:       e.owner,
			Type:          t,
			Statuses:      []models.SyncStatus{models.StatusSynced},
			SoftDeleted:   &deleted,
			DeletedBefore: cutoff,
		}, records.OrderUpdatedAtDesc)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if err := e.records.Purge(ctx, e.owner, t, r.Meta().ID); err != nil {
				return err
			}
			e.log.Debug(ctx, "purged expired tombstone", "collection", t, "id", r.Meta().ID)
		}
	}
	return nil
}
