// Package records implements the local persistent store for synced entities:
// one generic repository over SQLite instead of six hand-duplicated ones.
// Typed payloads are stored as JSON; the lifecycle metadata lives in columns
// so the sync engine can filter and order on it.
package records

import (
	"context"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
)

// Filter narrows List and Count. Zero values mean "no constraint", except
// OwnerID and Type which callers always set.
type Filter struct {
	OwnerID string
	Type    models.EntityType

	IDs         []string
	Statuses    []models.SyncStatus
	SoftDeleted *bool
	GeneratedBy string
	// DeletedBefore selects tombstones older than the given instant.
	DeletedBefore time.Time
}

// Order selects the result ordering of List.
type Order int

const (
	// OrderUpdatedAtDesc lists most recently touched records first.
	OrderUpdatedAtDesc Order = iota
	// OrderUploadPriority lists deletions before updates before creates,
	// oldest change first within each group. Deletions go out first so a
	// payload about to be superseded by a tombstone is not re-uploaded.
	OrderUploadPriority
)

// Repository is the local store interface the sync engine consumes.
type Repository interface {
	// Get returns one record or common.ErrNotFound.
	Get(ctx context.Context, owner string, t models.EntityType, id string) (models.Record, error)

	// List returns all records matching f in the given order.
	List(ctx context.Context, f Filter, order Order) ([]models.Record, error)

	// Count returns the number of records matching f.
	Count(ctx context.Context, f Filter) (int, error)

	// Save upserts the given records in a single transaction.
	Save(ctx context.Context, recs ...models.Record) error

	// Purge physically removes a record. Only used for tombstones past
	// their retention window and administrative hard deletes.
	Purge(ctx context.Context, owner string, t models.EntityType, id string) error
}
