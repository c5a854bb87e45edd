// Package models defines the synced entity types and the per-record
// lifecycle metadata shared by all of them.
package models

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// EntityType identifies one synced collection.
type EntityType string

const (
	EntityCategory         EntityType = "category"
	EntityBudget           EntityType = "budget"
	EntityRecurringExpense EntityType = "recurring_expense"
	EntityRecurringIncome  EntityType = "recurring_income"
	EntityIncome           EntityType = "income"
	EntityExpense          EntityType = "expense"
)

// SyncOrder returns entity types in fixed dependency order: independent
// entities first, since the remote store enforces no referential integrity
// and a Category must exist locally before an Expense referencing it merges.
func SyncOrder() []EntityType {
	return []EntityType{
		EntityCategory,
		EntityBudget,
		EntityRecurringExpense,
		EntityRecurringIncome,
		EntityIncome,
		EntityExpense,
	}
}

// Collection returns the remote collection name for the entity type.
func (t EntityType) Collection() string { return string(t) }

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCategory, EntityBudget, EntityRecurringExpense,
		EntityRecurringIncome, EntityIncome, EntityExpense:
		return true
	}
	return false
}

// SyncStatus is the per-record synchronization state.
type SyncStatus string

const (
	StatusCreated  SyncStatus = "created"
	StatusUpdated  SyncStatus = "updated"
	StatusDeleted  SyncStatus = "deleted"
	StatusSynced   SyncStatus = "synced"
	StatusSyncing  SyncStatus = "syncing"
	StatusConflict SyncStatus = "conflict"
	StatusFailed   SyncStatus = "failed"
)

// Pending reports whether the status marks a local mutation awaiting upload.
func (s SyncStatus) Pending() bool {
	return s == StatusCreated || s == StatusUpdated || s == StatusDeleted
}

// SyncMeta carries the lifecycle fields every synced record embeds.
//
// Invariants: SoftDeleted == true implies DeletedAt != nil;
// SoftDeleted == false implies DeletedAt == nil and DeletedBy == "".
// A record with SyncStatus == synced has no pending local mutation.
type SyncMeta struct {
	ID          string     `json:"-"`
	OwnerID     string     `json:"-"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
	SyncStatus  SyncStatus `json:"-"`
	SoftDeleted bool       `json:"-"`
	DeletedAt   *time.Time `json:"-"`
	DeletedBy   string     `json:"-"`
}

// Meta gives generic code access to the lifecycle fields. Promoted onto
// every entity type through embedding.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Init stamps a freshly created record: both timestamps set to now and
// status created, making it eligible for upload.
func (m *SyncMeta) Init(id, owner string, now time.Time) {
	m.ID = id
	m.OwnerID = owner
	m.CreatedAt = now
	m.UpdatedAt = now
	m.SyncStatus = StatusCreated
}

// MarkLocalChange must accompany every local payload mutation, in the same
// local transaction: bumps UpdatedAt and sets status created (never
// uploaded yet) or updated.
func (m *SyncMeta) MarkLocalChange(now time.Time) {
	m.UpdatedAt = now
	if m.SyncStatus != StatusCreated {
		m.SyncStatus = StatusUpdated
	}
}

// MarkSynced records a confirmed remote write or an accepted remote
// document. Callers must never set StatusSynced any other way.
func (m *SyncMeta) MarkSynced() {
	m.SyncStatus = StatusSynced
}

// MarkDeleted sets the tombstone fields and status deleted.
func (m *SyncMeta) MarkDeleted(by string, now time.Time) {
	m.SoftDeleted = true
	m.DeletedAt = &now
	m.DeletedBy = by
	m.UpdatedAt = now
	m.SyncStatus = StatusDeleted
}

// ClearTombstone reverses MarkDeleted and queues the record for re-upload.
func (m *SyncMeta) ClearTombstone(now time.Time) {
	m.SoftDeleted = false
	m.DeletedAt = nil
	m.DeletedBy = ""
	m.UpdatedAt = now
	m.SyncStatus = StatusUpdated
}

// Record is the one interface every synced entity type implements. The
// conflict, tombstone and pipeline logic is written against it instead of
// the six concrete types.
type Record interface {
	Meta() *SyncMeta
	Type() EntityType

	// Validate checks the minimum valid data for the type. A record that
	// fails validation cannot be restored from a tombstone.
	Validate() error

	// EncodePayload writes the entity-specific payload fields into doc.
	// Reserved keys are handled by the caller.
	EncodePayload(doc wire.Document)

	// DecodePayload reads the entity-specific payload fields from doc.
	// Missing or malformed mandatory fields yield ErrDataCorruption.
	DecodePayload(doc wire.Document) error

	// AuditSnapshot returns the few payload fields a tombstone keeps for
	// audit purposes. Never the full payload, never attachments.
	AuditSnapshot() map[string]any
}

// New returns an empty record of the given type.
func New(t EntityType) (Record, error) {
	switch t {
	case EntityCategory:
		return &Category{}, nil
	case EntityBudget:
		return &Budget{}, nil
	case EntityRecurringExpense:
		return &RecurringExpense{}, nil
	case EntityRecurringIncome:
		return &RecurringIncome{}, nil
	case EntityIncome:
		return &Income{}, nil
	case EntityExpense:
		return &Expense{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", common.ErrDataCorruption, t)
	}
}

// Clone deep-copies a record by round-tripping its payload through the wire
// codec and copying the lifecycle metadata.
func Clone(rec Record) Record {
	out, err := New(rec.Type())
	if err != nil {
		panic(err) // rec.Type() is always a known type
	}
	doc := wire.Document{}
	rec.EncodePayload(doc)
	// Payload came straight from EncodePayload, so decode cannot fail.
	_ = out.DecodePayload(doc)
	*out.Meta() = *rec.Meta()
	if rec.Meta().DeletedAt != nil {
		at := *rec.Meta().DeletedAt
		out.Meta().DeletedAt = &at
	}
	return out
}
