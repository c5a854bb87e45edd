package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  sync_status TEXT NOT NULL,
  soft_deleted INTEGER NOT NULL DEFAULT 0,
  deleted_at TEXT,
  deleted_by TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (owner_id, entity_type, id)
);`)
	require.NoError(t, err)
	return db
}

func newExpense(t *testing.T, id, owner string, at time.Time) *models.Expense {
	t.Helper()
	e := &models.Expense{CategoryID: "cat1", AmountCents: 100, Date: at}
	e.Init(id, owner, at)
	return e
}

func TestSaveAndGet_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	e := newExpense(t, "e1", "owner1", at)
	e.Note = "coffee"
	require.NoError(t, r.Save(ctx, e))

	got, err := r.Get(ctx, "owner1", models.EntityExpense, "e1")
	require.NoError(t, err)
	exp := got.(*models.Expense)
	assert.Equal(t, "coffee", exp.Note)
	assert.Equal(t, int64(100), exp.AmountCents)
	assert.Equal(t, models.StatusCreated, exp.SyncStatus)
	assert.True(t, exp.CreatedAt.Equal(at))

	_, err = r.Get(ctx, "owner1", models.EntityExpense, "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSave_UpsertsAndPersistsTombstoneFields(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	e := newExpense(t, "e1", "owner1", at)
	require.NoError(t, r.Save(ctx, e))

	e.MarkDeleted("device-9", at.Add(time.Hour))
	require.NoError(t, r.Save(ctx, e))

	got, err := r.Get(ctx, "owner1", models.EntityExpense, "e1")
	require.NoError(t, err)
	m := got.Meta()
	assert.True(t, m.SoftDeleted)
	require.NotNil(t, m.DeletedAt)
	assert.True(t, m.DeletedAt.Equal(at.Add(time.Hour)))
	assert.Equal(t, "device-9", m.DeletedBy)
	assert.Equal(t, models.StatusDeleted, m.SyncStatus)
}

func TestList_FiltersByStatusAndOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	pending := newExpense(t, "e1", "owner1", at)
	synced := newExpense(t, "e2", "owner1", at.Add(time.Second))
	synced.MarkSynced()
	other := newExpense(t, "e3", "owner2", at)
	require.NoError(t, r.Save(ctx, pending, synced, other))

	got, err := r.List(ctx, Filter{
		OwnerID:  "owner1",
		Type:     models.EntityExpense,
		Statuses: []models.SyncStatus{models.StatusCreated, models.StatusUpdated, models.StatusDeleted},
	}, OrderUpdatedAtDesc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].Meta().ID)
}

func TestList_UploadPriorityOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	created := newExpense(t, "c", "o", at)
	updated := newExpense(t, "u", "o", at.Add(time.Second))
	updated.MarkSynced()
	updated.MarkLocalChange(at.Add(2 * time.Second))
	deleted := newExpense(t, "d", "o", at.Add(3*time.Second))
	deleted.MarkDeleted("dev", at.Add(4*time.Second))
	require.NoError(t, r.Save(ctx, created, updated, deleted))

	got, err := r.List(ctx, Filter{OwnerID: "o", Type: models.EntityExpense}, OrderUploadPriority)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].Meta().ID, "deletions first")
	assert.Equal(t, "u", got[1].Meta().ID)
	assert.Equal(t, "c", got[2].Meta().ID)
}

func TestList_GeneratedByAndDeletedBefore(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	occ := newExpense(t, "occ", "o", at)
	occ.GeneratedBy = "tmpl1"
	plain := newExpense(t, "plain", "o", at)
	require.NoError(t, r.Save(ctx, occ, plain))

	got, err := r.List(ctx, Filter{OwnerID: "o", Type: models.EntityExpense, GeneratedBy: "tmpl1"}, OrderUpdatedAtDesc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "occ", got[0].Meta().ID)

	old := newExpense(t, "old", "o", at)
	old.MarkDeleted("dev", at)
	fresh := newExpense(t, "fresh", "o", at)
	fresh.MarkDeleted("dev", at.Add(48*time.Hour))
	require.NoError(t, r.Save(ctx, old, fresh))

	got, err = r.List(ctx, Filter{OwnerID: "o", Type: models.EntityExpense, DeletedBefore: at.Add(time.Hour)}, OrderUpdatedAtDesc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Meta().ID)
}

func TestPurgeAndCount(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, newExpense(t, "e1", "o", at), newExpense(t, "e2", "o", at)))

	n, err := r.Count(ctx, Filter{OwnerID: "o", Type: models.EntityExpense})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, r.Purge(ctx, "o", models.EntityExpense, "e1"))
	n, err = r.Count(ctx, Filter{OwnerID: "o", Type: models.EntityExpense})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
