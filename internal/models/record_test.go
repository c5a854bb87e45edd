package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

func TestSyncMeta_LifecycleTransitions(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var m SyncMeta

	m.Init("id1", "owner1", now)
	assert.Equal(t, StatusCreated, m.SyncStatus)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)

	// Mutating before first upload keeps status created.
	later := now.Add(time.Minute)
	m.MarkLocalChange(later)
	assert.Equal(t, StatusCreated, m.SyncStatus)
	assert.Equal(t, later, m.UpdatedAt)

	m.MarkSynced()
	assert.Equal(t, StatusSynced, m.SyncStatus)
	assert.False(t, m.SyncStatus.Pending())

	// Mutating after upload flips to updated.
	m.MarkLocalChange(later.Add(time.Minute))
	assert.Equal(t, StatusUpdated, m.SyncStatus)
	assert.True(t, m.SyncStatus.Pending())

	deletedAt := later.Add(2 * time.Minute)
	m.MarkDeleted("device-a", deletedAt)
	assert.True(t, m.SoftDeleted)
	require.NotNil(t, m.DeletedAt)
	assert.Equal(t, deletedAt, *m.DeletedAt)
	assert.Equal(t, "device-a", m.DeletedBy)
	assert.Equal(t, StatusDeleted, m.SyncStatus)

	m.ClearTombstone(deletedAt.Add(time.Minute))
	assert.False(t, m.SoftDeleted)
	assert.Nil(t, m.DeletedAt)
	assert.Empty(t, m.DeletedBy)
	assert.Equal(t, StatusUpdated, m.SyncStatus)
}

func TestSyncOrder_DependenciesFirst(t *testing.T) {
	order := SyncOrder()
	pos := make(map[EntityType]int, len(order))
	for i, et := range order {
		pos[et] = i
	}

	// Category precedes everything that references it.
	for _, dependent := range []EntityType{EntityBudget, EntityRecurringExpense, EntityRecurringIncome, EntityExpense, EntityIncome} {
		assert.Less(t, pos[EntityCategory], pos[dependent])
	}
	// Occurrences come after the templates that generate them.
	assert.Less(t, pos[EntityRecurringExpense], pos[EntityExpense])
	assert.Less(t, pos[EntityRecurringIncome], pos[EntityIncome])
}

func TestNew_AllTypes(t *testing.T) {
	for _, et := range SyncOrder() {
		rec, err := New(et)
		require.NoError(t, err)
		assert.Equal(t, et, rec.Type())
	}
	_, err := New(EntityType("bogus"))
	require.Error(t, err)
}

func TestExpense_PayloadRoundTrip(t *testing.T) {
	e := &Expense{
		CategoryID:  "cat1",
		AmountCents: 4250,
		Date:        time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Note:        "groceries",
		ReceiptKey:  "users/o/receipts/r1",
		GeneratedBy: "tmpl1",
		Orphaned:    true,
	}
	require.NoError(t, e.Validate())

	doc := wire.Document{}
	e.EncodePayload(doc)

	var back Expense
	require.NoError(t, back.DecodePayload(doc))
	assert.Equal(t, e.CategoryID, back.CategoryID)
	assert.Equal(t, e.AmountCents, back.AmountCents)
	assert.True(t, back.Date.Equal(e.Date))
	assert.Equal(t, e.Note, back.Note)
	assert.Equal(t, e.ReceiptKey, back.ReceiptKey)
	assert.Equal(t, e.GeneratedBy, back.GeneratedBy)
	assert.True(t, back.Orphaned)
}

func TestExpense_DecodeMissingMandatoryFields(t *testing.T) {
	var e Expense
	err := e.DecodePayload(wire.Document{"note": "no amount"})
	require.Error(t, err)

	err = e.DecodePayload(wire.Document{"amountCents": float64(100), "date": "2026-01-01T00:00:00Z"})
	require.Error(t, err, "missing categoryId must fail decode")
}

func TestValidate_RejectsNonPositiveAmounts(t *testing.T) {
	e := &Expense{CategoryID: "c", AmountCents: 0, Date: time.Now()}
	require.Error(t, e.Validate())

	b := &Budget{CategoryID: "c", Month: "2026-03", AmountCents: -1}
	require.Error(t, b.Validate())

	r := &RecurringExpense{}
	r.CategoryID = "c"
	r.AmountCents = 100
	r.Interval = Interval("yearly")
	r.StartAt = time.Now()
	require.Error(t, r.Validate())
}

func TestClone_IndependentCopy(t *testing.T) {
	now := time.Now().UTC()
	e := &Expense{CategoryID: "c1", AmountCents: 100, Date: now}
	e.Init("id1", "owner1", now)
	e.MarkDeleted("dev", now)

	c := Clone(e).(*Expense)
	assert.Equal(t, e.CategoryID, c.CategoryID)
	assert.Equal(t, e.ID, c.ID)
	require.NotNil(t, c.DeletedAt)

	c.AmountCents = 999
	*c.DeletedAt = now.Add(time.Hour)
	assert.Equal(t, int64(100), e.AmountCents)
	assert.True(t, e.DeletedAt.Equal(now))
}

func TestInterval_Next(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.AddDate(0, 0, 1), IntervalDaily.Next(base))
	assert.Equal(t, base.AddDate(0, 0, 7), IntervalWeekly.Next(base))
	assert.Equal(t, base.AddDate(0, 1, 0), IntervalMonthly.Next(base))
}
