package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

func doc(id string, updatedAt time.Time) wire.Document {
	d := wire.Document{wire.KeyID: id}
	d.SetTime(wire.KeyUpdatedAt, updatedAt)
	return d
}

func TestMemoryStore_UpsertGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, "expense", "a", doc("a", at)))

	got, err := s.Get(ctx, "expense", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.String(wire.KeyID))

	// Returned doc is a copy.
	got[wire.KeyID] = "mutated"
	again, err := s.Get(ctx, "expense", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", again.String(wire.KeyID))

	require.NoError(t, s.Delete(ctx, "expense", "a"))
	_, err = s.Get(ctx, "expense", "a")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStore_ListChangedSince(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, "expense", "old", doc("old", at)))
	require.NoError(t, s.Upsert(ctx, "expense", "new", doc("new", at.Add(time.Hour))))

	got, err := s.ListChangedSince(ctx, "expense", at)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got, "new")

	// Watermark boundary is strict: a doc at exactly `since` is excluded.
	got, err = s.ListChangedSince(ctx, "expense", at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_RunTransactionAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	s.UpsertHook = func(collection, id string) error {
		if id == "b" {
			return boom
		}
		return nil
	}

	err := s.RunTransaction(ctx, []BatchOp{
		{Kind: OpUpsert, Collection: "expense", ID: "a", Doc: doc("a", at)},
		{Kind: OpUpsert, Collection: "expense", ID: "b", Doc: doc("b", at)},
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len("expense"), "failed transaction must leave no partial state")

	s.UpsertHook = nil
	require.NoError(t, s.RunTransaction(ctx, []BatchOp{
		{Kind: OpUpsert, Collection: "expense", ID: "a", Doc: doc("a", at)},
		{Kind: OpDelete, Collection: "expense", ID: "missing"},
	}))
	assert.Equal(t, 1, s.Len("expense"))
}
