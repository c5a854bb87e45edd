// Package remote defines the remote document store consumed by the sync
// engine: one collection per entity type, one document per record, scoped
// per authenticated owner. Two implementations are provided: PostgreSQL
// (jsonb documents) and an in-memory store for tests.
package remote

import (
	"context"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// OpKind discriminates batch operations.
type OpKind int

const (
	OpUpsert OpKind = iota
	OpDelete
)

// BatchOp is one operation inside an atomic transaction.
type BatchOp struct {
	Kind       OpKind
	Collection string
	ID         string
	// Doc is required for OpUpsert, ignored for OpDelete.
	Doc wire.Document
}

// Store is the remote document store interface. All operations are scoped
// to the owner the store was opened for.
type Store interface {
	// Ping reports whether the remote is reachable. Used as the network
	// prerequisite check before a sync starts.
	Ping(ctx context.Context) error

	// Get returns one document or common.ErrNotFound.
	Get(ctx context.Context, collection, id string) (wire.Document, error)

	// ListChangedSince returns all documents in the collection with
	// updatedAt strictly greater than since.
	ListChangedSince(ctx context.Context, collection string, since time.Time) (map[string]wire.Document, error)

	// Upsert creates or replaces a document.
	Upsert(ctx context.Context, collection, id string, doc wire.Document) error

	// Delete removes a document outright. Regular deletions upload
	// tombstone documents instead; this is the administrative purge path.
	Delete(ctx context.Context, collection, id string) error

	// RunTransaction executes all ops atomically: either every operation
	// is applied or none.
	RunTransaction(ctx context.Context, ops []BatchOp) error
}
