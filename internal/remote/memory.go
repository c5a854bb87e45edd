package remote

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// MemoryStore is an in-memory Store used in tests and as a stand-in when no
// remote is configured. Hook fields allow failure injection per operation.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]wire.Document // collection -> id -> doc

	// Optional failure hooks. When non-nil and returning a non-nil error,
	// the operation fails without touching state.
	PingErr    error
	UpsertHook func(collection, id string) error
	DeleteHook func(collection, id string) error
	ListHook   func(collection string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]wire.Document)}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.PingErr
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (wire.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) ListChangedSince(ctx context.Context, collection string, since time.Time) (map[string]wire.Document, error) {
	if s.ListHook != nil {
		if err := s.ListHook(collection); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]wire.Document)
	for id, doc := range s.docs[collection] {
		updatedAt, err := doc.UpdatedAt()
		if err != nil {
			continue
		}
		if updatedAt.After(since) {
			result[id] = doc.Clone()
		}
	}
	return result, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, doc wire.Document) error {
	if s.UpsertHook != nil {
		if err := s.UpsertHook(collection, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, doc)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if s.DeleteHook != nil {
		if err := s.DeleteHook(collection, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, ops []BatchOp) error {
	// Validate all hooks first so a failing op leaves no partial state.
	for _, op := range ops {
		switch op.Kind {
		case OpUpsert:
			if s.UpsertHook != nil {
				if err := s.UpsertHook(op.Collection, op.ID); err != nil {
					return err
				}
			}
		case OpDelete:
			if s.DeleteHook != nil {
				if err := s.DeleteHook(op.Collection, op.ID); err != nil {
					return err
				}
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpUpsert:
			s.put(op.Collection, op.ID, op.Doc)
		case OpDelete:
			delete(s.docs[op.Collection], op.ID)
		}
	}
	return nil
}

func (s *MemoryStore) put(collection, id string, doc wire.Document) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]wire.Document)
	}
	s.docs[collection][id] = doc.Clone()
}

// Len reports the number of documents in a collection. Test helper.
func (s *MemoryStore) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[collection])
}
