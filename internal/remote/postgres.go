package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/dbx"
	remotemigrations "github.com/ledgerkeeper/ledgerkeeper/internal/remote/migrations"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store over a PostgreSQL documents table with
// jsonb payloads. The updatedAt ordering signal is mirrored into a column
// so delta queries stay indexed.
type PostgresStore struct {
	db    *sql.DB
	owner string
}

// Open connects to the remote database and brings its schema up to date.
// The returned *sql.DB is shared between the account registry and the
// per-owner document stores.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("remote db unreachable: %w", err)
	}

	goose.SetBaseFS(remotemigrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate remote db: %w", err)
	}
	return db, nil
}

// NewPostgresStore returns a document store scoped to the given owner.
func NewPostgresStore(db *sql.DB, ownerID string) *PostgresStore {
	return &PostgresStore{db: db, owner: ownerID}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (wire.Document, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE owner_id=$1 AND collection=$2 AND doc_id=$3`,
		s.owner, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}

	var doc wire.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: document %s/%s: %v", common.ErrDataCorruption, collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) ListChangedSince(ctx context.Context, collection string, since time.Time) (map[string]wire.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, data FROM documents WHERE owner_id=$1 AND collection=$2 AND updated_at > $3`,
		s.owner, collection, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", collection, err)
	}
	defer rows.Close()

	result := make(map[string]wire.Document)
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var doc wire.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: document %s/%s: %v", common.ErrDataCorruption, collection, id, err)
		}
		result[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, doc wire.Document) error {
	return s.upsert(ctx, s.db, collection, id, doc)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	return s.delete(ctx, s.db, collection, id)
}

// RunTransaction applies all ops in one database transaction.
func (s *PostgresStore) RunTransaction(ctx context.Context, ops []BatchOp) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpUpsert:
				err = s.upsert(ctx, tx, op.Collection, op.ID, op.Doc)
			case OpDelete:
				err = s.delete(ctx, tx, op.Collection, op.ID)
			default:
				err = fmt.Errorf("unknown batch op kind %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) upsert(ctx context.Context, db dbx.DBTX, collection, id string, doc wire.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, id, err)
	}

	updatedAt, err := doc.UpdatedAt()
	if err != nil {
		updatedAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (owner_id, collection, doc_id, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, collection, doc_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		s.owner, collection, id, data, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) delete(ctx context.Context, db dbx.DBTX, collection, id string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM documents WHERE owner_id=$1 AND collection=$2 AND doc_id=$3`,
		s.owner, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}
