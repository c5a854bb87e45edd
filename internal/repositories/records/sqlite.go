package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/dbx"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
)

// SQLiteRepository implements Repository over a *sql.DB.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository bound to db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `id, owner_id, entity_type, payload, created_at, updated_at, sync_status, soft_deleted, deleted_at, deleted_by`

func (r *SQLiteRepository) Get(ctx context.Context, owner string, t models.EntityType, id string) (models.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE owner_id=? AND entity_type=? AND id=?`,
		owner, t, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s/%s: %w", t, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter, order Order) ([]models.Record, error) {
	where, args := buildWhere(f)

	query := `SELECT ` + recordColumns + ` FROM records ` + where
	switch order {
	case OrderUploadPriority:
		query += ` ORDER BY CASE sync_status WHEN 'deleted' THEN 0 WHEN 'updated' THEN 1 ELSE 2 END, updated_at ASC`
	default:
		query += ` ORDER BY updated_at DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Save upserts all records in one transaction, so a collection's merge is
// atomic relative to a crash.
func (r *SQLiteRepository) Save(ctx context.Context, recs ...models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := upsertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Purge(ctx context.Context, owner string, t models.EntityType, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE owner_id=? AND entity_type=? AND id=?`,
		owner, t, id)
	if err != nil {
		return fmt.Errorf("failed to purge record %s/%s: %w", t, id, err)
	}
	return nil
}

func upsertRecord(ctx context.Context, tx dbx.DBTX, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	m := rec.Meta()
	var deletedAt any
	if m.DeletedAt != nil {
		deletedAt = m.DeletedAt.UTC().Format(time.RFC3339Nano)
	}

	query := `INSERT INTO records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, entity_type, id) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status,
			soft_deleted = excluded.soft_deleted,
			deleted_at = excluded.deleted_at,
			deleted_by = excluded.deleted_by`
	_, err = tx.ExecContext(ctx, query,
		m.ID, m.OwnerID, rec.Type(), payload,
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
		m.UpdatedAt.UTC().Format(time.RFC3339Nano),
		m.SyncStatus, m.SoftDeleted, deletedAt, m.DeletedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", m.ID, err)
	}
	return nil
}

type scanFn func(dest ...any) error

func scanRecord(scan scanFn) (models.Record, error) {
	var (
		id, owner, entityType, status, deletedBy string
		payload                                  []byte
		createdAt, updatedAt                     string
		softDeleted                              bool
		deletedAt                                sql.NullString
	)
	if err := scan(&id, &owner, &entityType, &payload, &createdAt, &updatedAt,
		&status, &softDeleted, &deletedAt, &deletedBy); err != nil {
		return nil, err
	}

	rec, err := models.New(models.EntityType(entityType))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("%w: record %s payload: %v", common.ErrDataCorruption, id, err)
	}

	m := rec.Meta()
	m.ID = id
	m.OwnerID = owner
	m.SyncStatus = models.SyncStatus(status)
	m.SoftDeleted = softDeleted
	m.DeletedBy = deletedBy
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("%w: record %s created_at: %v", common.ErrDataCorruption, id, err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("%w: record %s updated_at: %v", common.ErrDataCorruption, id, err)
	}
	if deletedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, deletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s deleted_at: %v", common.ErrDataCorruption, id, err)
		}
		m.DeletedAt = &ts
	}
	return rec, nil
}

func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != "" {
		conds = append(conds, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Type != "" {
		conds = append(conds, "entity_type=?")
		args = append(args, f.Type)
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "sync_status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.SoftDeleted != nil {
		conds = append(conds, "soft_deleted=?")
		args = append(args, *f.SoftDeleted)
	}
	if f.GeneratedBy != "" {
		conds = append(conds, "json_extract(payload, '$.generated_by')=?")
		args = append(args, f.GeneratedBy)
	}
	if !f.DeletedBefore.IsZero() {
		conds = append(conds, "deleted_at IS NOT NULL AND deleted_at < ?")
		args = append(args, f.DeletedBefore.UTC().Format(time.RFC3339Nano))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
