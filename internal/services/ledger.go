// Package services implements the local ledger operations the CLI exposes:
// creating and editing entries, soft deletes with restore, and generation of
// occurrences from recurring templates. Every mutation goes through the
// record lifecycle so the sync engine picks it up.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkeeper/ledgerkeeper/internal/attachments"
	"github.com/ledgerkeeper/ledgerkeeper/internal/logging"
	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
	"github.com/ledgerkeeper/ledgerkeeper/internal/syncer"
)

// LedgerService is the entry management API consumed by the CLI.
type LedgerService interface {
	Create(ctx context.Context, rec models.Record) error
	Update(ctx context.Context, rec models.Record) error
	Get(ctx context.Context, t models.EntityType, id string) (models.Record, error)
	List(ctx context.Context, t models.EntityType, includeDeleted bool) ([]models.Record, error)
	Delete(ctx context.Context, t models.EntityType, id string) error
	Restore(ctx context.Context, t models.EntityType, id string) error

	AttachReceipt(ctx context.Context, expenseID string, data []byte) error

	// GenerateDue materializes the occurrences of all active recurring
	// templates that are due as of the given instant and returns how many
	// were created.
	GenerateDue(ctx context.Context, asOf time.Time) (int, error)
}

type ledgerService struct {
	owner    string
	repo     records.Repository
	tomb     *syncer.Tombstones
	receipts attachments.Store
	log      logging.Logger
	now      func() time.Time
}

func NewLedgerService(owner string, repo records.Repository, tomb *syncer.Tombstones, receipts attachments.Store, log logging.Logger) LedgerService {
	return &ledgerService{
		owner:    owner,
		repo:     repo,
		tomb:     tomb,
		receipts: receipts,
		log:      log,
		now:      time.Now,
	}
}

// Create validates the payload, stamps the lifecycle metadata and stores the
// record. Records arriving without an ID get a fresh one.
func (s *ledgerService) Create(ctx context.Context, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	id := rec.Meta().ID
	if id == "" {
		id = uuid.NewString()
	}
	rec.Meta().Init(id, s.owner, s.now())
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	return nil
}

func (s *ledgerService) Update(ctx context.Context, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Meta().MarkLocalChange(s.now())
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	return nil
}

func (s *ledgerService) Get(ctx context.Context, t models.EntityType, id string) (models.Record, error) {
	rec, err := s.repo.Get(ctx, s.owner, t, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving entry: %w", err)
	}
	return rec, nil
}

// List returns the live records of one type, newest first. Tombstones are
// only included on request.
func (s *ledgerService) List(ctx context.Context, t models.EntityType, includeDeleted bool) ([]models.Record, error) {
	f := records.Filter{OwnerID: s.owner, Type: t}
	if !includeDeleted {
		live := false
		f.SoftDeleted = &live
	}
	rows, err := s.repo.List(ctx, f, records.OrderUpdatedAtDesc)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return rows, nil
}

func (s *ledgerService) Delete(ctx context.Context, t models.EntityType, id string) error {
	rec, err := s.repo.Get(ctx, s.owner, t, id)
	if err != nil {
		return fmt.Errorf("error deleting entry: %w", err)
	}
	return s.tomb.Create(ctx, rec, s.now())
}

func (s *ledgerService) Restore(ctx context.Context, t models.EntityType, id string) error {
	rec, err := s.repo.Get(ctx, s.owner, t, id)
	if err != nil {
		return fmt.Errorf("error restoring entry: %w", err)
	}
	return s.tomb.Restore(ctx, rec, s.now())
}

// AttachReceipt uploads the receipt bytes to blob storage and links the
// object to the expense. A previously attached receipt is replaced.
func (s *ledgerService) AttachReceipt(ctx context.Context, expenseID string, data []byte) error {
	rec, err := s.repo.Get(ctx, s.owner, models.EntityExpense, expenseID)
	if err != nil {
		return fmt.Errorf("error retrieving entry: %w", err)
	}
	exp := rec.(*models.Expense)

	key, err := s.receipts.Put(ctx, s.owner, data)
	if err != nil {
		return fmt.Errorf("error uploading receipt: %w", err)
	}
	if exp.ReceiptKey != "" {
		if err := s.receipts.Remove(ctx, exp.ReceiptKey); err != nil {
			s.log.Warn(ctx, "failed to remove replaced receipt", "key", exp.ReceiptKey, "error", err)
		}
	}
	exp.ReceiptKey = key
	return s.Update(ctx, exp)
}
