package models

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// Expense is a single spending transaction.
//
// ReceiptKey points at an attachment object in blob storage; the bytes never
// enter wire documents and the object is purged when the expense is
// tombstoned. GeneratedBy links an occurrence back to the recurring template
// that produced it; Orphaned flags occurrences whose template was deleted.
type Expense struct {
	SyncMeta `json:"-"`

	CategoryID  string    `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
	ReceiptKey  string    `json:"receipt_key,omitempty"`
	GeneratedBy string    `json:"generated_by,omitempty"`
	Orphaned    bool      `json:"orphaned,omitempty"`
}

func (e *Expense) Type() EntityType { return EntityExpense }

func (e *Expense) Validate() error {
	if e.CategoryID == "" {
		return fmt.Errorf("%w: expense category is required", common.ErrValidation)
	}
	if e.AmountCents <= 0 {
		return fmt.Errorf("%w: expense amount must be positive", common.ErrValidation)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: expense date is required", common.ErrValidation)
	}
	return nil
}

func (e *Expense) EncodePayload(doc wire.Document) {
	doc["categoryId"] = e.CategoryID
	doc["amountCents"] = e.AmountCents
	doc.SetTime("date", e.Date)
	if e.Note != "" {
		doc["note"] = e.Note
	}
	if e.ReceiptKey != "" {
		doc["receiptKey"] = e.ReceiptKey
	}
	if e.GeneratedBy != "" {
		doc["generatedBy"] = e.GeneratedBy
	}
	if e.Orphaned {
		doc["orphaned"] = true
	}
}

func (e *Expense) DecodePayload(doc wire.Document) error {
	amount, err := doc.Int64("amountCents")
	if err != nil {
		return fmt.Errorf("%w: expense document: %v", common.ErrDataCorruption, err)
	}
	date, err := doc.Time("date")
	if err != nil {
		return fmt.Errorf("%w: expense document: %v", common.ErrDataCorruption, err)
	}
	categoryID := doc.String("categoryId")
	if categoryID == "" {
		return fmt.Errorf("%w: expense document missing categoryId", common.ErrDataCorruption)
	}
	e.CategoryID = categoryID
	e.AmountCents = amount
	e.Date = date
	e.Note = doc.String("note")
	e.ReceiptKey = doc.String("receiptKey")
	e.GeneratedBy = doc.String("generatedBy")
	e.Orphaned = doc.Bool("orphaned")
	return nil
}

func (e *Expense) AuditSnapshot() map[string]any {
	return map[string]any{
		"amountCents": e.AmountCents,
		"date":        e.Date.UTC(),
		"note":        e.Note,
	}
}
