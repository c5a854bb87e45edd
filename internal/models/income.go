package models

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// Income is a single earning transaction. Mirrors Expense minus receipts.
type Income struct {
	SyncMeta `json:"-"`

	CategoryID  string    `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
	GeneratedBy string    `json:"generated_by,omitempty"`
	Orphaned    bool      `json:"orphaned,omitempty"`
}

func (i *Income) Type() EntityType { return EntityIncome }

func (i *Income) Validate() error {
	if i.CategoryID == "" {
		return fmt.Errorf("%w: income category is required", common.ErrValidation)
	}
	if i.AmountCents <= 0 {
		return fmt.Errorf("%w: income amount must be positive", common.ErrValidation)
	}
	if i.Date.IsZero() {
		return fmt.Errorf("%w: income date is required", common.ErrValidation)
	}
	return nil
}

func (i *Income) EncodePayload(doc wire.Document) {
	doc["categoryId"] = i.CategoryID
	doc["amountCents"] = i.AmountCents
	doc.SetTime("date", i.Date)
	if i.Note != "" {
		doc["note"] = i.Note
	}
	if i.GeneratedBy != "" {
		doc["generatedBy"] = i.GeneratedBy
	}
	if i.Orphaned {
		doc["orphaned"] = true
	}
}

func (i *Income) DecodePayload(doc wire.Document) error {
	amount, err := doc.Int64("amountCents")
	if err != nil {
		return fmt.Errorf("%w: income document: %v", common.ErrDataCorruption, err)
	}
	date, err := doc.Time("date")
	if err != nil {
		return fmt.Errorf("%w: income document: %v", common.ErrDataCorruption, err)
	}
	categoryID := doc.String("categoryId")
	if categoryID == "" {
		return fmt.Errorf("%w: income document missing categoryId", common.ErrDataCorruption)
	}
	i.CategoryID = categoryID
	i.AmountCents = amount
	i.Date = date
	i.Note = doc.String("note")
	i.GeneratedBy = doc.String("generatedBy")
	i.Orphaned = doc.Bool("orphaned")
	return nil
}

func (i *Income) AuditSnapshot() map[string]any {
	return map[string]any{
		"amountCents": i.AmountCents,
		"date":        i.Date.UTC(),
		"note":        i.Note,
	}
}
