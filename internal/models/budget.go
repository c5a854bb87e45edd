package models

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// Budget caps spending for one category in one calendar month.
type Budget struct {
	SyncMeta `json:"-"`

	CategoryID string `json:"category_id"`
	// Month in "2006-01" form.
	Month       string `json:"month"`
	AmountCents int64  `json:"amount_cents"`
}

func (b *Budget) Type() EntityType { return EntityBudget }

func (b *Budget) Validate() error {
	if b.CategoryID == "" {
		return fmt.Errorf("%w: budget category is required", common.ErrValidation)
	}
	if b.AmountCents <= 0 {
		return fmt.Errorf("%w: budget amount must be positive", common.ErrValidation)
	}
	if _, err := time.Parse("2006-01", b.Month); err != nil {
		return fmt.Errorf("%w: invalid budget month %q", common.ErrValidation, b.Month)
	}
	return nil
}

func (b *Budget) EncodePayload(doc wire.Document) {
	doc["categoryId"] = b.CategoryID
	doc["month"] = b.Month
	doc["amountCents"] = b.AmountCents
}

func (b *Budget) DecodePayload(doc wire.Document) error {
	amount, err := doc.Int64("amountCents")
	if err != nil {
		return fmt.Errorf("%w: budget document: %v", common.ErrDataCorruption, err)
	}
	categoryID := doc.String("categoryId")
	if categoryID == "" {
		return fmt.Errorf("%w: budget document missing categoryId", common.ErrDataCorruption)
	}
	b.CategoryID = categoryID
	b.Month = doc.String("month")
	b.AmountCents = amount
	return nil
}

func (b *Budget) AuditSnapshot() map[string]any {
	return map[string]any{"month": b.Month, "amountCents": b.AmountCents}
}
