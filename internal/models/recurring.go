package models

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/wire"
)

// Interval is the recurrence period of a template.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Next returns the occurrence following t.
func (i Interval) Next(t time.Time) time.Time {
	switch i {
	case IntervalDaily:
		return t.AddDate(0, 0, 1)
	case IntervalWeekly:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func (i Interval) valid() bool {
	return i == IntervalDaily || i == IntervalWeekly || i == IntervalMonthly
}

// recurringTemplate holds the fields shared by both recurring entity types.
// Active is flipped off when the template is tombstoned so it stops
// generating occurrences, and back on when restored.
type recurringTemplate struct {
	CategoryID      string    `json:"category_id"`
	AmountCents     int64     `json:"amount_cents"`
	Note            string    `json:"note,omitempty"`
	Interval        Interval  `json:"interval"`
	StartAt         time.Time `json:"start_at"`
	LastGeneratedAt time.Time `json:"last_generated_at,omitempty"`
	Active          bool      `json:"active"`
}

func (r *recurringTemplate) validate() error {
	if r.CategoryID == "" {
		return fmt.Errorf("%w: recurring template category is required", common.ErrValidation)
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("%w: recurring template amount must be positive", common.ErrValidation)
	}
	if !r.Interval.valid() {
		return fmt.Errorf("%w: invalid recurrence interval %q", common.ErrValidation, r.Interval)
	}
	if r.StartAt.IsZero() {
		return fmt.Errorf("%w: recurring template start date is required", common.ErrValidation)
	}
	return nil
}

func (r *recurringTemplate) encode(doc wire.Document) {
	doc["categoryId"] = r.CategoryID
	doc["amountCents"] = r.AmountCents
	doc["interval"] = string(r.Interval)
	doc.SetTime("startAt", r.StartAt)
	doc["active"] = r.Active
	if r.Note != "" {
		doc["note"] = r.Note
	}
	if !r.LastGeneratedAt.IsZero() {
		doc.SetTime("lastGeneratedAt", r.LastGeneratedAt)
	}
}

func (r *recurringTemplate) decode(doc wire.Document) error {
	amount, err := doc.Int64("amountCents")
	if err != nil {
		return fmt.Errorf("%w: recurring template document: %v", common.ErrDataCorruption, err)
	}
	startAt, err := doc.Time("startAt")
	if err != nil {
		return fmt.Errorf("%w: recurring template document: %v", common.ErrDataCorruption, err)
	}
	categoryID := doc.String("categoryId")
	if categoryID == "" {
		return fmt.Errorf("%w: recurring template document missing categoryId", common.ErrDataCorruption)
	}
	r.CategoryID = categoryID
	r.AmountCents = amount
	r.StartAt = startAt
	r.Interval = Interval(doc.String("interval"))
	r.Note = doc.String("note")
	r.Active = doc.Bool("active")
	if lastGen, err := doc.Time("lastGeneratedAt"); err == nil {
		r.LastGeneratedAt = lastGen
	} else {
		r.LastGeneratedAt = time.Time{}
	}
	return nil
}

func (r *recurringTemplate) snapshot() map[string]any {
	return map[string]any{
		"amountCents": r.AmountCents,
		"interval":    string(r.Interval),
		"note":        r.Note,
	}
}

// RecurringExpense generates Expense occurrences on a schedule.
type RecurringExpense struct {
	SyncMeta `json:"-"`
	recurringTemplate
}

func (r *RecurringExpense) Type() EntityType { return EntityRecurringExpense }

func (r *RecurringExpense) Validate() error { return r.validate() }

func (r *RecurringExpense) EncodePayload(d wire.Document) { r.encode(d) }

func (r *RecurringExpense) DecodePayload(d wire.Document) error {
	return r.decode(d)
}

func (r *RecurringExpense) AuditSnapshot() map[string]any { return r.snapshot() }

// RecurringIncome generates Income occurrences on a schedule.
type RecurringIncome struct {
	SyncMeta `json:"-"`
	recurringTemplate
}

func (r *RecurringIncome) Type() EntityType { return EntityRecurringIncome }

func (r *RecurringIncome) Validate() error { return r.validate() }

func (r *RecurringIncome) EncodePayload(d wire.Document) { r.encode(d) }

func (r *RecurringIncome) DecodePayload(d wire.Document) error {
	return r.decode(d)
}

func (r *RecurringIncome) AuditSnapshot() map[string]any { return r.snapshot() }
