package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/repositories/records"
)

// GenerateDue walks every active recurring template and creates the
// occurrences due up to asOf. A template's first occurrence falls on its
// start date, then one per interval. Each created occurrence carries a
// GeneratedBy link back to its template.
func (s *ledgerService) GenerateDue(ctx context.Context, asOf time.Time) (int, error) {
	total := 0

	n, err := s.generateFor(ctx, models.EntityRecurringExpense, asOf)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.generateFor(ctx, models.EntityRecurringIncome, asOf)
	if err != nil {
		return total, err
	}
	total += n

	return total, nil
}

func (s *ledgerService) generateFor(ctx context.Context, t models.EntityType, asOf time.Time) (int, error) {
	live := false
	templates, err := s.repo.List(ctx, records.Filter{
		OwnerID:     s.owner,
		Type:        t,
		SoftDeleted: &live,
	}, records.OrderUpdatedAtDesc)
	if err != nil {
		return 0, fmt.Errorf("error listing templates: %w", err)
	}

	created := 0
	for _, tmpl := range templates {
		occurrences, err := s.generateOccurrences(ctx, tmpl, asOf)
		if err != nil {
			return created, err
		}
		created += occurrences
	}
	return created, nil
}

func (s *ledgerService) generateOccurrences(ctx context.Context, tmpl models.Record, asOf time.Time) (int, error) {
	var (
		active   bool
		interval models.Interval
		start    time.Time
		last     *time.Time
		build    func(due time.Time) models.Record
	)

	switch r := tmpl.(type) {
	case *models.RecurringExpense:
		active, interval, start, last = r.Active, r.Interval, r.StartAt, &r.LastGeneratedAt
		build = func(due time.Time) models.Record {
			return &models.Expense{
				CategoryID:  r.CategoryID,
				AmountCents: r.AmountCents,
				Date:        due,
				Note:        r.Note,
				GeneratedBy: r.ID,
			}
		}
	case *models.RecurringIncome:
		active, interval, start, last = r.Active, r.Interval, r.StartAt, &r.LastGeneratedAt
		build = func(due time.Time) models.Record {
			return &models.Income{
				CategoryID:  r.CategoryID,
				AmountCents: r.AmountCents,
				Date:        due,
				Note:        r.Note,
				GeneratedBy: r.ID,
			}
		}
	default:
		return 0, nil
	}
	if !active {
		return 0, nil
	}

	due := start
	if !last.IsZero() {
		due = interval.Next(*last)
	}

	var toSave []models.Record
	now := s.now()
	for !due.After(asOf) {
		occ := build(due)
		occ.Meta().Init(uuid.NewString(), s.owner, now)
		toSave = append(toSave, occ)
		*last = due
		due = interval.Next(due)
	}
	if len(toSave) == 0 {
		return 0, nil
	}

	tmpl.Meta().MarkLocalChange(now)
	toSave = append(toSave, tmpl)
	if err := s.repo.Save(ctx, toSave...); err != nil {
		return 0, fmt.Errorf("saving error: %w", err)
	}
	s.log.Debug(ctx, "generated occurrences", "template", tmpl.Meta().ID, "count", len(toSave)-1)
	return len(toSave) - 1, nil
}
