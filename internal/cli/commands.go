package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
	"github.com/ledgerkeeper/ledgerkeeper/internal/syncer"
)

const dateLayout = "2006-01-02"

// parseEntityType maps a user-typed token to an entity type.
func parseEntityType(s string) (models.EntityType, error) {
	switch s {
	case "cat", "category":
		return models.EntityCategory, nil
	case "budget":
		return models.EntityBudget, nil
	case "recexp", "recurring_expense":
		return models.EntityRecurringExpense, nil
	case "recinc", "recurring_income":
		return models.EntityRecurringIncome, nil
	case "inc", "income":
		return models.EntityIncome, nil
	case "exp", "expense":
		return models.EntityExpense, nil
	default:
		return "", fmt.Errorf("unknown entry type %q (cat|budget|recexp|recinc|inc|exp)", s)
	}
}

func (a *App) promptAmount(prompt string) (int64, error) {
	s, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return 0, err
	}
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: expected integer cents", s)
	}
	return cents, nil
}

func (a *App) addCategory(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Category name", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	kind, err := getSimpleText(a.reader, "Kind (expense|income)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	c := &models.Category{Name: name, Kind: models.CategoryKind(kind)}
	if err := a.ledger.Create(ctx, c); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Created category", c.ID)
}

func (a *App) addBudget(ctx context.Context) {
	categoryID, err := getSimpleText(a.reader, "Category ID", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	month, err := getSimpleText(a.reader, "Month (YYYY-MM)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	cents, err := a.promptAmount("Amount (cents)")
	if err != nil {
		log.Println(err.Error())
		return
	}

	b := &models.Budget{CategoryID: categoryID, Month: month, AmountCents: cents}
	if err := a.ledger.Create(ctx, b); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Created budget", b.ID)
}

// addTransaction handles both expense and income creation.
func (a *App) addTransaction(ctx context.Context, t models.EntityType) {
	categoryID, err := getSimpleText(a.reader, "Category ID", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	cents, err := a.promptAmount("Amount (cents)")
	if err != nil {
		log.Println(err.Error())
		return
	}
	dateStr, err := getSimpleText(a.reader, "Date (YYYY-MM-DD, empty for today)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr != "" {
		date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			log.Println(err.Error())
			return
		}
	}
	note, err := getSimpleText(a.reader, "Note (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	var rec models.Record
	if t == models.EntityExpense {
		rec = &models.Expense{CategoryID: categoryID, AmountCents: cents, Date: date, Note: note}
	} else {
		rec = &models.Income{CategoryID: categoryID, AmountCents: cents, Date: date, Note: note}
	}
	if err := a.ledger.Create(ctx, rec); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Created", t, rec.Meta().ID)
}

// addRecurring handles both recurring template kinds.
func (a *App) addRecurring(ctx context.Context, t models.EntityType) {
	categoryID, err := getSimpleText(a.reader, "Category ID", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	cents, err := a.promptAmount("Amount (cents)")
	if err != nil {
		log.Println(err.Error())
		return
	}
	interval, err := getSimpleText(a.reader, "Interval (daily|weekly|monthly)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	startStr, err := getSimpleText(a.reader, "Start date (YYYY-MM-DD)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		log.Println(err.Error())
		return
	}
	note, err := getSimpleText(a.reader, "Note (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	var rec models.Record
	if t == models.EntityRecurringExpense {
		r := &models.RecurringExpense{}
		r.CategoryID, r.AmountCents, r.Note = categoryID, cents, note
		r.Interval, r.StartAt, r.Active = models.Interval(interval), start, true
		rec = r
	} else {
		r := &models.RecurringIncome{}
		r.CategoryID, r.AmountCents, r.Note = categoryID, cents, note
		r.Interval, r.StartAt, r.Active = models.Interval(interval), start, true
		rec = r
	}
	if err := a.ledger.Create(ctx, rec); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Created", t, rec.Meta().ID)
}

func (a *App) list(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: list <cat|budget|recexp|recinc|inc|exp> [all]")
		return
	}
	t, err := parseEntityType(args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}
	includeDeleted := len(args) > 1 && args[1] == "all"

	rows, err := a.ledger.List(ctx, t, includeDeleted)
	if err != nil {
		log.Println(err.Error())
		return
	}
	for _, rec := range rows {
		fmt.Println(formatRecord(rec))
	}
	fmt.Printf("%d entries\n", len(rows))
}

func formatRecord(rec models.Record) string {
	m := rec.Meta()
	line := fmt.Sprintf("%s  [%s]", m.ID, m.SyncStatus)
	if m.SoftDeleted {
		line += " (deleted)"
	}
	switch r := rec.(type) {
	case *models.Category:
		line += fmt.Sprintf("  %s (%s)", r.Name, r.Kind)
	case *models.Budget:
		line += fmt.Sprintf("  %s %s: %d", r.CategoryID, r.Month, r.AmountCents)
	case *models.Expense:
		line += fmt.Sprintf("  %s  %d  %s  %s", r.Date.Format(dateLayout), r.AmountCents, r.CategoryID, r.Note)
		if r.Orphaned {
			line += " (orphaned)"
		}
	case *models.Income:
		line += fmt.Sprintf("  %s  %d  %s  %s", r.Date.Format(dateLayout), r.AmountCents, r.CategoryID, r.Note)
		if r.Orphaned {
			line += " (orphaned)"
		}
	case *models.RecurringExpense:
		line += fmt.Sprintf("  %s every %s from %s  %d", r.CategoryID, r.Interval, r.StartAt.Format(dateLayout), r.AmountCents)
	case *models.RecurringIncome:
		line += fmt.Sprintf("  %s every %s from %s  %d", r.CategoryID, r.Interval, r.StartAt.Format(dateLayout), r.AmountCents)
	}
	return line
}

func (a *App) delete(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: del <type> <id>")
		return
	}
	t, err := parseEntityType(args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}
	if err := a.ledger.Delete(ctx, t, args[1]); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Deleted. Restore with: restore", args[0], args[1])
}

func (a *App) restore(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: restore <type> <id>")
		return
	}
	t, err := parseEntityType(args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}
	if err := a.ledger.Restore(ctx, t, args[1]); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Restored.")
}

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: attach <expense-id> <file>")
		return
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		log.Println(err.Error())
		return
	}
	if err := a.ledger.AttachReceipt(ctx, args[0], data); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Receipt attached.")
}

func (a *App) generate(ctx context.Context) {
	n, err := a.ledger.GenerateDue(ctx, time.Now().UTC())
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Generated %d occurrence(s)\n", n)
}

func (a *App) sync(ctx context.Context) {
	if err := a.engine.Sync(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	s := a.engine.Status()
	fmt.Printf("Sync complete: %d downloaded, %d uploaded, %d failed\n", s.Downloaded, s.Uploaded, s.Failed)
}

func (a *App) fullResync(ctx context.Context) {
	if err := a.engine.FullResync(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	s := a.engine.Status()
	fmt.Printf("Full resync complete: %d downloaded, %d uploaded\n", s.Downloaded, s.Uploaded)
}

func (a *App) status(ctx context.Context) {
	s := a.engine.Status()
	fmt.Printf("phase: %s", s.Phase)
	if s.Collection != "" {
		fmt.Printf(" (%s)", s.Collection)
	}
	if s.Phase != syncer.PhaseIdle {
		fmt.Printf(" %.0f%%", s.Progress*100)
	}
	fmt.Println()
	fmt.Printf("downloaded: %d, uploaded: %d, failed: %d, conflicts: %d\n", s.Downloaded, s.Uploaded, s.Failed, s.Conflicts)
	if !s.LastSyncAt.IsZero() {
		fmt.Println("last sync:", s.LastSyncAt.Format(time.RFC3339))
	}
	if s.LastError != nil {
		fmt.Println("last error:", s.LastError)
	}
}

func (a *App) conflicts(ctx context.Context) {
	cs, err := a.engine.PendingConflicts(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(cs) == 0 {
		fmt.Println("No pending conflicts.")
		return
	}
	for _, c := range cs {
		fmt.Printf("%s %s\n  local:  %s\n  remote: %s\n", c.Type, c.ID, formatRecord(c.Local), formatRecord(c.Remote))
	}
	fmt.Println("Resolve with: resolve <type> <id> <local|remote>")
}

func (a *App) resolve(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: resolve <type> <id> <local|remote>")
		return
	}
	t, err := parseEntityType(args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}
	var verdict syncer.Resolution
	switch args[2] {
	case "local":
		verdict = syncer.KeepLocal
	case "remote":
		verdict = syncer.KeepRemote
	default:
		fmt.Println("Verdict must be 'local' or 'remote'")
		return
	}
	if err := a.engine.Resolve(ctx, t, args[1], verdict); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Resolved.")
}
