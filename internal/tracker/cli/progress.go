package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/services"
)

func usage(text string) error {
	return fmt.Errorf("%w: usage: %s", common.ErrValidation, text)
}

func (a *App) requireTester() error {
	if a.tester == "" {
		return fmt.Errorf("%w: tester name is required, set it with 'user <name>'", common.ErrValidation)
	}
	return nil
}

// SetUser changes the tester name recorded on new observations.
func (a *App) SetUser(ctx context.Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		var err error
		name, err = GetSimpleText(a.reader, "Enter tester name", a.promptWriter())
		if err != nil {
			return err
		}
	}
	if name == "" {
		return fmt.Errorf("%w: tester name must not be empty", common.ErrValidation)
	}
	a.tester = name
	a.printf("Tester set to %s\n", name)
	return nil
}

// today returns the tester's entry for id today, if any.
func (a *App) today(ctx context.Context, id string) (models.ProgressEntry, bool, error) {
	entries, err := a.reports.Today(ctx, a.tester)
	if err != nil {
		return models.ProgressEntry{}, false, err
	}
	e, ok := entries[id]
	return e, ok, nil
}

// Check records id as tested (or not). Without a remark today's remark is
// carried over, as the checkbox form would.
func (a *App) Check(ctx context.Context, args []string, tested bool) error {
	if len(args) == 0 {
		return usage("check|uncheck <id> [remark...]")
	}
	if err := a.requireTester(); err != nil {
		return err
	}

	id := args[0]
	remarks := strings.Join(args[1:], " ")
	if remarks == "" {
		prev, _, err := a.today(ctx, id)
		if err != nil {
			return err
		}
		remarks = prev.Remarks
	}

	return a.reconcile(ctx, models.Observation{TestCaseID: id, Tester: a.tester, Tested: tested, Remarks: remarks})
}

// Remark edits today's remark and keeps the checkbox state.
func (a *App) Remark(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("remark <id>")
	}
	if err := a.requireTester(); err != nil {
		return err
	}

	prev, _, err := a.today(ctx, args[0])
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Enter remark", a.promptWriter())
	if err != nil {
		return err
	}

	return a.reconcile(ctx, models.Observation{TestCaseID: args[0], Tester: a.tester, Tested: prev.Tested(), Remarks: text})
}

// Attach stores a screenshot with today's entry. The checkbox state is kept;
// an explicit remark replaces today's.
func (a *App) Attach(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("attach <id> <file> [remark...]")
	}
	if err := a.requireTester(); err != nil {
		return err
	}

	id, path := args[0], args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read %s: %v", common.ErrValidation, path, err)
	}

	prev, _, err := a.today(ctx, id)
	if err != nil {
		return err
	}
	remarks := strings.Join(args[2:], " ")
	if remarks == "" {
		remarks = prev.Remarks
	}

	return a.reconcile(ctx, models.Observation{
		TestCaseID: id,
		Tester:     a.tester,
		Tested:     prev.Tested(),
		Remarks:    remarks,
		Attachment: &models.Upload{Name: filepath.Base(path), Data: data},
	})
}

func (a *App) reconcile(ctx context.Context, obs models.Observation) error {
	out, err := a.reconciler.Reconcile(ctx, obs)
	if err != nil {
		return err
	}
	if out.AttachmentErr != nil {
		a.println("Warning: attachment was not saved:", out.AttachmentErr)
	}
	a.println("Saved:", formatEntry(*out.Entry))
	return nil
}

func formatEntry(e models.ProgressEntry) string {
	box := "[ ]"
	if e.Tested() {
		box = "[x]"
	}
	s := fmt.Sprintf("%s %s %s %s", box, e.TestCaseID, e.Day, e.Tester)
	if e.Remarks != "" {
		s += " - " + strings.ReplaceAll(e.Remarks, "\n", " / ")
	}
	if e.Attachment != "" {
		s += " (" + e.Attachment + ")"
	}
	return s
}

// Show prints a test case with the tester's entry for today.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	id := args[0]

	tc, err := a.catalog.Get(ctx, id)
	switch {
	case err == nil:
		a.printf("%s\n  Page/Field: %s\n  Module: %s\n  Task: %s\n  Steps:\n    %s\n  Expected: %s\n",
			tc.ID, tc.PageField, tc.Module, tc.Task, strings.ReplaceAll(tc.Steps, "\n", "\n    "), tc.ExpectedResult)
		if tc.ReferenceImage != "" {
			a.printf("  Reference image: %s\n", tc.ReferenceImage)
		}
	case isNotFound(err):
		a.printf("%s is not in the catalog\n", id)
	default:
		return err
	}

	if a.tester == "" {
		return nil
	}
	e, ok, err := a.today(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		a.println("Today:", formatEntry(e))
	} else {
		a.println("Today: no entry")
	}
	return nil
}

// Stats prints the dashboard for the current tester (all testers when unset).
func (a *App) Stats(ctx context.Context) error {
	s, err := a.reports.Summary(ctx, a.tester, a.now())
	if err != nil {
		return err
	}
	who := a.tester
	if who == "" {
		who = "all testers"
	}
	a.printf("Progress for %s\n  Tested today: %d\n  Tested this week: %d\n  Total tested: %d of %d\n  Completion: %.1f%%\n",
		who, s.TestedToday, s.TestedThisWeek, s.TotalTested, s.CatalogSize, s.Completion*100)
	return nil
}

func parseWindow(args []string) (models.Window, error) {
	var w models.Window
	for i, arg := range args {
		if _, err := time.Parse(models.DayLayout, arg); err != nil {
			return w, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", common.ErrValidation, arg)
		}
		if i == 0 {
			w.From = arg
		} else {
			w.To = arg
		}
	}
	if w.From != "" && w.To != "" && w.To < w.From {
		return w, fmt.Errorf("%w: %s is before %s", common.ErrValidation, w.To, w.From)
	}
	return w, nil
}

// History lists the tester's entries (every tester when unset).
func (a *App) History(ctx context.Context, args []string) error {
	if len(args) > 2 {
		return usage("history [from] [to]")
	}
	w, err := parseWindow(args)
	if err != nil {
		return err
	}

	entries, err := a.reports.Entries(ctx, services.Filter{Tester: a.tester, Window: w})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.println("No entries for", w.String())
		return nil
	}
	for _, e := range entries {
		a.println(formatEntry(e))
	}
	return nil
}

// Export writes a CSV report to a file.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return usage("export <file> [from] [to]")
	}
	w, err := parseWindow(args[1:])
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[0], err)
	}
	if err := a.reports.ExportCSV(ctx, f, services.Filter{Tester: a.tester, Window: w}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", args[0], err)
	}
	a.println("Report written to", args[0])
	return nil
}

// Reset deletes the tester's entries for today or for all time after
// confirmation.
func (a *App) Reset(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "today" && args[0] != "all") {
		return usage("reset today|all")
	}
	if err := a.requireTester(); err != nil {
		return err
	}

	window := models.AllTime
	if args[0] == "today" {
		window = a.reports.TodayWindow()
	}

	answer, err := GetSimpleText(a.reader,
		fmt.Sprintf("Delete %s's entries for %s? Type 'yes' to confirm", a.tester, window.String()), a.promptWriter())
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		a.println("Reset cancelled")
		return nil
	}

	n, err := a.reports.Reset(ctx, a.tester, window)
	if err != nil {
		return err
	}
	a.printf("Removed %d entries\n", n)
	return nil
}
