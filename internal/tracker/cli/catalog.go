package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

// Cases lists the catalog with the tester's status for today.
func (a *App) Cases(ctx context.Context) error {
	cases, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		a.println("The catalog is empty. Add cases with 'addcase' or 'import <file>'.")
		return nil
	}

	today := map[string]models.ProgressEntry{}
	if a.tester != "" {
		if today, err = a.reports.Today(ctx, a.tester); err != nil {
			return err
		}
	}

	for _, tc := range cases {
		box := "[ ]"
		if e, ok := today[tc.ID]; ok && e.Tested() {
			box = "[x]"
		}
		a.printf("%s %s  %s / %s\n", box, tc.ID, tc.Module, tc.Task)
	}
	return nil
}

// AddCase prompts for the fields of a new test case.
func (a *App) AddCase(ctx context.Context) error {
	w := a.promptWriter()
	ask := func(prompt string) string {
		s, _ := GetSimpleText(a.reader, prompt, w)
		return s
	}

	tc := &models.TestCase{}
	tc.PageField = ask("Page/Field")
	tc.Module = ask("Module")
	tc.Task = ask("Task")
	steps, err := GetMultiline(a.reader, "Steps", w)
	if err != nil {
		return err
	}
	tc.Steps = steps
	tc.ExpectedResult = ask("Expected result")
	imagePath := ask("Reference image file (empty for none)")

	var image *models.Upload
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("%w: cannot read %s: %v", common.ErrValidation, imagePath, err)
		}
		image = &models.Upload{Name: filepath.Base(imagePath), Data: data}
	}

	created, err := a.catalog.Add(ctx, tc, image)
	if created != nil {
		a.println("Added", created.ID)
	}
	if errors.Is(err, common.ErrAttachmentWrite) {
		a.println("Warning: reference image was not saved:", err)
		return nil
	}
	return err
}

// EditCase prompts for every field of an existing test case. Empty input
// keeps the current value.
func (a *App) EditCase(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("editcase <id>")
	}
	tc, err := a.catalog.Get(ctx, args[0])
	if err != nil {
		return err
	}

	w := a.promptWriter()
	keep := func(prompt string, current *string) {
		s, _ := GetSimpleText(a.reader, fmt.Sprintf("%s [%s]", prompt, *current), w)
		if s != "" {
			*current = s
		}
	}

	keep("Page/Field", &tc.PageField)
	keep("Module", &tc.Module)
	keep("Task", &tc.Task)
	steps, err := GetMultiline(a.reader, "Steps (empty keeps current)", w)
	if err != nil {
		return err
	}
	if steps != "" {
		tc.Steps = steps
	}
	keep("Expected result", &tc.ExpectedResult)

	if err := a.catalog.Edit(ctx, tc); err != nil {
		return err
	}
	a.println("Updated", tc.ID)
	return nil
}

// Image copies a stored attachment to a local file.
func (a *App) Image(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("image <name> <dest>")
	}
	data, err := a.catalog.Attachment(ctx, args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", args[1], err)
	}
	a.printf("Wrote %s (%d bytes)\n", args[1], len(data))
	return nil
}

// RemoveCase deletes a test case. Progress rows are kept.
func (a *App) RemoveCase(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmcase <id>")
	}
	if err := a.catalog.Remove(ctx, args[0]); err != nil {
		return err
	}
	a.println("Removed", args[0])
	return nil
}

// Import loads test cases from a CSV file.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: cannot open %s: %v", common.ErrValidation, args[0], err)
	}
	defer f.Close()

	res, err := a.catalog.ImportCSV(ctx, f)
	a.printf("Imported: %d created, %d updated\n", res.Created, res.Updated)
	return err
}

// ExportCases writes the catalog to a CSV file in import format.
func (a *App) ExportCases(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("exportcases <file>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[0], err)
	}
	if err := a.catalog.ExportCSV(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", args[0], err)
	}
	a.println("Catalog written to", args[0])
	return nil
}
