package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/progress"
)

// ReportHeader is the column layout of exported progress reports.
var ReportHeader = []string{
	"Test Case ID", "Module", "Task", "Expected Result", "Date", "Status", "Remarks", "User", "Remark Image Filename",
}

// Filter narrows report queries. An empty Tester means every tester.
type Filter struct {
	Tester string
	Window models.Window
}

// Stats is the dashboard summary. Counts are distinct test case IDs with
// status Tested.
type Stats struct {
	TestedToday    int
	TestedThisWeek int
	TotalTested    int
	CatalogSize    int

	// Completion is the share of catalog test cases tested at least once,
	// in [0, 1]. IDs missing from the catalog do not count.
	Completion float64
}

// ReportService is the read-only projection over progress, plus the
// explicit reset operation.
type ReportService struct {
	progress progress.Repository
	catalog  catalog.Reader
	log      logging.Logger
	settings
}

func NewReportService(p progress.Repository, c catalog.Reader, log logging.Logger, opts ...Option) *ReportService {
	return &ReportService{progress: p, catalog: c, log: log, settings: applyOptions(opts)}
}

// Entries returns matching entries in insertion order.
func (s *ReportService) Entries(ctx context.Context, f Filter) ([]models.ProgressEntry, error) {
	return s.progress.Query(ctx, models.ProgressKey{Tester: strings.TrimSpace(f.Tester), Window: f.Window})
}

// Today maps test case ID to the tester's latest entry for the current day.
func (s *ReportService) Today(ctx context.Context, tester string) (map[string]models.ProgressEntry, error) {
	tester = strings.TrimSpace(tester)
	if tester == "" {
		return nil, fmt.Errorf("%w: tester name is required", common.ErrValidation)
	}

	entries, err := s.progress.Query(ctx, models.ProgressKey{Tester: tester, Window: models.DayWindow(s.current())})
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.ProgressEntry, len(entries))
	for _, e := range entries {
		result[e.TestCaseID] = e
	}
	return result, nil
}

// Summary computes dashboard counters as of now.
func (s *ReportService) Summary(ctx context.Context, tester string, now time.Time) (*Stats, error) {
	now = now.In(s.loc)

	entries, err := s.Entries(ctx, Filter{Tester: tester})
	if err != nil {
		return nil, err
	}
	cases, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	today := models.DayWindow(now)
	week := models.WeekWindow(now)

	tested := map[string]struct{}{}
	testedToday := map[string]struct{}{}
	testedWeek := map[string]struct{}{}
	for _, e := range entries {
		if !e.Tested() {
			continue
		}
		tested[e.TestCaseID] = struct{}{}
		if today.Contains(e.Day) {
			testedToday[e.TestCaseID] = struct{}{}
		}
		if week.Contains(e.Day) {
			testedWeek[e.TestCaseID] = struct{}{}
		}
	}

	stats := &Stats{
		TestedToday:    len(testedToday),
		TestedThisWeek: len(testedWeek),
		TotalTested:    len(tested),
		CatalogSize:    len(cases),
	}

	if len(cases) > 0 {
		covered := 0
		for _, c := range cases {
			if _, ok := tested[c.ID]; ok {
				covered++
			}
		}
		stats.Completion = float64(covered) / float64(len(cases))
	}
	return stats, nil
}

// ExportCSV writes a report joined with catalog columns. Entries whose test
// case is no longer in the catalog get blank catalog columns.
func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, f Filter) error {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return err
	}
	cases, err := s.catalog.ListAll(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]models.TestCase, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, e := range entries {
		c := byID[e.TestCaseID]
		rec := []string{
			e.TestCaseID, c.Module, c.Task, c.ExpectedResult,
			e.Day, string(e.Status), e.Remarks, e.Tester, e.Attachment,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	s.log.Debug(ctx, "report exported", "rows", len(entries), "tester", f.Tester, "window", f.Window.String())
	return nil
}

// Reset deletes the tester's entries within window. This is the only path
// that removes progress rows.
func (s *ReportService) Reset(ctx context.Context, tester string, window models.Window) (int64, error) {
	tester = strings.TrimSpace(tester)
	if tester == "" {
		return 0, fmt.Errorf("%w: tester name is required", common.ErrValidation)
	}

	n, err := s.progress.RemoveWindow(ctx, tester, window)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "progress reset", "tester", tester, "window", window.String(), "removed", n)
	return n, nil
}

// TodayWindow is the current calendar day in the service's location.
func (s *ReportService) TodayWindow() models.Window {
	return models.DayWindow(s.current())
}
