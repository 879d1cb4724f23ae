package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/attachments"
	"github.com/dmitrijs2005/testtracker/internal/tracker/config"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/catalog"
	"github.com/dmitrijs2005/testtracker/internal/tracker/repositories/progress"
	"github.com/dmitrijs2005/testtracker/internal/tracker/storage"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type testApp struct {
	*App
	out   *bytes.Buffer
	repos *storage.Repositories
	dir   string
}

func newTestApp(t *testing.T, tester, input string) *testApp {
	t.Helper()
	dir := t.TempDir()

	store, err := attachments.NewLocalStore(filepath.Join(dir, "attachments"))
	require.NoError(t, err)
	repos := &storage.Repositories{
		Progress:    progress.NewCSVRepository(filepath.Join(dir, "progress.csv"), time.Second),
		Catalog:     catalog.NewCSVRepository(filepath.Join(dir, "catalog.csv"), time.Second),
		Attachments: store,
	}
	for _, tc := range []models.TestCase{
		{Module: "Auth", Task: "Sign in", ExpectedResult: "Dashboard"},
		{Module: "Auth", Task: "Sign out"},
	} {
		require.NoError(t, repos.Catalog.Create(context.Background(), &tc))
	}

	var out bytes.Buffer
	cfg := &config.Config{Tester: tester}
	a := newApp(cfg, repos, logging.Discard(), strings.NewReader(input), &out, func() time.Time { return testNow }, time.UTC)
	return &testApp{App: a, out: &out, repos: repos, dir: dir}
}

func (ta *testApp) entries(t *testing.T) []models.ProgressEntry {
	t.Helper()
	all, err := ta.repos.Progress.All(context.Background())
	require.NoError(t, err)
	return all
}

func TestApp_SetUser(t *testing.T) {
	ta := newTestApp(t, "", "bob\n")

	require.NoError(t, ta.SetUser(context.Background(), []string{"alice"}))
	assert.Equal(t, "alice", ta.tester)

	require.NoError(t, ta.SetUser(context.Background(), nil))
	assert.Equal(t, "bob", ta.tester, "prompted when no argument")

	err := ta.SetUser(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "bob", ta.tester)
}

func TestApp_CheckRequiresTester(t *testing.T) {
	ta := newTestApp(t, "", "")

	err := ta.Check(context.Background(), []string{"TC001"}, true)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, ta.entries(t))
}

func TestApp_CheckUncheckKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")

	require.NoError(t, ta.Check(ctx, []string{"TC001", "works", "fine"}, true))
	require.NoError(t, ta.Check(ctx, []string{"TC001"}, false))

	all := ta.entries(t)
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusNotTested, all[0].Status)
	assert.Equal(t, "works fine", all[0].Remarks, "remark carried over")
	assert.Contains(t, ta.out.String(), "Saved: [ ] TC001 2026-10-19 alice - works fine")
}

func TestApp_RemarkKeepsCheckbox(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "first line\nsecond line\n\n")

	require.NoError(t, ta.Check(ctx, []string{"TC001"}, true))
	require.NoError(t, ta.Remark(ctx, []string{"TC001"}))

	all := ta.entries(t)
	require.Len(t, all, 1)
	assert.True(t, all[0].Tested())
	assert.Equal(t, "first line\nsecond line", all[0].Remarks)
}

func TestApp_Attach(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")
	shot := filepath.Join(ta.dir, "shot.png")
	require.NoError(t, os.WriteFile(shot, []byte("png"), 0o600))

	require.NoError(t, ta.Check(ctx, []string{"TC001", "broken"}, false))
	require.NoError(t, ta.Attach(ctx, []string{"TC001", shot}))

	all := ta.entries(t)
	require.Len(t, all, 1)
	assert.Equal(t, "TC001_20261019093000_shot.png", all[0].Attachment)
	assert.Equal(t, "broken", all[0].Remarks)
	assert.False(t, all[0].Tested())

	data, err := ta.repos.Attachments.Get(ctx, all[0].Attachment)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	err = ta.Attach(ctx, []string{"TC001", filepath.Join(ta.dir, "missing.png")})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestApp_ShowAndCases(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")

	require.NoError(t, ta.Check(ctx, []string{"TC002"}, true))
	ta.out.Reset()

	require.NoError(t, ta.Cases(ctx))
	assert.Equal(t, "[ ] TC001  Auth / Sign in\n[x] TC002  Auth / Sign out\n", ta.out.String())

	ta.out.Reset()
	require.NoError(t, ta.Show(ctx, []string{"TC001"}))
	assert.Contains(t, ta.out.String(), "Task: Sign in")
	assert.Contains(t, ta.out.String(), "Today: no entry")

	ta.out.Reset()
	require.NoError(t, ta.Show(ctx, []string{"TC777"}))
	assert.Contains(t, ta.out.String(), "TC777 is not in the catalog")
}

func TestApp_StatsAndHistory(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")

	require.NoError(t, ta.Check(ctx, []string{"TC001"}, true))
	require.NoError(t, ta.Check(ctx, []string{"TC002"}, false))
	ta.out.Reset()

	require.NoError(t, ta.Stats(ctx))
	assert.Contains(t, ta.out.String(), "Tested today: 1")
	assert.Contains(t, ta.out.String(), "Total tested: 1 of 2")
	assert.Contains(t, ta.out.String(), "Completion: 50.0%")

	ta.out.Reset()
	require.NoError(t, ta.History(ctx, []string{"2026-10-19"}))
	assert.Equal(t, 2, strings.Count(ta.out.String(), "\n"))

	require.ErrorIs(t, ta.History(ctx, []string{"yesterday"}), common.ErrValidation)
	require.ErrorIs(t, ta.History(ctx, []string{"2026-10-19", "2026-10-01"}), common.ErrValidation)
}

func TestApp_Export(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")
	require.NoError(t, ta.Check(ctx, []string{"TC001", "ok"}, true))

	path := filepath.Join(ta.dir, "report.csv")
	require.NoError(t, ta.Export(ctx, []string{path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Test Case ID,Module,Task,Expected Result,Date,Status,Remarks,User,Remark Image Filename\n"+
			"TC001,Auth,Sign in,Dashboard,2026-10-19,Tested,ok,alice,\n",
		string(data))
}

func TestApp_Reset(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "no\nyes\n")
	require.NoError(t, ta.Check(ctx, []string{"TC001"}, true))

	require.NoError(t, ta.Reset(ctx, []string{"today"}))
	assert.Len(t, ta.entries(t), 1, "cancelled")

	require.NoError(t, ta.Reset(ctx, []string{"all"}))
	assert.Empty(t, ta.entries(t))
	assert.Contains(t, ta.out.String(), "Removed 1 entries")

	require.ErrorIs(t, ta.Reset(ctx, []string{"week"}), common.ErrValidation)
}

func TestApp_AddCaseAndRemove(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", strings.Join([]string{
		"Settings",
		"Profile",
		"Change avatar",
		"1. open settings",
		"2. upload",
		"",
		"Avatar updated",
		"",
	}, "\n")+"\n")

	require.NoError(t, ta.AddCase(ctx))
	assert.Contains(t, ta.out.String(), "Added TC003")

	tc, err := ta.repos.Catalog.Get(ctx, "TC003")
	require.NoError(t, err)
	assert.Equal(t, "1. open settings\n2. upload", tc.Steps)
	assert.Equal(t, "Avatar updated", tc.ExpectedResult)

	require.NoError(t, ta.RemoveCase(ctx, []string{"TC003"}))
	require.ErrorIs(t, ta.RemoveCase(ctx, []string{"TC003"}), common.ErrNotFound)
}

func TestApp_EditCaseKeepsBlankFields(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", strings.Join([]string{
		"Login page",
		"",
		"Sign in with SSO",
		"1. click SSO",
		"",
		"",
	}, "\n")+"\n")

	require.NoError(t, ta.EditCase(ctx, []string{"TC001"}))
	assert.Contains(t, ta.out.String(), "Updated TC001")

	tc, err := ta.repos.Catalog.Get(ctx, "TC001")
	require.NoError(t, err)
	assert.Equal(t, "Login page", tc.PageField)
	assert.Equal(t, "Auth", tc.Module)
	assert.Equal(t, "Sign in with SSO", tc.Task)
	assert.Equal(t, "1. click SSO", tc.Steps)
	assert.Equal(t, "Dashboard", tc.ExpectedResult)

	require.ErrorIs(t, ta.EditCase(ctx, []string{"TC404"}), common.ErrNotFound)
	require.ErrorIs(t, ta.EditCase(ctx, nil), common.ErrValidation)
}

func TestApp_ImageCopiesStoredAttachment(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")
	shot := filepath.Join(ta.dir, "shot.png")
	require.NoError(t, os.WriteFile(shot, []byte("png"), 0o600))
	require.NoError(t, ta.Attach(ctx, []string{"TC001", shot}))

	dest := filepath.Join(ta.dir, "copy.png")
	require.NoError(t, ta.Image(ctx, []string{"TC001_20261019093000_shot.png", dest}))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.ErrorIs(t, ta.Image(ctx, []string{"TC001_20261019093000_nope.png", dest}), common.ErrNotFound)
	require.ErrorIs(t, ta.Image(ctx, []string{"only-one"}), common.ErrValidation)
}

func TestApp_ImportExportCases(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "alice", "")

	in := filepath.Join(ta.dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"Test Case ID,Page/Field,Module,Task,Steps,Expected Result,Image Filename\n"+
			",Home,Nav,Open menu,,Menu visible,\n"), 0o600))
	require.NoError(t, ta.Import(ctx, []string{in}))
	assert.Contains(t, ta.out.String(), "Imported: 1 created, 0 updated")

	out := filepath.Join(ta.dir, "out.csv")
	require.NoError(t, ta.ExportCases(ctx, []string{out}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TC003,Home,Nav,Open menu,,Menu visible,")

	require.ErrorIs(t, ta.Import(ctx, []string{filepath.Join(ta.dir, "nope.csv")}), common.ErrValidation)
}

func TestApp_RunScripted(t *testing.T) {
	capturePrintln(t)
	ta := newTestApp(t, "", "user carol\ncheck TC001 done\nexit\n")

	require.NoError(t, ta.Run(context.Background()))

	all := ta.entries(t)
	require.Len(t, all, 1)
	assert.Equal(t, "carol", all[0].Tester)
	assert.Equal(t, "done", all[0].Remarks)
}

func TestApp_Prompt(t *testing.T) {
	ta := newTestApp(t, "", "")
	assert.Empty(t, ta.prompt())

	ta.interactive = true
	assert.Equal(t, "tracker> ", ta.prompt())
	ta.tester = "alice"
	assert.Equal(t, "tracker (alice)> ", ta.prompt())
}
