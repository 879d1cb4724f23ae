package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/testtracker/internal/logging"
	"github.com/dmitrijs2005/testtracker/internal/tracker/config"
	"github.com/dmitrijs2005/testtracker/internal/tracker/services"
	"github.com/dmitrijs2005/testtracker/internal/tracker/storage"
)

// App is the tracker shell: configuration, storage and services plus the
// current tester.
type App struct {
	config     *config.Config
	repos      *storage.Repositories
	reconciler *services.Reconciler
	reports    *services.ReportService
	catalog    *services.CatalogService
	log        logging.Logger

	tester      string
	now         func() time.Time
	reader      *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewApp opens storage and builds the services for cfg.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	repos, err := storage.InitDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}

	a := newApp(cfg, repos, log, os.Stdin, os.Stdout, time.Now, loc)
	a.interactive = stdinIsTerminal()
	return a, nil
}

func newApp(cfg *config.Config, repos *storage.Repositories, log logging.Logger, in io.Reader, out io.Writer, now func() time.Time, loc *time.Location) *App {
	opts := []services.Option{services.WithClock(now), services.WithLocation(loc)}
	a := &App{
		config: cfg,
		repos:  repos,
		log:    log,
		tester: strings.TrimSpace(cfg.Tester),
		now:    now,
		reader: bufio.NewReader(in),
		out:    out,
	}
	a.reconciler = services.NewReconciler(repos.Progress, repos.Catalog, repos.Attachments, log, opts...)
	a.reports = services.NewReportService(repos.Progress, repos.Catalog, log, opts...)
	a.catalog = services.NewCatalogService(repos.Catalog, repos.Attachments, log, opts...)
	return a
}

// Run starts the REPL and blocks until the user exits. Storage is closed on
// return.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.repos.Close(); err != nil {
			a.log.Error(ctx, "closing storage", "error", err)
		}
	}()

	if a.interactive {
		a.println("Test tracker (type 'help' for commands)")
		if a.tester == "" {
			a.println("Set your name with: user <name>")
		}
	}

	runREPL(ctx, a, a.prompt, a.reader)
	return nil
}

func (a *App) prompt() string {
	if !a.interactive {
		return ""
	}
	if a.tester == "" {
		return "tracker> "
	}
	return fmt.Sprintf("tracker (%s)> ", a.tester)
}

// promptWriter is where input prompts go; nil when not on a terminal.
func (a *App) promptWriter() io.Writer {
	if a.interactive {
		return a.out
	}
	return nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
