package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/testtracker/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

const helpText = `Available commands:
  user <name>                   set the tester name
  cases                         list test cases with today's status
  check <id> [remark...]        mark a test case as tested today
  uncheck <id> [remark...]      mark a test case as not tested today
  remark <id>                   edit today's remark (multi-line)
  attach <id> <file> [remark]   attach a screenshot to today's entry
  show <id>                     show a test case and today's entry
  stats                         dashboard summary
  history [from] [to]           list your entries (YYYY-MM-DD bounds)
  export <file> [from] [to]     write a progress report as CSV
  reset today|all               delete your entries
  image <name> <dest>           copy a stored screenshot or reference image to dest
  addcase                       add a test case
  editcase <id>                 edit a test case (empty input keeps a field)
  rmcase <id>                   remove a test case
  import <file>                 import test cases from CSV
  exportcases <file>            export the catalog as CSV
  exit | quit                   leave the program`

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	SetUser(ctx context.Context, args []string) error
	Cases(ctx context.Context) error
	Check(ctx context.Context, args []string, tested bool) error
	Remark(ctx context.Context, args []string) error
	Attach(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	History(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
	Image(ctx context.Context, args []string) error
	AddCase(ctx context.Context) error
	EditCase(ctx context.Context, args []string) error
	RemoveCase(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	ExportCases(ctx context.Context, args []string) error
}

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit". promptFn returns the prompt to print before each line;
// an empty prompt prints nothing. Handler errors are reported and the loop
// continues.
func runREPL(ctx context.Context, a execIface, promptFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		if p := promptFn(); p != "" {
			printlnFn(p)
		}

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "user":
			cmdErr = a.SetUser(ctx, args)

		case "cases", "list":
			cmdErr = a.Cases(ctx)

		case "check":
			cmdErr = a.Check(ctx, args, true)

		case "uncheck":
			cmdErr = a.Check(ctx, args, false)

		case "remark":
			cmdErr = a.Remark(ctx, args)

		case "attach":
			cmdErr = a.Attach(ctx, args)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "history":
			cmdErr = a.History(ctx, args)

		case "export":
			cmdErr = a.Export(ctx, args)

		case "reset":
			cmdErr = a.Reset(ctx, args)

		case "image":
			cmdErr = a.Image(ctx, args)

		case "addcase":
			cmdErr = a.AddCase(ctx)

		case "editcase":
			cmdErr = a.EditCase(ctx, args)

		case "rmcase":
			cmdErr = a.RemoveCase(ctx, args)

		case "import":
			cmdErr = a.Import(ctx, args)

		case "exportcases":
			cmdErr = a.ExportCases(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		reportError(cmdErr)

		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func reportError(err error) {
	switch {
	case err == nil:
	case errors.Is(err, common.ErrValidation):
		printlnFn("Invalid input:", err)
		printlnFn("Please correct it and try again (type 'help' for usage).")
	case errors.Is(err, common.ErrNotFound):
		printlnFn("Not found:", err)
	default:
		printlnFn("Error:", err)
	}
}
