// Package models defines the tracker's data types: catalog test cases,
// progress entries and the observations that produce them.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TestCaseIDPrefix starts every catalog identifier (TC001, TC002, ...).
const TestCaseIDPrefix = "TC"

// TestCase is one catalog definition a tester works through.
type TestCase struct {
	ID             string
	PageField      string
	Module         string
	Task           string
	Steps          string
	ExpectedResult string

	// ReferenceImage is an attachment filename, empty when none.
	ReferenceImage string
}

// FormatTestCaseID renders n as TC###. Numbers above 999 simply grow wider.
func FormatTestCaseID(n int) string {
	return fmt.Sprintf("%s%03d", TestCaseIDPrefix, n)
}

// ParseTestCaseNumber extracts the numeric suffix of a TC### identifier.
// ok is false for identifiers that do not follow the scheme.
func ParseTestCaseNumber(id string) (n int, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(id), TestCaseIDPrefix)
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextTestCaseID returns TC{max+1} over the identifiers that follow the
// scheme; foreign identifiers are ignored. An empty catalog yields TC001.
func NextTestCaseID(existing []string) string {
	highest := 0
	for _, id := range existing {
		if n, ok := ParseTestCaseNumber(id); ok && n > highest {
			highest = n
		}
	}
	return FormatTestCaseID(highest + 1)
}
