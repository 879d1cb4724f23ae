// Package catalog persists the test case catalog: the definitions testers
// work through. Progress rows reference catalog IDs weakly, so deleting a
// test case never touches progress.
package catalog

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

// Reader is the read side consumed by reconciliation and reports.
type Reader interface {
	// ListAll returns every test case ordered by ID number.
	ListAll(ctx context.Context) ([]models.TestCase, error)

	// Exists reports whether id is in the catalog.
	Exists(ctx context.Context, id string) (bool, error)
}

// Repository adds the edit operations.
type Repository interface {
	Reader

	// Get returns one test case or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.TestCase, error)

	// Create inserts tc. An empty tc.ID is allocated as TC{max+1} under the
	// same lock as the insert and written back into tc.
	Create(ctx context.Context, tc *models.TestCase) error

	// Update replaces every field of an existing test case.
	Update(ctx context.Context, tc *models.TestCase) error

	// Delete removes a test case.
	Delete(ctx context.Context, id string) error
}

// sortCases orders by TC number, then lexically for foreign identifiers.
func sortCases(cases []models.TestCase) {
	sort.SliceStable(cases, func(i, j int) bool {
		ni, oki := models.ParseTestCaseNumber(cases[i].ID)
		nj, okj := models.ParseTestCaseNumber(cases[j].ID)
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return cases[i].ID < cases[j].ID
	})
}

func ids(cases []models.TestCase) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.ID
	}
	return out
}
