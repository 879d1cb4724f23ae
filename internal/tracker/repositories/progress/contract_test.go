package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

var (
	day1 = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
)

func key(tc, tester string, at time.Time) models.ProgressKey {
	return models.ProgressKey{TestCaseID: tc, Tester: tester, Window: models.DayWindow(at)}
}

func strptr(s string) *string { return &s }

// repositoryContract exercises behaviour every backend must share.
func repositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("insert then update keeps one row", func(t *testing.T) {
		r := newRepo(t)
		k := key("TC001", "alice", day1)

		first, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, Remarks: "looks good", ObservedAt: day1})
		require.NoError(t, err)
		require.NotEmpty(t, first.ID)

		second, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusNotTested, Remarks: "broken", ObservedAt: day1.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.Seq, second.Seq)

		got, err := r.Query(ctx, k)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.StatusNotTested, got[0].Status)
		assert.Equal(t, "broken", got[0].Remarks)
	})

	t.Run("round trip is field for field", func(t *testing.T) {
		r := newRepo(t)
		k := key("TC001", "alice", day1)

		written, err := r.Upsert(ctx, k, models.ProgressUpdate{
			Status: models.StatusTested, Remarks: "with, comma \"and\" quotes\nnewline", ObservedAt: day1, Attachment: strptr("TC001_20261019093000_shot.png"),
		})
		require.NoError(t, err)

		got, err := r.Query(ctx, k)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, *written, got[0])
		assert.True(t, got[0].ObservedAt.Equal(day1))
		assert.Equal(t, "2026-10-19", got[0].Day)
	})

	t.Run("nil attachment keeps previous", func(t *testing.T) {
		r := newRepo(t)
		k := key("TC001", "alice", day1)

		_, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day1, Attachment: strptr("a.png")})
		require.NoError(t, err)
		e, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, Remarks: "again", ObservedAt: day1})
		require.NoError(t, err)
		assert.Equal(t, "a.png", e.Attachment)

		e, err = r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day1, Attachment: strptr("b.png")})
		require.NoError(t, err)
		assert.Equal(t, "b.png", e.Attachment)
	})

	t.Run("testers and days are independent", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Upsert(ctx, key("TC001", "alice", day1), models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day1})
		require.NoError(t, err)
		_, err = r.Upsert(ctx, key("TC001", "bob", day1), models.ProgressUpdate{Status: models.StatusNotTested, ObservedAt: day1})
		require.NoError(t, err)
		_, err = r.Upsert(ctx, key("TC001", "alice", day2), models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day2})
		require.NoError(t, err)

		alice, err := r.Query(ctx, key("TC001", "alice", day1))
		require.NoError(t, err)
		require.Len(t, alice, 1)
		assert.Equal(t, "alice", alice[0].Tester)

		all, err := r.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"alice", "bob", "alice"}, []string{all[0].Tester, all[1].Tester, all[2].Tester})
		assert.Less(t, all[0].Seq, all[1].Seq)
		assert.Less(t, all[1].Seq, all[2].Seq)

		history, err := r.Query(ctx, models.ProgressKey{Tester: "alice"})
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("upsert validates key", func(t *testing.T) {
		r := newRepo(t)
		upd := models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day1}

		for _, k := range []models.ProgressKey{
			{Tester: "alice", Window: models.DayWindow(day1)},
			{TestCaseID: "TC001", Window: models.DayWindow(day1)},
			{TestCaseID: "TC001", Tester: "alice"},
			{TestCaseID: "TC001", Tester: "alice", Window: models.Window{From: "2026-10-01", To: "2026-10-31"}},
		} {
			_, err := r.Upsert(ctx, k, upd)
			require.ErrorIs(t, err, common.ErrValidation)
		}

		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("remove window", func(t *testing.T) {
		r := newRepo(t)
		for _, at := range []time.Time{day1, day2} {
			for _, tester := range []string{"alice", "bob"} {
				_, err := r.Upsert(ctx, key("TC001", tester, at), models.ProgressUpdate{Status: models.StatusTested, ObservedAt: at})
				require.NoError(t, err)
			}
		}

		n, err := r.RemoveWindow(ctx, "alice", models.DayWindow(day1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = r.RemoveWindow(ctx, "bob", models.AllTime)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := r.All(ctx)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "alice", left[0].Tester)
		assert.Equal(t, "2026-10-20", left[0].Day)

		_, err = r.RemoveWindow(ctx, "", models.AllTime)
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("concurrent upserts on one key lose nothing", func(t *testing.T) {
		r := newRepo(t)
		k := key("TC001", "alice", day1)

		const n = 16
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, Remarks: fmt.Sprintf("r%d", i), ObservedAt: day1})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := r.Query(ctx, k)
		require.NoError(t, err)
		require.Len(t, got, 1, "one key must converge to one row")
	})

	t.Run("concurrent upserts on distinct keys all land", func(t *testing.T) {
		r := newRepo(t)

		const n = 16
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				k := key(models.FormatTestCaseID(i+1), "alice", day1)
				_, err := r.Upsert(ctx, k, models.ProgressUpdate{Status: models.StatusTested, ObservedAt: day1})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		all, err := r.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, n)
	})
}
