package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/testtracker/internal/common"
	"github.com/dmitrijs2005/testtracker/internal/tracker/models"
)

func repositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create allocates sequential ids", func(t *testing.T) {
		r := newRepo(t)

		first := &models.TestCase{Module: "Login", Task: "valid credentials"}
		require.NoError(t, r.Create(ctx, first))
		assert.Equal(t, "TC001", first.ID)

		second := &models.TestCase{Module: "Login", Task: "wrong password"}
		require.NoError(t, r.Create(ctx, second))
		assert.Equal(t, "TC002", second.ID)
	})

	t.Run("allocation continues after max and ignores foreign ids", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.Create(ctx, &models.TestCase{ID: "TC007"}))
		require.NoError(t, r.Create(ctx, &models.TestCase{ID: "SMOKE-1"}))

		tc := &models.TestCase{Task: "next"}
		require.NoError(t, r.Create(ctx, tc))
		assert.Equal(t, "TC008", tc.ID)
	})

	t.Run("explicit duplicate id is rejected", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.Create(ctx, &models.TestCase{ID: "TC001"}))
		err := r.Create(ctx, &models.TestCase{ID: "TC001"})
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("get round trips every field", func(t *testing.T) {
		r := newRepo(t)

		want := models.TestCase{
			PageField:      "Login page / Email",
			Module:         "Auth",
			Task:           "Sign in",
			Steps:          "1. open\n2. type, submit",
			ExpectedResult: "Dashboard shown",
			ReferenceImage: "TC001_20261019093000_ref.png",
		}
		tc := want
		require.NoError(t, r.Create(ctx, &tc))
		want.ID = tc.ID

		got, err := r.Get(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, want, *got)

		ok, err := r.Exists(ctx, tc.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing test case", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Get(ctx, "TC404")
		require.ErrorIs(t, err, common.ErrNotFound)

		ok, err := r.Exists(ctx, "TC404")
		require.NoError(t, err)
		assert.False(t, ok)

		require.ErrorIs(t, r.Update(ctx, &models.TestCase{ID: "TC404"}), common.ErrNotFound)
		require.ErrorIs(t, r.Delete(ctx, "TC404"), common.ErrNotFound)
	})

	t.Run("update and delete", func(t *testing.T) {
		r := newRepo(t)

		tc := &models.TestCase{Task: "old"}
		require.NoError(t, r.Create(ctx, tc))

		tc.Task = "new"
		require.NoError(t, r.Update(ctx, tc))
		got, err := r.Get(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Task)

		require.NoError(t, r.Delete(ctx, tc.ID))
		all, err := r.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("list orders by number", func(t *testing.T) {
		r := newRepo(t)

		for _, id := range []string{"TC010", "TC002", "TC1000", "TC001"} {
			require.NoError(t, r.Create(ctx, &models.TestCase{ID: id}))
		}

		all, err := r.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"TC001", "TC002", "TC010", "TC1000"}, ids(all))
	})

	t.Run("concurrent creates get distinct ids", func(t *testing.T) {
		r := newRepo(t)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- r.Create(ctx, &models.TestCase{Task: "parallel"})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := r.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, n)
		assert.Equal(t, "TC008", all[n-1].ID)
	})
}
