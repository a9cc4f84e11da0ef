package rprun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/config"
	"txcluster/internal/app/domains/entity/etrun"
	"txcluster/internal/app/infra/persistence/db"
	"txcluster/internal/app/pkg/errorx"
)

func newRepo(t *testing.T) RunRepository {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb))
	return NewRunRepository(gdb)
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	run, err := etrun.NewRun("run-1", etrun.RunModeAsync)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusQueued, got.Status)
	assert.Equal(t, etrun.RunModeAsync, got.Mode)
	assert.Nil(t, got.Result)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, errorx.ErrRunNotFound)
}

func TestRunRepository_UpdateSucceeded(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	run, err := etrun.NewRun("run-2", etrun.RunModeSync)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, run))

	require.NoError(t, run.Succeed(&etrun.Result{
		Fingerprint:        "abc",
		ModelReused:        true,
		TrainRows:          6,
		TestRows:           2,
		MissingTestClients: 1,
		LabelCounts:        map[int]int{0: 1, 1: 1},
		PlotPath:           "static/plot_run-2.png",
	}))
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByID(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "abc", got.Result.Fingerprint)
	assert.True(t, got.Result.ModelReused)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, got.Result.LabelCounts)
	assert.Equal(t, 1, got.Result.MissingTestClients)
	assert.NotNil(t, got.FinishedAt)
}

func TestRunRepository_UpdateFailed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	run, err := etrun.NewRun("run-3", etrun.RunModeAsync)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, run.Fail(errors.New("dataset not found")))
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.GetByID(ctx, "run-3")
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusFailed, got.Status)
	assert.Equal(t, "dataset not found", got.Error)
	assert.Nil(t, got.Result)

	ghost, err := etrun.NewRun("ghost", etrun.RunModeSync)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, ghost), errorx.ErrRunNotFound)
}

func TestRunRepository_List(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		run, err := etrun.NewRun(id, etrun.RunModeSync)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, run))
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
