package svrun

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/config"
	"txcluster/internal/app/domains/entity/etrun"
	"txcluster/internal/app/domains/modules/mdrun"
	"txcluster/internal/app/domains/repo/rprun"
	"txcluster/internal/app/infra/persistence/db"
	"txcluster/internal/app/infra/persistence/redis"
	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/pipeline"
	"txcluster/internal/common/model"
)

type fakeRunner struct {
	err error
}

func (r *fakeRunner) Run(_ context.Context, runID string) (*pipeline.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Result{
		RunID:       runID,
		Fingerprint: "fp",
		TrainRows:   6,
		TestRows:    2,
		LabelCounts: map[int]int{0: 1, 1: 1},
		PlotPath:    "static/plot_" + runID + ".png",
		PNG:         []byte("png"),
	}, nil
}

// inlineQueue 投递后立即在后台执行，模拟 worker
type inlineQueue struct {
	svc *RunService
	wg  sync.WaitGroup
	err error
}

func (q *inlineQueue) Publish(_ context.Context, _ string, data interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	job := data.(model.ClusterRunJob)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		_ = q.svc.Execute(context.Background(), job.Payload.Data.ID)
	}()
	return "job-1", nil
}

func newRepo(t *testing.T) rprun.RunRepository {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb))
	return rprun.NewRunRepository(gdb)
}

func newAsyncService(t *testing.T, runner Runner) (*RunService, *inlineQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewPubSubClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	queue := &inlineQueue{}
	svc := NewRunService(newRepo(t), runner, mdrun.NewRunModule(queue, client, "cluster_run"), logger.NewNop())
	queue.svc = svc
	t.Cleanup(queue.wg.Wait)
	return svc, queue
}

func TestRunSync(t *testing.T) {
	svc := NewRunService(newRepo(t), &fakeRunner{}, nil, logger.NewNop())
	ctx := context.Background()

	run, png, err := svc.RunSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), png)
	assert.Equal(t, etrun.RunStatusSucceeded, run.Status)

	stored, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, etrun.RunModeSync, stored.Mode)
	assert.Equal(t, "fp", stored.Result.Fingerprint)

	path, err := svc.PlotPath(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "static/plot_"+run.ID+".png", path)
}

func TestRunSync_FailureIsRecorded(t *testing.T) {
	svc := NewRunService(newRepo(t), &fakeRunner{err: errorx.ErrModelNotFitted}, nil, logger.NewNop())
	ctx := context.Background()

	run, png, err := svc.RunSync(ctx)
	assert.ErrorIs(t, err, errorx.ErrModelNotFitted)
	assert.Nil(t, png)
	require.NotNil(t, run)

	stored, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusFailed, stored.Status)
	assert.Equal(t, errorx.ErrModelNotFitted.Error(), stored.Error)

	_, err = svc.PlotPath(ctx, run.ID)
	assert.ErrorIs(t, err, errorx.ErrRunNotFinished)
}

func TestSubmit_AsyncDisabled(t *testing.T) {
	svc := NewRunService(newRepo(t), &fakeRunner{}, nil, logger.NewNop())
	_, err := svc.Submit(context.Background(), 5)
	assert.ErrorIs(t, err, errorx.ErrAsyncDisabled)
}

func TestSubmit_SmartWaitReturnsFinishedRun(t *testing.T) {
	svc, _ := newAsyncService(t, &fakeRunner{})

	run, err := svc.Submit(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, run.Result.LabelCounts)
}

func TestSubmit_NoWaitReturnsQueued(t *testing.T) {
	svc, queue := newAsyncService(t, &fakeRunner{})
	ctx := context.Background()

	run, err := svc.Submit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusQueued, run.Status)

	queue.wg.Wait()
	stored, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusSucceeded, stored.Status)
}

func TestSubmit_PublishFailureMarksRunFailed(t *testing.T) {
	svc, queue := newAsyncService(t, &fakeRunner{})
	queue.err = errors.New("queue down")

	_, err := svc.Submit(context.Background(), 1)
	assert.ErrorContains(t, err, "queue down")
}

func TestExecute(t *testing.T) {
	repo := newRepo(t)
	svc := NewRunService(repo, &fakeRunner{err: errorx.ErrEmptyIntersection}, nil, logger.NewNop())
	ctx := context.Background()

	run, err := etrun.NewRun("run-1", etrun.RunModeAsync)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, run))

	err = svc.Execute(ctx, "run-1")
	assert.ErrorIs(t, err, errorx.ErrEmptyIntersection)
	assert.False(t, errorx.IsRetryable(err))

	stored, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, etrun.RunStatusFailed, stored.Status)

	// 重复投递直接跳过
	assert.NoError(t, svc.Execute(ctx, "run-1"))

	err = svc.Execute(ctx, "missing")
	assert.ErrorIs(t, err, errorx.ErrRunNotFound)
	assert.False(t, errorx.IsRetryable(err))
}
