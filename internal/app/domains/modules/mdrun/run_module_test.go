package mdrun

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/infra/persistence/redis"
	"txcluster/internal/common/model"
)

type recordingPublisher struct {
	queue string
	data  interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, data interface{}) (string, error) {
	p.queue = queue
	p.data = data
	return "job-1", nil
}

func newModule(t *testing.T) (*RunModule, *recordingPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewPubSubClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	pub := &recordingPublisher{}
	return NewRunModule(pub, client, "cluster_run"), pub
}

func TestPublishRunJob(t *testing.T) {
	m, pub := newModule(t)

	jobID, err := m.PublishRunJob(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "cluster_run", pub.queue)

	raw, err := json.Marshal(pub.data)
	require.NoError(t, err)
	var job model.ClusterRunJob
	require.NoError(t, json.Unmarshal(raw, &job))
	assert.Equal(t, model.ActionClusterRun, job.Payload.Data.ActionType)
	assert.Equal(t, "run-1", job.Payload.Data.ID)
	assert.NotEmpty(t, job.Payload.Data.RequestID)
}

func TestListenThenNotify(t *testing.T) {
	m, _ := newModule(t)
	ctx := context.Background()

	waiter, err := m.ListenRunResult(ctx, "run-1")
	require.NoError(t, err)
	defer waiter.Close()

	require.NoError(t, m.NotifyRunFinished(ctx, model.RunNotification{RunID: "run-1", Status: "SUCCEEDED"}))

	n, err := waiter.Wait(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "run-1", n.RunID)
	assert.Equal(t, "SUCCEEDED", n.Status)
}

func TestWaitTimeout(t *testing.T) {
	m, _ := newModule(t)
	ctx := context.Background()

	waiter, err := m.ListenRunResult(ctx, "run-2")
	require.NoError(t, err)
	defer waiter.Close()

	_, err = waiter.Wait(ctx, 50*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
