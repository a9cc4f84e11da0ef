package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/common/model"
	"txcluster/internal/domains"
	"txcluster/internal/domains/common"
	"txcluster/internal/framework"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type queue struct {
	mu      sync.Mutex
	pending []*framework.Message
	acked   []string
}

func (q *queue) Consume(name string, timeout, _ time.Duration) (*framework.Message, error) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		msg.Queue = name
		return msg, nil
	}
	q.mu.Unlock()
	time.Sleep(timeout)
	return nil, nil
}

func (q *queue) Ack(_ string, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *queue) ackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

type executor struct {
	mu   sync.Mutex
	runs []string
}

func (e *executor) Execute(_ context.Context, runID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, runID)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Lmstfy.Queue = "cluster_run"
	cfg.Worker.Name = "cluster-run-worker"
	cfg.Worker.Subscriber = config.SubscriberConfig{Threads: 1, Timeout: 5 * time.Millisecond, ErrorBackoff: 5 * time.Millisecond}
	cfg.Worker.Processor = config.ProcessorConfig{Threads: 2, BufferSize: 2, Timeout: time.Second}
	return cfg
}

func message(t *testing.T, id string) *framework.Message {
	t.Helper()
	data, err := json.Marshal(model.ClusterRunJob{
		Payload: model.ClusterRunPayload{Data: model.ClusterRunData{ActionType: model.ActionClusterRun, ID: id}},
	})
	require.NoError(t, err)
	return &framework.Message{ID: "job-" + id, Data: data}
}

func TestManagerProcessesJobsAndShutsDown(t *testing.T) {
	q := &queue{pending: []*framework.Message{message(t, "a"), message(t, "b"), message(t, "c")}}
	exec := &executor{}
	log := logger.NewNop()

	mgr := NewManagerInstance(testConfig(), q, domains.GetProcess(log, &common.Deps{Runs: exec}), log)

	done := make(chan error, 1)
	go func() { done <- mgr.Start() }()

	require.Eventually(t, func() bool { return q.ackedCount() == 3 }, 2*time.Second, 5*time.Millisecond)

	mgr.Shutdown()
	mgr.Shutdown()
	require.NoError(t, <-done)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, exec.runs)
}

func TestManagerShutdownBeforeStart(t *testing.T) {
	log := logger.NewNop()
	mgr := NewManagerInstance(testConfig(), &queue{}, domains.GetProcess(log, &common.Deps{Runs: &executor{}}), log)

	mgr.Shutdown()
	assert.NoError(t, mgr.Start())
}
