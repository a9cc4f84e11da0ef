package domains

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/common/model"
	"txcluster/internal/domains/common"
	"txcluster/internal/framework"
)

type stubExecutor struct {
	err   error
	panic bool
	got   string
}

func (s *stubExecutor) Execute(_ context.Context, runID string) error {
	s.got = runID
	if s.panic {
		panic("boom")
	}
	return s.err
}

func jobMessage(t *testing.T, action, id string) *framework.Message {
	t.Helper()
	data, err := json.Marshal(model.ClusterRunJob{
		Payload: model.ClusterRunPayload{Data: model.ClusterRunData{ActionType: action, ID: id}},
	})
	require.NoError(t, err)
	return &framework.Message{ID: "job-1", Queue: "cluster_run", Data: data}
}

func TestGetProcess(t *testing.T) {
	tests := []struct {
		name   string
		exec   *stubExecutor
		msg    func(t *testing.T) *framework.Message
		action framework.JobRespStatus
	}{
		{
			name:   "success",
			exec:   &stubExecutor{},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, model.ActionClusterRun, "run-1") },
			action: framework.JobRespStatusSuccess,
		},
		{
			name:   "retryable error releases",
			exec:   &stubExecutor{err: errorx.Retriable(errors.New("db down"))},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, model.ActionClusterRun, "run-1") },
			action: framework.JobRespStatusRelease,
		},
		{
			name:   "pipeline error buries",
			exec:   &stubExecutor{err: errorx.ErrModelNotFitted},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, model.ActionClusterRun, "run-1") },
			action: framework.JobRespStatusBury,
		},
		{
			name:   "panic buries",
			exec:   &stubExecutor{panic: true},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, model.ActionClusterRun, "run-1") },
			action: framework.JobRespStatusBury,
		},
		{
			name:   "unknown action buries",
			exec:   &stubExecutor{},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, "order_diagnose", "x") },
			action: framework.JobRespStatusBury,
		},
		{
			name:   "missing run id buries",
			exec:   &stubExecutor{},
			msg:    func(t *testing.T) *framework.Message { return jobMessage(t, model.ActionClusterRun, "") },
			action: framework.JobRespStatusBury,
		},
		{
			name: "malformed payload buries",
			exec: &stubExecutor{},
			msg: func(t *testing.T) *framework.Message {
				return &framework.Message{ID: "job-1", Data: []byte("{not json")}
			},
			action: framework.JobRespStatusBury,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := GetProcess(logger.NewNop(), &common.Deps{Runs: tt.exec})
			resp := proc(context.Background(), tt.msg(t))
			require.NotNil(t, resp)
			assert.Equal(t, tt.action, resp.Action)
		})
	}
}

func TestGetProcess_PassesRunID(t *testing.T) {
	exec := &stubExecutor{}
	proc := GetProcess(logger.NewNop(), &common.Deps{Runs: exec})

	proc(context.Background(), jobMessage(t, model.ActionClusterRun, "run-42"))
	assert.Equal(t, "run-42", exec.got)
}
