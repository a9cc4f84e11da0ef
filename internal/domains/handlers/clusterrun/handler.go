package clusterrun

import (
	"context"
	"fmt"

	"txcluster/internal/domains/common"
)

// RunHandler 聚类运行 Handler
type RunHandler struct {
	runID string
	runs  common.RunExecutor
}

// NewRunHandler 创建运行 Handler
func NewRunHandler(meta *common.Meta, deps *common.Deps) (common.HandlerServ, error) {
	if meta.ID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if deps == nil || deps.Runs == nil {
		return nil, fmt.Errorf("run executor not configured")
	}
	return &RunHandler{runID: meta.ID, runs: deps.Runs}, nil
}

// Process 执行运行
func (h *RunHandler) Process(ctx context.Context) error {
	return h.runs.Execute(ctx, h.runID)
}
