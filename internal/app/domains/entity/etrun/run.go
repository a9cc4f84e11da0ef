package etrun

import (
	"errors"
	"time"
)

// 错误定义
var (
	ErrInvalidRunID    = errors.New("run ID cannot be empty")
	ErrInvalidMode     = errors.New("invalid run mode")
	ErrAlreadyFinished = errors.New("run already finished")
)

// Run 聚类运行（领域对象）
type Run struct {
	ID         string    // 运行 ID (UUID)
	Mode       RunMode   // 同步 / 异步
	Status     RunStatus // 运行状态
	Result     *Result   // 运行结果（成功时）
	Error      string    // 失败原因
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RunMode 运行方式
type RunMode string

const (
	RunModeSync  RunMode = "sync"
	RunModeAsync RunMode = "async"
)

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Finished 是否已结束
func (s RunStatus) Finished() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// Result 运行结果（值对象）
type Result struct {
	Fingerprint        string
	ModelReused        bool
	TrainRows          int
	TestRows           int
	MissingTestClients int
	LabelCounts        map[int]int
	PlotPath           string
}

// NewRun 创建运行（工厂方法）
func NewRun(id string, mode RunMode) (*Run, error) {
	if id == "" {
		return nil, ErrInvalidRunID
	}
	status := RunStatusRunning
	switch mode {
	case RunModeSync:
	case RunModeAsync:
		status = RunStatusQueued
	default:
		return nil, ErrInvalidMode
	}

	now := time.Now()
	r := &Run{
		ID:        id,
		Mode:      mode,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == RunStatusRunning {
		r.StartedAt = &now
	}
	return r, nil
}

// Start 标记开始执行（领域行为）
func (r *Run) Start() error {
	if r.Status.Finished() {
		return ErrAlreadyFinished
	}
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.UpdatedAt = now
	return nil
}

// Succeed 记录结果（领域行为）
func (r *Run) Succeed(result *Result) error {
	if r.Status.Finished() {
		return ErrAlreadyFinished
	}
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.Result = result
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fail 标记失败（领域行为）
func (r *Run) Fail(err error) error {
	if r.Status.Finished() {
		return ErrAlreadyFinished
	}
	now := time.Now()
	r.Status = RunStatusFailed
	r.Error = err.Error()
	r.FinishedAt = &now
	r.UpdatedAt = now
	return nil
}
