package svrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"txcluster/internal/app/domains/entity/etrun"
	"txcluster/internal/app/domains/modules/mdrun"
	"txcluster/internal/app/domains/repo/rprun"
	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/pipeline"
	"txcluster/internal/common/model"
)

// Runner 执行一次完整流水线（pipeline.Pipeline 实现）
type Runner interface {
	Run(ctx context.Context, runID string) (*pipeline.Result, error)
}

// RunService 运行服务，负责同步运行、异步投递与 worker 执行的编排
type RunService struct {
	runRepo   rprun.RunRepository
	runner    Runner
	runModule *mdrun.RunModule // 未启用异步时为 nil
	logger    logger.Logger
}

// NewRunService 创建运行服务实例
func NewRunService(runRepo rprun.RunRepository, runner Runner, runModule *mdrun.RunModule, log logger.Logger) *RunService {
	return &RunService{
		runRepo:   runRepo,
		runner:    runner,
		runModule: runModule,
		logger:    log,
	}
}

// RunSync 同步运行（/run_model）
// 1. 创建运行记录（RUNNING）
// 2. 执行流水线
// 3. 落库结果，返回图片
func (s *RunService) RunSync(ctx context.Context) (*etrun.Run, []byte, error) {
	run, err := etrun.NewRun(uuid.New().String(), etrun.RunModeSync)
	if err != nil {
		return nil, nil, err
	}
	ctx = logger.WithRunID(ctx, run.ID)

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("save run failed: %w", err)
	}

	result, runErr := s.runner.Run(ctx, run.ID)
	if err := s.finish(ctx, run, result, runErr); err != nil {
		return nil, nil, err
	}
	if runErr != nil {
		return run, nil, runErr
	}
	return run, result.PNG, nil
}

// Submit 异步运行（POST /api/v1/runs）
// 1. 创建运行记录（QUEUED）
// 2. 先订阅结果频道
// 3. 投递任务
// 4. Smart Wait，超时返回当前状态，由调用方轮询
func (s *RunService) Submit(ctx context.Context, waitSeconds int) (*etrun.Run, error) {
	if s.runModule == nil {
		return nil, errorx.ErrAsyncDisabled
	}

	run, err := etrun.NewRun(uuid.New().String(), etrun.RunModeAsync)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithRunID(ctx, run.ID)

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("save run failed: %w", err)
	}

	var waiter *mdrun.RunWaiter
	if waitSeconds > 0 {
		waiter, err = s.runModule.ListenRunResult(ctx, run.ID)
		if err != nil {
			// 订阅失败不影响投递，只是退化为轮询
			s.logger.WarnContext(ctx, "Listen run result failed", "error", err)
		} else {
			defer waiter.Close()
		}
	}

	jobID, err := s.runModule.PublishRunJob(ctx, run.ID)
	if err != nil {
		if failErr := s.finish(ctx, run, nil, err); failErr != nil {
			s.logger.ErrorContext(ctx, "Mark run failed failed", "error", failErr)
		}
		return nil, fmt.Errorf("publish run job failed: %w", err)
	}
	s.logger.InfoContext(ctx, "Run job published", "job_id", jobID)

	if waiter == nil {
		return run, nil
	}

	n, err := waiter.Wait(ctx, time.Duration(waitSeconds)*time.Second)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			s.logger.WarnContext(ctx, "Wait run result failed", "error", err)
		}
		return run, nil
	}
	s.logger.InfoContext(ctx, "Run result received", "status", n.Status)

	// 结果以数据库为准
	return s.runRepo.GetByID(ctx, run.ID)
}

// Execute worker 执行已投递的运行
// 已结束的运行直接返回（重复投递）；数据库错误标记为可重试
func (s *RunService) Execute(ctx context.Context, runID string) error {
	ctx = logger.WithRunID(ctx, runID)

	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, errorx.ErrRunNotFound) {
			return err
		}
		return errorx.Retriable(fmt.Errorf("load run failed: %w", err))
	}
	if run.Status.Finished() {
		s.logger.InfoContext(ctx, "Run already finished, skip", "status", run.Status)
		return nil
	}

	if err := run.Start(); err != nil {
		return err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return errorx.Retriable(fmt.Errorf("mark run running failed: %w", err))
	}

	result, runErr := s.runner.Run(ctx, runID)
	if err := s.finish(ctx, run, result, runErr); err != nil {
		return errorx.Retriable(err)
	}
	s.notify(ctx, run)
	return runErr
}

// Get 查询运行记录
func (s *RunService) Get(ctx context.Context, runID string) (*etrun.Run, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// PlotPath 已成功运行的图片路径
func (s *RunService) PlotPath(ctx context.Context, runID string) (string, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return "", err
	}
	switch run.Status {
	case etrun.RunStatusSucceeded:
		return run.Result.PlotPath, nil
	case etrun.RunStatusFailed:
		return "", fmt.Errorf("run %s failed: %s: %w", runID, run.Error, errorx.ErrRunNotFinished)
	default:
		return "", fmt.Errorf("run %s is %s: %w", runID, run.Status, errorx.ErrRunNotFinished)
	}
}

// finish 按流水线结果更新运行记录
func (s *RunService) finish(ctx context.Context, run *etrun.Run, result *pipeline.Result, runErr error) error {
	if runErr != nil {
		s.logger.ErrorContext(ctx, "Run failed", "error", runErr)
		if err := run.Fail(runErr); err != nil {
			return err
		}
	} else {
		if err := run.Succeed(toResult(result)); err != nil {
			return err
		}
	}

	if err := s.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("persist run result failed: %w", err)
	}
	return nil
}

// notify 通知 Smart Wait 的等待方，失败只记录日志
func (s *RunService) notify(ctx context.Context, run *etrun.Run) {
	if s.runModule == nil {
		return
	}
	n := model.RunNotification{RunID: run.ID, Status: string(run.Status), Error: run.Error}
	if err := s.runModule.NotifyRunFinished(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "Notify run finished failed", "error", err)
	}
}

func toResult(r *pipeline.Result) *etrun.Result {
	return &etrun.Result{
		Fingerprint:        r.Fingerprint,
		ModelReused:        r.ModelReused,
		TrainRows:          r.TrainRows,
		TestRows:           r.TestRows,
		MissingTestClients: r.MissingTestClients,
		LabelCounts:        r.LabelCounts,
		PlotPath:           r.PlotPath,
	}
}
