package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/common/model"
	"txcluster/internal/domains/common"
	"txcluster/internal/framework"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, deps *common.Deps) framework.Proc {
	return func(ctx context.Context, msg *framework.Message) (resp *framework.JobResp) {
		startTime := time.Now()

		// 1. 解析 Job
		meta, err := parseJob(msg.Data)
		if err != nil {
			log.ErrorContext(ctx, "Parse job failed", "message_id", msg.ID, "error", err)
			return &framework.JobResp{Action: framework.JobRespStatusBury}
		}

		// 2. 注入 TraceID
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		log.InfoContext(ctx, "Processing job", "action_type", meta.ActionType, "id", meta.ID)

		// 3. 从 HandlerMap 获取 Handler
		factory, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.ErrorContext(ctx, "Handler not found", "action_type", meta.ActionType)
			return &framework.JobResp{Action: framework.JobRespStatusBury}
		}

		// 4. 调用 Handler（捕获 panic）
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "Handler panic", "panic", r)
				resp = &framework.JobResp{Action: framework.JobRespStatusBury}
			}
		}()

		handler, err := factory(meta, deps)
		if err != nil {
			log.ErrorContext(ctx, "Handler creation failed", "error", err)
			return &framework.JobResp{Action: framework.JobRespStatusBury}
		}

		resp = doJobReport(ctx, handler.Process(ctx), log)

		// 5. 记录处理时长
		log.InfoContext(ctx, "Processing complete",
			"action", resp.Action.String(),
			"duration", time.Since(startTime).String(),
		)
		return resp
	}
}

// parseJob 解析标准 Job 消息
func parseJob(data []byte) (*common.Meta, error) {
	var job model.ClusterRunJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	d := job.Payload.Data
	if d.ActionType == "" {
		return nil, fmt.Errorf("invalid job structure: action_type is empty")
	}

	meta := &common.Meta{
		RequestID:  d.RequestID,
		ActionType: d.ActionType,
		ID:         d.ID,
	}
	// RequestID 为空则生成一个
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}
	return meta, nil
}

// doJobReport 按错误类型决定 ACK / Release / Bury
func doJobReport(ctx context.Context, err error, log logger.Logger) *framework.JobResp {
	switch {
	case err == nil:
		return &framework.JobResp{Action: framework.JobRespStatusSuccess}
	case errorx.IsRetryable(err):
		log.WarnContext(ctx, "Job failed, will retry", "error", err)
		return &framework.JobResp{Action: framework.JobRespStatusRelease}
	default:
		log.ErrorContext(ctx, "Job failed", "error", err)
		return &framework.JobResp{Action: framework.JobRespStatusBury, Data: []byte(err.Error())}
	}
}
