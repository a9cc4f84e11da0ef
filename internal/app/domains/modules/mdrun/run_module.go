package mdrun

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"txcluster/internal/app/infra/persistence/redis"
	"txcluster/internal/common/model"
)

// JobPublisher 任务队列（lmstfy.Client 实现）
type JobPublisher interface {
	Publish(ctx context.Context, queue string, data interface{}) (string, error)
}

// RunModule 异步运行模块
// 职责：
// 1. 组装 Lmstfy 和 Redis 客户端
// 2. 约定消息格式和通知频道
type RunModule struct {
	publisher   JobPublisher
	redisClient *redis.PubSubClient
	queueName   string
}

// NewRunModule 创建运行模块实例
func NewRunModule(publisher JobPublisher, redisClient *redis.PubSubClient, queueName string) *RunModule {
	return &RunModule{
		publisher:   publisher,
		redisClient: redisClient,
		queueName:   queueName,
	}
}

// PublishRunJob 投递聚类运行任务，返回队列中的 job ID
func (m *RunModule) PublishRunJob(ctx context.Context, runID string) (string, error) {
	message := model.ClusterRunJob{
		Payload: model.ClusterRunPayload{
			Data: model.ClusterRunData{
				RequestID:  uuid.New().String(),
				ActionType: model.ActionClusterRun,
				ID:         runID,
			},
		},
	}
	return m.publisher.Publish(ctx, m.queueName, message)
}

// RunWaiter 已订阅的运行结果通知
type RunWaiter struct {
	sub *redis.Subscription
}

// ListenRunResult 订阅运行结果频道，必须在投递任务之前调用
func (m *RunModule) ListenRunResult(ctx context.Context, runID string) (*RunWaiter, error) {
	sub, err := m.redisClient.Listen(ctx, model.RunChannel(runID))
	if err != nil {
		return nil, err
	}
	return &RunWaiter{sub: sub}, nil
}

// Wait 等待运行结束通知（Smart Wait）
func (w *RunWaiter) Wait(ctx context.Context, timeout time.Duration) (*model.RunNotification, error) {
	payload, err := w.sub.Wait(ctx, timeout)
	if err != nil {
		return nil, err
	}

	var n model.RunNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, fmt.Errorf("unmarshal run notification failed: %w", err)
	}
	return &n, nil
}

// Close 取消订阅
func (w *RunWaiter) Close() error {
	return w.sub.Close()
}

// NotifyRunFinished worker 完成运行后发布通知
func (m *RunModule) NotifyRunFinished(ctx context.Context, n model.RunNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal run notification failed: %w", err)
	}
	return m.redisClient.Publish(ctx, model.RunChannel(n.RunID), string(payload))
}
