package framework

import (
	"context"
	"sync"
	"time"

	"txcluster/internal/app/pkg/logger"
)

// Subscriber 订阅者：从消息队列拉取消息，转发给 Processor
type Subscriber struct {
	cfg        *SubscriberConfig
	source     MessageSource
	logger     logger.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, log logger.Logger) *Subscriber {
	return &Subscriber{
		cfg:    cfg,
		source: source,
		logger: log,
	}
}

// Start 启动 Concurrency 个拉取协程
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.logger.InfoContext(ctx, "Subscriber starting", "workers", s.cfg.Concurrency, "queue", s.cfg.QueueName)

	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.loop(logger.WithWorkerID(ctx, i), i, inputChan)
	}
}

// Stop 停止订阅（不再拉取新消息）
func (s *Subscriber) Stop() {
	s.logger.Info("Subscriber stopping")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Wait 等待所有订阅协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	s.logger.Info("Subscriber workers exited")
}

// loop 单个拉取协程
func (s *Subscriber) loop(ctx context.Context, workerID int, inputChan chan<- *Message) {
	defer s.wg.Done()
	s.logger.DebugContext(ctx, "Subscriber worker started")

	for {
		if ctx.Err() != nil {
			s.logger.DebugContext(ctx, "Subscriber worker exiting")
			return
		}

		// 1. 拉取消息（带超时）
		msg, err := s.source.Consume(s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)
		if err != nil {
			// 网络抖动不退出，退避后重试
			s.logger.WarnContext(ctx, "Consume failed, retrying", "error", err)
			if !sleep(ctx, s.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		// 超时未拉到
		if msg == nil {
			continue
		}

		// 2. 发送给 Processor
		select {
		case inputChan <- msg:
			s.logger.DebugContext(ctx, "Message dispatched", "message_id", msg.ID)
		case <-ctx.Done():
			// 未 ACK 的消息在 TTR 后会被重新投递
			s.logger.WarnContext(ctx, "Dropping message due to shutdown", "message_id", msg.ID)
			return
		}

		// 3. 速率控制
		if !sleep(ctx, s.cfg.Rate) {
			return
		}
	}
}

// sleep 返回 false 表示 ctx 已结束
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
