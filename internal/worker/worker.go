package worker

import (
	"context"

	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/framework"
)

// Worker 接口
type Worker interface {
	Start()
	Shutdown()
	GetName() string
}

// WorkerInstance 一条 Subscriber → chan → Processor 链路
type WorkerInstance struct {
	ctx        context.Context
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	readyCh    chan struct{} // Start 启动完 Subscriber 和 Processor 后关闭
	shutdownCh chan struct{}
	logger     logger.Logger
}

// NewWorkerInstance 创建 Worker 实例
func NewWorkerInstance(
	ctx context.Context,
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc framework.Proc,
	log logger.Logger,
) Worker {
	return &WorkerInstance{
		ctx:        ctx,
		name:       name,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, proc, source, log),
		inputChan:  make(chan *framework.Message, processorCfg.BufferSize),
		readyCh:    make(chan struct{}),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}
}

// Start 启动 Worker，阻塞到 Shutdown 完成
func (w *WorkerInstance) Start() {
	w.logger.InfoContext(w.ctx, "Worker started", "worker", w.name)

	// 1. 先启动 Processor，再启动 Subscriber
	w.processor.Start(w.ctx, w.inputChan)
	w.subscriber.Start(w.ctx, w.inputChan)
	close(w.readyCh)

	// 2. 阻塞，等待关闭指令
	<-w.shutdownCh
}

// Shutdown 优雅退出，必须在 Start 之后调用
func (w *WorkerInstance) Shutdown() {
	<-w.readyCh
	w.logger.InfoContext(w.ctx, "Worker closing", "worker", w.name)

	// 1. 停止拉取新消息
	w.subscriber.Stop()

	// 2. 等待 Subscriber 完全退出，之后不会再有消息写入 inputChan
	w.subscriber.Wait()

	// 3. 通知 Processor 进入 Drain 模式
	w.processor.SignalShutdown()

	// 4. 等待 Processor 处理完剩余消息
	w.processor.Wait()

	close(w.shutdownCh)
	w.logger.InfoContext(w.ctx, "Worker shutdown complete", "worker", w.name)
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
