package framework

import (
	"context"
	"sync"
	"time"

	"txcluster/internal/app/pkg/logger"
)

// Processor 处理器：接收消息，调用业务处理函数，按结果 ACK
type Processor struct {
	cfg        *ProcessorConfig
	proc       Proc
	source     MessageSource
	logger     logger.Logger
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc Proc, source MessageSource, log logger.Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     log,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) {
	p.logger.InfoContext(ctx, "Processor starting", "workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(logger.WithWorkerID(ctx, i), inputChan)
	}
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Info("Processor shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Info("Processor workers exited")
}

func (p *Processor) loop(ctx context.Context, inputChan <-chan *Message) {
	defer p.wg.Done()

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg)
					count++
				default:
					p.logger.InfoContext(ctx, "Processor drained", "messages", count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}
	start := time.Now()

	// 1. 超时控制
	procCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	// 2. 调用业务处理函数
	resp := p.proc(procCtx, msg)
	if resp == nil {
		resp = &JobResp{Action: JobRespStatusBury}
	}

	// 3. 按处理结果 ACK；Release 不 ACK，TTR 到期后重新投递
	switch resp.Action {
	case JobRespStatusSuccess, JobRespStatusBury:
		if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
			p.logger.ErrorContext(procCtx, "Ack failed", "message_id", msg.ID, "error", err)
		}
	}

	p.logger.InfoContext(procCtx, "Message processed",
		"message_id", msg.ID,
		"action", resp.Action.String(),
		"duration", time.Since(start).String(),
	)
}
