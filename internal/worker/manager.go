package worker

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/framework"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance 管理所有 Worker 的生命周期
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.Config
	source     framework.MessageSource
	proc       framework.Proc
	workers    []Worker
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(cfg *config.Config, source framework.MessageSource, proc framework.Proc, log logger.Logger) Manager {
	return &ManagerInstance{
		ctx:        context.Background(),
		cfg:        cfg,
		source:     source,
		proc:       proc,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}
}

// Start 加载并启动 Worker，阻塞到 Shutdown 完成
func (m *ManagerInstance) Start() error {
	m.logger.Info("Manager starting")

	// 1. 加载 Worker；已在关闭中则不再启动
	m.mu.Lock()
	if m.closing.Load() {
		m.mu.Unlock()
		return nil
	}
	m.loadWorkers()

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			w.Start()
		}(w)
		m.logger.Info("Worker launched", "worker", w.GetName())
	}
	m.mu.Unlock()

	m.logger.Info("Manager started", "workers", len(m.workers))

	// 3. 阻塞等待退出信号
	<-m.shutdownCh
	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *ManagerInstance) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.logger.Info("Manager closing")

	m.mu.Lock()
	workers := m.workers
	m.mu.Unlock()

	// 1. 所有 Worker 安全退出
	for _, w := range workers {
		m.logger.Info("Shutting down worker", "worker", w.GetName())
		w.Shutdown()
	}

	// 2. 等待所有 Worker 的 Start 返回
	m.wg.Wait()

	// 3. 关闭信号通道
	close(m.shutdownCh)
	m.logger.Info("Manager shutdown complete")
}

// loadWorkers 按配置创建 Worker
func (m *ManagerInstance) loadWorkers() {
	wc := m.cfg.Worker

	subCfg := &framework.SubscriberConfig{
		QueueName:    m.cfg.Lmstfy.Queue,
		Concurrency:  wc.Subscriber.Threads,
		Rate:         wc.Subscriber.Rate,
		Timeout:      wc.Subscriber.Timeout,
		TTR:          wc.Subscriber.TTR,
		ErrorBackoff: wc.Subscriber.ErrorBackoff,
	}
	procCfg := &framework.ProcessorConfig{
		Concurrency: wc.Processor.Threads,
		BufferSize:  wc.Processor.BufferSize,
		Timeout:     wc.Processor.Timeout,
	}

	m.workers = append(m.workers, NewWorkerInstance(m.ctx, wc.Name, subCfg, procCfg, m.source, m.proc, m.logger))
}
