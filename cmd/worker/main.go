package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"txcluster/internal/app/bootstrap"
	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/domains"
	"txcluster/internal/domains/common"
	"txcluster/internal/worker"
)

var configPath = flag.String("config", "config/config.yaml", "配置文件路径")

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	if !cfg.AsyncEnabled() {
		log.Fatalf("Worker requires lmstfy.host to be configured")
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. 组装依赖
	core, cleanup, err := bootstrap.NewCore(cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize worker: %v", err)
	}
	defer cleanup()

	// 4. 创建并启动 Manager
	proc := domains.GetProcess(zapLogger, &common.Deps{Runs: core.RunService})
	mgr := worker.NewManagerInstance(cfg, core.Lmstfy, proc, zapLogger)

	go func() {
		if err := mgr.Start(); err != nil {
			zapLogger.Error("Manager start failed", "error", err)
		}
	}()
	zapLogger.Info("Worker started", "queue", cfg.Lmstfy.Queue)

	// 5. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLogger.Info("Received shutdown signal", "signal", sig.String())

	// 6. 优雅关闭 Manager
	mgr.Shutdown()
	zapLogger.Info("Worker exited gracefully")
}
