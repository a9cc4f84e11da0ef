package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
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

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. 初始化应用
	app, cleanup, err := InitializeApp(cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer cleanup()

	// 4. 启动 HTTP Server（后台 goroutine）
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: app.Engine,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		zapLogger.Info("Starting HTTP server", "addr", addr, "async", cfg.AsyncEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 5. 优雅停机处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("Received shutdown signal", "signal", sig.String())
		gracefulShutdown(server, zapLogger)
	case err := <-serverErrChan:
		zapLogger.Error("HTTP server error", "error", err)
	}

	zapLogger.Info("Application stopped")
}

// gracefulShutdown 优雅停机
func gracefulShutdown(server *http.Server, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return
	}
	log.Info("HTTP server stopped gracefully")
}
