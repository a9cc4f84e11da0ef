package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志接口（key-value 形式的字段）
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})

	// Context 支持（用于链路追踪）
	InfoContext(ctx context.Context, msg string, fields ...interface{})
	ErrorContext(ctx context.Context, msg string, fields ...interface{})
	WarnContext(ctx context.Context, msg string, fields ...interface{})
	DebugContext(ctx context.Context, msg string, fields ...interface{})

	Sync() error
}

type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	runIDKey    ctxKey = "run_id"
	workerIDKey ctxKey = "worker_id"
)

// WithTraceID 注入 trace_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithRunID 注入 run_id
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithWorkerID 注入 worker_id
func WithWorkerID(ctx context.Context, workerID int) context.Context {
	return context.WithValue(ctx, workerIDKey, workerID)
}

// TraceID 读取 trace_id
func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

// ZapLogger Zap 日志实现
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger 创建 Zap 日志实例
func NewZapLogger(level string) (*ZapLogger, error) {
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{logger: logger.Sugar()}, nil
}

// NewFromZap 包装已有的 zap.Logger（测试中配合 zaptest/observer 使用）
func NewFromZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l.Sugar()}
}

// NewNop 不输出任何日志
func NewNop() *ZapLogger {
	return NewFromZap(zap.NewNop())
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// extractFields 从 Context 提取日志字段
func extractFields(ctx context.Context, fields []interface{}) []interface{} {
	if ctx == nil {
		return fields
	}
	out := make([]interface{}, 0, len(fields)+6)
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		out = append(out, "trace_id", traceID)
	}
	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		out = append(out, "run_id", runID)
	}
	if workerID, ok := ctx.Value(workerIDKey).(int); ok {
		out = append(out, "worker_id", workerID)
	}
	return append(out, fields...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.logger.Infow(msg, fields...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.logger.Errorw(msg, fields...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warnw(msg, fields...)
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debugw(msg, fields...)
}

func (l *ZapLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	l.logger.Infow(msg, extractFields(ctx, fields)...)
}

func (l *ZapLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	l.logger.Errorw(msg, extractFields(ctx, fields)...)
}

func (l *ZapLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	l.logger.Warnw(msg, extractFields(ctx, fields)...)
}

func (l *ZapLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	l.logger.Debugw(msg, extractFields(ctx, fields)...)
}

// Sync 同步日志缓冲区
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
