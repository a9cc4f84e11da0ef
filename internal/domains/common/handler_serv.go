package common

import "context"

// Meta 任务元数据（来自标准 Job 消息）
type Meta struct {
	RequestID  string // 请求 ID
	ActionType string // 动作类型（路由键）
	ID         string // 业务 ID
}

// RunExecutor 执行一次已投递的聚类运行（svrun.RunService 实现）
type RunExecutor interface {
	Execute(ctx context.Context, runID string) error
}

// Deps Handler 依赖，由 worker 启动时注入
type Deps struct {
	Runs RunExecutor
}

// HandlerServ Handler 接口
type HandlerServ interface {
	Process(ctx context.Context) error
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(meta *Meta, deps *Deps) (HandlerServ, error)
