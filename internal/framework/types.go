package framework

import "context"

// Message 消息结构（框架内部流转）
type Message struct {
	ID    string // 消息 ID
	Queue string // 队列名称
	Data  []byte // 原始 Job 数据
}

// JobRespStatus 消息处理结果状态
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理成功，ACK 消息
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 需要重试，不 ACK，TTR 到期后由队列重新投递
	JobRespStatusRelease
	// JobRespStatusBury 处理失败且不可重试，ACK 后丢弃（失败状态已落库）
	JobRespStatusBury
)

// String 日志输出用
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "success"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobRespStatus // 处理动作
	Data   []byte        // 响应数据（可选，用于日志）
}

// Proc 业务处理函数类型（GetProcess 的函数签名）
type Proc func(ctx context.Context, msg *Message) *JobResp
