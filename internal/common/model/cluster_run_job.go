package model

// ClusterRunJob 聚类运行任务消息
// 用于 apiserver → worker 的消息传递
type ClusterRunJob struct {
	Payload ClusterRunPayload `json:"payload"`
}

// ClusterRunPayload Job 负载
type ClusterRunPayload struct {
	Data ClusterRunData `json:"data"`
}

// ClusterRunData Job 数据层
type ClusterRunData struct {
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	ActionType string `json:"action_type"` // 动作类型，固定值 "cluster_run"
	ID         string `json:"id"`          // 运行 ID
}

// ActionClusterRun 聚类运行的 action_type
const ActionClusterRun = "cluster_run"

// RunNotification Smart Wait 通知，worker 完成后发布到 redis
type RunNotification struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunChannel 运行完成通知的 redis channel
func RunChannel(runID string) string {
	return "cluster:run:" + runID
}
