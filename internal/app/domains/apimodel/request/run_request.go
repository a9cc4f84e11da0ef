package request

// SubmitRunQuery 异步运行请求参数
type SubmitRunQuery struct {
	Wait int `form:"wait" binding:"min=0,max=60"` // Smart Wait 秒数，0 表示立即返回
}
