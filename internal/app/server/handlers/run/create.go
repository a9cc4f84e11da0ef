package run

import (
	"github.com/gin-gonic/gin"

	"txcluster/internal/app/domains/apimodel/request"
	"txcluster/internal/app/domains/apimodel/response"
	"txcluster/internal/app/pkg/ginx"
)

// Create 异步运行
// POST /api/v1/runs?wait=10
// 等待期间运行结束返回结果，否则返回 3001 和轮询地址
func (h *RunHandler) Create(c *gin.Context) {
	var q request.SubmitRunQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	run, err := h.runService.Submit(c.Request.Context(), q.Wait)
	if err != nil {
		ginx.Fail(c, err)
		return
	}

	if run.Status.Finished() {
		ginx.Success(c, response.FromRunEntity(run))
		return
	}
	ginx.Processing(c, run.ID, response.RunURL(run.ID))
}
