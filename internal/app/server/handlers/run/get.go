package run

import (
	"github.com/gin-gonic/gin"

	"txcluster/internal/app/domains/apimodel/response"
	"txcluster/internal/app/pkg/ginx"
)

// Get 查询运行记录（轮询）
// GET /api/v1/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ginx.Fail(c, err)
		return
	}
	ginx.Success(c, response.FromRunEntity(run))
}

// Plot 已成功运行的直方图
// GET /api/v1/runs/:id/plot
func (h *RunHandler) Plot(c *gin.Context) {
	path, err := h.runService.PlotPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		ginx.Fail(c, err)
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(path)
}
