package run

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"txcluster/internal/app/pkg/ginx"
)

// RunModel 同步执行流水线并返回直方图
// GET /run_model
func (h *RunHandler) RunModel(c *gin.Context) {
	run, png, err := h.runService.RunSync(c.Request.Context())
	if err != nil {
		ginx.Fail(c, err)
		return
	}

	c.Header("X-Run-ID", run.ID)
	c.Data(http.StatusOK, "image/png", png)
}
