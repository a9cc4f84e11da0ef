package dataset

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"txcluster/internal/app/pkg/ginx"
)

// Shapes 四个数据集的形状
// GET /data_shapes
func (h *DatasetHandler) Shapes(c *gin.Context) {
	shapes, err := h.datasetService.Shapes(c.Request.Context())
	if err != nil {
		ginx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, shapes)
}

// Heads 四个数据集前 5 行的 HTML 表格
// GET /data_heads
func (h *DatasetHandler) Heads(c *gin.Context) {
	heads, err := h.datasetService.Heads(c.Request.Context())
	if err != nil {
		ginx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, heads)
}
