package model

import (
	"github.com/gin-gonic/gin"

	"txcluster/internal/app/domains/services/svmodel"
	"txcluster/internal/app/pkg/ginx"
)

// ModelHandler 模型仓库 HTTP 处理器
type ModelHandler struct {
	modelService *svmodel.ModelService
}

// NewModelHandler 创建模型处理器实例
func NewModelHandler(modelService *svmodel.ModelService) *ModelHandler {
	return &ModelHandler{modelService: modelService}
}

// List 列出已训练模型
// GET /api/v1/models
func (h *ModelHandler) List(c *gin.Context) {
	models, err := h.modelService.List(c.Request.Context())
	if err != nil {
		ginx.Fail(c, err)
		return
	}
	ginx.Success(c, models)
}

// Delete 使模型失效
// DELETE /api/v1/models/:fingerprint
func (h *ModelHandler) Delete(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	if err := h.modelService.Invalidate(c.Request.Context(), fingerprint); err != nil {
		ginx.Fail(c, err)
		return
	}
	ginx.Success(c, gin.H{"fingerprint": fingerprint})
}
