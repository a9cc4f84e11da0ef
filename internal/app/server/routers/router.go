package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"txcluster/internal/app/pkg/ginx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/app/server/handlers/dataset"
	"txcluster/internal/app/server/handlers/home"
	"txcluster/internal/app/server/handlers/model"
	"txcluster/internal/app/server/handlers/run"
	"txcluster/internal/app/server/middlewares"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	datasetHandler *dataset.DatasetHandler,
	runHandler *run.RunHandler,
	modelHandler *model.ModelHandler,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.CORS())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "txcluster",
			"message": "Service is running",
		})
	})

	// 页面与上传/预览/同步运行
	r.GET("/", home.Index)
	r.POST("/upload", datasetHandler.Upload)
	r.GET("/data_shapes", datasetHandler.Shapes)
	r.GET("/data_heads", datasetHandler.Heads)
	r.GET("/run_model", runHandler.RunModel)

	v1 := r.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.Create)
			runs.GET("/:id", runHandler.Get)
			runs.GET("/:id/plot", runHandler.Plot)
		}

		models := v1.Group("/models")
		{
			models.GET("", modelHandler.List)
			models.DELETE("/:fingerprint", modelHandler.Delete)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		ginx.NotFound(c, "route not found: "+c.Request.Method+" "+c.Request.URL.Path)
	})

	return r
}
