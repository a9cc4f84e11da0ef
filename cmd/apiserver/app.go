package main

import (
	"github.com/gin-gonic/gin"

	"txcluster/internal/app/bootstrap"
	"txcluster/internal/app/config"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/app/server/handlers/dataset"
	"txcluster/internal/app/server/handlers/model"
	"txcluster/internal/app/server/handlers/run"
	"txcluster/internal/app/server/routers"
)

// App HTTP 应用
type App struct {
	Engine *gin.Engine
}

// InitializeApp 手动装配依赖
func InitializeApp(cfg *config.Config, log logger.Logger) (*App, func(), error) {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	core, cleanup, err := bootstrap.NewCore(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	engine := routers.SetupRoutes(
		dataset.NewDatasetHandler(core.DatasetService, cfg.Server.MaxUploadMB),
		run.NewRunHandler(core.RunService),
		model.NewModelHandler(core.ModelService),
		log,
	)
	return &App{Engine: engine}, cleanup, nil
}
