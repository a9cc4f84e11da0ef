package bootstrap

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"txcluster/internal/app/config"
	"txcluster/internal/app/domains/modules/mdrun"
	"txcluster/internal/app/domains/repo/rprun"
	"txcluster/internal/app/domains/services/svdataset"
	"txcluster/internal/app/domains/services/svmodel"
	"txcluster/internal/app/domains/services/svrun"
	"txcluster/internal/app/infra/mq/lmstfy"
	"txcluster/internal/app/infra/persistence/db"
	"txcluster/internal/app/infra/persistence/redis"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/dataset"
	"txcluster/internal/business/pipeline"
	"txcluster/internal/business/registry"
	"txcluster/internal/business/spreading"
)

// lockRetry 等待训练锁时的轮询间隔
const lockRetry = 200 * time.Millisecond

// Core apiserver 与 worker 共用的依赖
type Core struct {
	DB             *gorm.DB
	Redis          *redis.PubSubClient // 未配置时为 nil
	Lmstfy         *lmstfy.Client      // 未启用异步时为 nil
	DatasetService *svdataset.DatasetService
	RunService     *svrun.RunService
	ModelService   *svmodel.ModelService
}

// NewCore 按配置组装依赖，返回的 cleanup 负责释放连接
func NewCore(cfg *config.Config, log logger.Logger) (*Core, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// 1. 数据库
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { _ = db.Close(gdb) })
	if err := db.Migrate(gdb); err != nil {
		cleanup()
		return nil, nil, err
	}

	// 2. Redis（Smart Wait 通知 + 训练锁）
	var redisClient *redis.PubSubClient
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewPubSubClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	// 3. 模型仓库与训练器
	reg, err := newRegistry(cfg, gdb)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	var locker registry.Locker
	if redisClient != nil {
		locker = redisClient.NewLocker(cfg.Model.LockTTL, lockRetry)
	}
	trainer := registry.NewTrainer(reg, locker, log)

	// 4. 流水线
	store, err := dataset.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	p, err := pipeline.New(store, trainer, pipeline.Options{
		Params: spreading.Params{
			Gamma:   cfg.Model.Gamma,
			Alpha:   cfg.Model.Alpha,
			MaxIter: cfg.Model.MaxIter,
			Tol:     cfg.Model.Tol,
		},
		BatchSize: cfg.Model.BatchSize,
		StaticDir: cfg.Storage.StaticDir,
	}, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// 5. 异步队列
	var (
		lmstfyClient *lmstfy.Client
		runModule    *mdrun.RunModule
	)
	if cfg.AsyncEnabled() {
		lmstfyClient = lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		runModule = mdrun.NewRunModule(lmstfyClient, redisClient, cfg.Lmstfy.Queue)
	}

	core := &Core{
		DB:             gdb,
		Redis:          redisClient,
		Lmstfy:         lmstfyClient,
		DatasetService: svdataset.NewDatasetService(store, log),
		RunService:     svrun.NewRunService(rprun.NewRunRepository(gdb), p, runModule, log),
		ModelService:   svmodel.NewModelService(reg, log),
	}
	return core, cleanup, nil
}

func newRegistry(cfg *config.Config, gdb *gorm.DB) (registry.Registry, error) {
	switch cfg.Model.Registry {
	case "db":
		return registry.NewDBRegistry(gdb), nil
	case "file":
		reg, err := registry.NewFileRegistry(cfg.Storage.ModelDir)
		if err != nil {
			return nil, err
		}
		return reg, nil
	default:
		return nil, fmt.Errorf("unknown model registry %q", cfg.Model.Registry)
	}
}
