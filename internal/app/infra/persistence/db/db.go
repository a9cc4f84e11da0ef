package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"txcluster/internal/app/config"
	"txcluster/internal/common/entity"
)

// Open 按 driver 打开 gorm 连接
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB failed: %w", err)
		}
		// sqlite 单写者；内存库每个连接是独立的库
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.ClusterRun{}, &entity.ModelArtifact{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
