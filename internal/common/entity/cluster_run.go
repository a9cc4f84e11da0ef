package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ClusterRun 聚类运行记录
type ClusterRun struct {
	// 基础字段
	ID   string `gorm:"column:id;primaryKey;type:varchar(64)"`
	Mode string `gorm:"column:mode;type:varchar(16);not null"`

	// 运行状态
	Status       string `gorm:"column:status;type:varchar(16);not null;default:'QUEUED';index:idx_status"`
	ErrorMessage string `gorm:"column:error_message;type:text"`

	// 运行结果
	Fingerprint        string         `gorm:"column:fingerprint;type:varchar(64);index:idx_fingerprint"`
	ModelReused        bool           `gorm:"column:model_reused;not null;default:false"`
	TrainRows          int            `gorm:"column:train_rows;not null;default:0"`
	TestRows           int            `gorm:"column:test_rows;not null;default:0"`
	MissingTestClients int            `gorm:"column:missing_test_clients;not null;default:0"`
	LabelCounts        datatypes.JSON `gorm:"column:label_counts;type:json"`
	PlotPath           string         `gorm:"column:plot_path;type:varchar(512)"`

	// 时间戳
	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (ClusterRun) TableName() string {
	return "cluster_runs"
}

