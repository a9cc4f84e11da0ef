package entity

import "time"

// ModelArtifact 已训练模型（db 模型仓库）
type ModelArtifact struct {
	Fingerprint string `gorm:"column:fingerprint;primaryKey;type:varchar(64)"`
	Features    int    `gorm:"column:features;not null"`
	TrainRows   int    `gorm:"column:train_rows;not null"`
	Members     int    `gorm:"column:members;not null"`
	// 序列化后的模型，体积较大，列表查询时不要 select
	Payload   []byte    `gorm:"column:payload;type:longblob;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (ModelArtifact) TableName() string {
	return "model_artifacts"
}
