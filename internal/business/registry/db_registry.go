package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/common/entity"
)

// DBRegistry 模型存在 model_artifacts 表里
type DBRegistry struct {
	db *gorm.DB
}

// NewDBRegistry 创建 db 模型仓库，表结构由 db.Migrate 负责
func NewDBRegistry(db *gorm.DB) *DBRegistry {
	return &DBRegistry{db: db}
}

// Get 按指纹读取并解码
func (r *DBRegistry) Get(ctx context.Context, fingerprint string) (*Artifact, error) {
	var po entity.ModelArtifact
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("query artifact failed: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(po.Payload, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s failed: %w", fingerprint, err)
	}
	return &a, nil
}

// Put upsert
func (r *DBRegistry) Put(ctx context.Context, a *Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact failed: %w", err)
	}
	s := a.Summarize()
	po := &entity.ModelArtifact{
		Fingerprint: a.Fingerprint,
		Features:    s.Features,
		TrainRows:   s.TrainRows,
		Members:     s.Members,
		Payload:     payload,
		CreatedAt:   a.CreatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(po).Error
}

// List 不读取 payload 列
func (r *DBRegistry) List(ctx context.Context) ([]Summary, error) {
	var rows []entity.ModelArtifact
	err := r.db.WithContext(ctx).
		Select("fingerprint", "features", "train_rows", "members", "created_at").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list artifacts failed: %w", err)
	}

	out := make([]Summary, len(rows))
	for i, po := range rows {
		out[i] = Summary{
			Fingerprint: po.Fingerprint,
			Features:    po.Features,
			TrainRows:   po.TrainRows,
			Members:     po.Members,
			CreatedAt:   po.CreatedAt,
		}
	}
	return out, nil
}

// Delete 删除一条记录
func (r *DBRegistry) Delete(ctx context.Context, fingerprint string) error {
	result := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).Delete(&entity.ModelArtifact{})
	if result.Error != nil {
		return fmt.Errorf("delete artifact failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errorx.ErrArtifactNotFound
	}
	return nil
}
