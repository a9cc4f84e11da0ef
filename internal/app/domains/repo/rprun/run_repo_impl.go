package rprun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"txcluster/internal/app/domains/entity/etrun"
	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/common/entity"
)

// RunRepositoryImpl 运行记录仓储实现（gorm，MySQL / SQLite）
type RunRepositoryImpl struct {
	db *gorm.DB
}

// NewRunRepository 创建运行记录仓储实例
func NewRunRepository(db *gorm.DB) RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Create 创建运行记录
func (r *RunRepositoryImpl) Create(ctx context.Context, run *etrun.Run) error {
	po, err := r.toGormModel(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(po).Error
}

// GetByID 根据ID查询运行记录
func (r *RunRepositoryImpl) GetByID(ctx context.Context, runID string) (*etrun.Run, error) {
	var po entity.ClusterRun
	err := r.db.WithContext(ctx).Where("id = ?", runID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, errorx.ErrRunNotFound)
		}
		return nil, err
	}
	return r.toDomainModel(&po)
}

// Update 整行保存运行记录
func (r *RunRepositoryImpl) Update(ctx context.Context, run *etrun.Run) error {
	po, err := r.toGormModel(run)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&entity.ClusterRun{}).
		Where("id = ?", run.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(po)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", run.ID, errorx.ErrRunNotFound)
	}
	return nil
}

// List 按创建时间倒序查询
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*etrun.Run, error) {
	var pos []entity.ClusterRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&pos).Error; err != nil {
		return nil, err
	}

	runs := make([]*etrun.Run, 0, len(pos))
	for i := range pos {
		run, err := r.toDomainModel(&pos[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// toGormModel 领域对象转换为 GORM 模型
func (r *RunRepositoryImpl) toGormModel(run *etrun.Run) (*entity.ClusterRun, error) {
	po := &entity.ClusterRun{
		ID:           run.ID,
		Mode:         string(run.Mode),
		Status:       string(run.Status),
		ErrorMessage: run.Error,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}

	if res := run.Result; res != nil {
		counts, err := json.Marshal(res.LabelCounts)
		if err != nil {
			return nil, fmt.Errorf("marshal label counts failed: %w", err)
		}
		po.Fingerprint = res.Fingerprint
		po.ModelReused = res.ModelReused
		po.TrainRows = res.TrainRows
		po.TestRows = res.TestRows
		po.MissingTestClients = res.MissingTestClients
		po.LabelCounts = counts
		po.PlotPath = res.PlotPath
	}

	return po, nil
}

// toDomainModel GORM 模型转换为领域对象
func (r *RunRepositoryImpl) toDomainModel(po *entity.ClusterRun) (*etrun.Run, error) {
	run := &etrun.Run{
		ID:         po.ID,
		Mode:       etrun.RunMode(po.Mode),
		Status:     etrun.RunStatus(po.Status),
		Error:      po.ErrorMessage,
		StartedAt:  po.StartedAt,
		FinishedAt: po.FinishedAt,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}

	// 只有成功的运行才有结果
	if run.Status == etrun.RunStatusSucceeded {
		res := &etrun.Result{
			Fingerprint:        po.Fingerprint,
			ModelReused:        po.ModelReused,
			TrainRows:          po.TrainRows,
			TestRows:           po.TestRows,
			MissingTestClients: po.MissingTestClients,
			PlotPath:           po.PlotPath,
		}
		if len(po.LabelCounts) > 0 {
			if err := json.Unmarshal(po.LabelCounts, &res.LabelCounts); err != nil {
				return nil, fmt.Errorf("unmarshal label counts failed: %w", err)
			}
		}
		run.Result = res
	}

	return run, nil
}
