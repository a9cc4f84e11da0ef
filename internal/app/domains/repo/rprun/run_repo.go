package rprun

import (
	"context"

	"txcluster/internal/app/domains/entity/etrun"
)

// RunRepository 运行记录仓储接口
// 实现在同包的 gorm 版本中
type RunRepository interface {
	// Create 创建运行记录
	Create(ctx context.Context, run *etrun.Run) error

	// GetByID 根据ID查询，不存在时返回 errorx.ErrRunNotFound
	GetByID(ctx context.Context, runID string) (*etrun.Run, error)

	// Update 保存运行状态与结果
	Update(ctx context.Context, run *etrun.Run) error

	// List 按创建时间倒序查询最近的运行
	List(ctx context.Context, limit int) ([]*etrun.Run, error)
}
