package svmodel

import (
	"context"
	"fmt"

	"txcluster/internal/app/pkg/errorx"
	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/registry"
)

// ModelService 模型仓库的查询与失效
type ModelService struct {
	registry registry.Registry
	logger   logger.Logger
}

// NewModelService 创建模型服务实例
func NewModelService(reg registry.Registry, log logger.Logger) *ModelService {
	return &ModelService{registry: reg, logger: log}
}

// List 列出所有已训练的模型
func (s *ModelService) List(ctx context.Context) ([]registry.Summary, error) {
	return s.registry.List(ctx)
}

// Invalidate 删除指纹对应的模型，下一次运行会重新训练
func (s *ModelService) Invalidate(ctx context.Context, fingerprint string) error {
	if !registry.ValidFingerprint(fingerprint) {
		return fmt.Errorf("fingerprint %q: %w", fingerprint, errorx.ErrArtifactNotFound)
	}
	if err := s.registry.Delete(ctx, fingerprint); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Model artifact invalidated", "fingerprint", fingerprint)
	return nil
}
