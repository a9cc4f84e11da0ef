package svdataset

import (
	"context"
	"fmt"
	"io"

	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/dataset"
)

// HeadRows data_heads 预览的行数
const HeadRows = 5

// DatasetService 上传与预览
type DatasetService struct {
	store  *dataset.Store
	logger logger.Logger
}

// NewDatasetService 创建数据集服务实例
func NewDatasetService(store *dataset.Store, log logger.Logger) *DatasetService {
	return &DatasetService{store: store, logger: log}
}

// Upload 原样保存一个上传文件
func (s *DatasetService) Upload(ctx context.Context, name string, r io.Reader) error {
	if err := s.store.Save(name, r); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "File uploaded", "name", name)
	return nil
}

// Shapes 四个数据集的 [行数, 列数]
func (s *DatasetService) Shapes(ctx context.Context) (map[string][2]int, error) {
	bundle, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	shapes := make(map[string][2]int, len(dataset.Files))
	bundle.Each(func(f dataset.File, t *dataset.Table) {
		shapes[f.Key] = t.Shape()
	})
	return shapes, nil
}

// Heads 四个数据集前 5 行的 HTML 表格
func (s *DatasetService) Heads(ctx context.Context) (map[string]string, error) {
	bundle, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	heads := make(map[string]string, len(dataset.Files))
	var renderErr error
	bundle.Each(func(f dataset.File, t *dataset.Table) {
		if renderErr != nil {
			return
		}
		html, err := t.Head(HeadRows).HTML()
		if err != nil {
			renderErr = fmt.Errorf("render %s failed: %w", f.Name, err)
			return
		}
		heads[f.Key] = html
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return heads, nil
}
