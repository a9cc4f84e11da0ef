package dataset

import "txcluster/internal/app/domains/services/svdataset"

// DatasetHandler 上传与预览 HTTP 处理器
type DatasetHandler struct {
	datasetService *svdataset.DatasetService
	maxUploadBytes int64
}

// NewDatasetHandler 创建数据集处理器实例，maxUploadMB <= 0 表示不限制
func NewDatasetHandler(datasetService *svdataset.DatasetService, maxUploadMB int64) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		maxUploadBytes: maxUploadMB << 20,
	}
}
