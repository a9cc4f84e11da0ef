package dataset

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"txcluster/internal/app/pkg/ginx"
)

// Upload 上传文件，每个文件按原文件名保存
// POST /upload
func (h *DatasetHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		ginx.BadRequest(c, "multipart form required: "+err.Error())
		return
	}

	for _, headers := range form.File {
		for _, fh := range headers {
			if err := h.save(c, fh); err != nil {
				ginx.Fail(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Files successfully uploaded"})
}

func (h *DatasetHandler) save(c *gin.Context, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s failed: %w", fh.Filename, err)
	}
	defer f.Close()

	return h.datasetService.Upload(c.Request.Context(), fh.Filename, f)
}
