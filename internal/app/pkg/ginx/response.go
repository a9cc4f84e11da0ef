package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"txcluster/internal/app/pkg/errorx"
)

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path"`
	Info string `json:"info"`
}

// ProcessingData Smart Wait 超时返回的数据
type ProcessingData struct {
	RunID   string `json:"run_id"`
	PollURL string `json:"poll_url"`
}

// CodeProcessing 运行尚未结束，需要轮询
const CodeProcessing = 3001

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    200,
			Message: "OK",
		},
		Data: data,
	})
}

// Error 错误响应（400/500）
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
		},
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
			Details: details,
		},
	})
}

// Fail 根据错误类型选择状态码
func Fail(c *gin.Context, err error) {
	var be *errorx.BusinessError
	if errors.As(err, &be) && len(be.Details) > 0 {
		details := make([]ErrorDetail, 0, len(be.Details))
		for _, d := range be.Details {
			details = append(details, ErrorDetail{Path: d.Path, Info: d.Info})
		}
		ErrorWithDetails(c, errorx.HTTPStatus(err), err.Error(), details)
		return
	}
	Error(c, errorx.HTTPStatus(err), err.Error())
}

// Processing 处理中响应（3001），用于 Smart Wait 超时场景
func Processing(c *gin.Context, runID string, pollURL string) {
	c.JSON(http.StatusAccepted, Response{
		Meta: Meta{
			Code:    CodeProcessing,
			Message: "Run is in progress, please poll for results",
		},
		Data: ProcessingData{
			RunID:   runID,
			PollURL: pollURL,
		},
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldErr.Field(),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
