package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// 业务错误定义
var (
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrColumnMissing      = errors.New("required column missing")
	ErrMalformedValue     = errors.New("malformed value")
	ErrEmptyIntersection  = errors.New("train and test share no feature columns")
	ErrModelNotFitted     = errors.New("model is not fitted")
	ErrNoPredictions      = errors.New("no predictions to plot")
	ErrRunNotFound        = errors.New("run not found")
	ErrRunNotFinished     = errors.New("run not finished")
	ErrArtifactNotFound   = errors.New("model artifact not found")
	ErrAsyncDisabled      = errors.New("async runs are not enabled")
	ErrInvalidUploadName  = errors.New("invalid upload file name")
	ErrDimensionsMismatch = errors.New("feature dimensions mismatch")
)

// BusinessError 业务错误结构
type BusinessError struct {
	Code    int
	Message string
	Details []ErrorDetail
	cause   error
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *BusinessError) Unwrap() error {
	return e.cause
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// Wrap 用 HTTP 状态码和说明包装底层错误，details 会原样返回给调用方
func Wrap(code int, message string, cause error, details ...ErrorDetail) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Details: details,
		cause:   cause,
	}
}

// HTTPStatus 错误到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	var be *BusinessError
	if errors.As(err, &be) && be.Code != 0 {
		return be.Code
	}

	switch {
	case errors.Is(err, ErrDatasetNotFound),
		errors.Is(err, ErrRunNotFound),
		errors.Is(err, ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrColumnMissing),
		errors.Is(err, ErrMalformedValue),
		errors.Is(err, ErrEmptyIntersection),
		errors.Is(err, ErrDimensionsMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidUploadName):
		return http.StatusBadRequest
	case errors.Is(err, ErrRunNotFinished):
		return http.StatusConflict
	case errors.Is(err, ErrAsyncDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RetryableError 可重试错误（网络错误、临时故障等）
type RetryableError struct {
	err error
}

func (e *RetryableError) Error() string { return e.err.Error() }

func (e *RetryableError) Unwrap() error { return e.err }

// Retriable 标记为可重试
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{err: err}
}

// IsRetryable 判断是否可重试，默认不可重试
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
