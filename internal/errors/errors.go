// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 请求侧错误
	ErrorTypeValidation          ErrorType = "validation_error"
	ErrorTypeUnsupportedProvider ErrorType = "unsupported_provider"
	ErrorTypeMissingCredentials  ErrorType = "missing_credentials"

	// 上游错误
	ErrorTypeQuotaExceeded      ErrorType = "quota_exceeded"
	ErrorTypeInvalidCredentials ErrorType = "invalid_credentials"
	ErrorTypeUpstream           ErrorType = "upstream_error"
	ErrorTypeTimeout            ErrorType = "timeout"

	// 响应解析错误
	ErrorTypeParseFailure ErrorType = "parse_failure"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewUnsupportedProviderError 创建不支持的提供商错误
func NewUnsupportedProviderError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnsupportedProvider, message, originalError)
}

// NewMissingCredentialsError 创建凭证缺失错误
func NewMissingCredentialsError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMissingCredentials, message, originalError)
}

// NewQuotaExceededError 创建配额耗尽错误
func NewQuotaExceededError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeQuotaExceeded, message, originalError)
}

// NewInvalidCredentialsError 创建上游凭证无效错误
func NewInvalidCredentialsError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidCredentials, message, originalError)
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

// NewUpstreamError 创建上游调用错误
func NewUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, originalError)
}

// NewParseFailureError 创建解析失败错误
func NewParseFailureError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParseFailure, message, originalError)
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsUnsupportedProviderError 检查是否为不支持的提供商错误
func IsUnsupportedProviderError(err error) bool {
	return isType(err, ErrorTypeUnsupportedProvider)
}

// IsMissingCredentialsError 检查是否为凭证缺失错误
func IsMissingCredentialsError(err error) bool {
	return isType(err, ErrorTypeMissingCredentials)
}

// IsQuotaExceededError 检查是否为配额耗尽错误
func IsQuotaExceededError(err error) bool {
	return isType(err, ErrorTypeQuotaExceeded)
}

// IsParseFailureError 检查是否为解析失败错误
func IsParseFailureError(err error) bool {
	return isType(err, ErrorTypeParseFailure)
}

func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeUnsupportedProvider:
		return "UNSUPPORTED_PROVIDER"
	case ErrorTypeMissingCredentials:
		return "MISSING_CREDENTIALS"
	case ErrorTypeQuotaExceeded:
		return "QUOTA_EXCEEDED"
	case ErrorTypeInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeParseFailure:
		return "PARSE_FAILURE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
