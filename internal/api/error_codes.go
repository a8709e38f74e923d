// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorInternalError = "INTERNAL_ERROR"

	// 请求侧错误
	ErrorValidation          = "VALIDATION_ERROR"
	ErrorUnsupportedProvider = "UNSUPPORTED_PROVIDER"

	// LLM调用相关错误
	ErrorMissingCredentials = "MISSING_CREDENTIALS"
	ErrorQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrorInvalidCredentials = "INVALID_CREDENTIALS"
	ErrorUpstreamFailure    = "UPSTREAM_FAILURE"
	ErrorParseFailure       = "PARSE_FAILURE"
	ErrorUpstreamTimeout    = "UPSTREAM_TIMEOUT"
)
