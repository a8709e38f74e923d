// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/PersonaLabMCP/internal/errors"
)

// ResponseHelper 响应助手类。
// 核心端点的响应体形状是固定契约：成功时直接返回裸数据，
// 失败时返回 {error} 或 {error, hint}，不加信封。
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应，裸数据
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 错误响应 {error}
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

// ErrorWithHint 错误响应 {error, hint}
func (rh *ResponseHelper) ErrorWithHint(c *gin.Context, statusCode int, message, hint string) {
	c.JSON(statusCode, gin.H{"error": message, "hint": hint})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.Error(c, http.StatusBadRequest, message)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string) {
	rh.Error(c, http.StatusInternalServerError, message)
}

// AppError 按错误分类写出状态码和本地化消息。
// validation/unsupported-provider → 400，其余 → 500。
func (rh *ResponseHelper) AppError(c *gin.Context, err error) {
	message, status := classifyAppError(err)
	rh.Error(c, status, message)
}

// classifyAppError 把AppError映射为HTTP状态码
func classifyAppError(err error) (string, int) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return err.Error(), http.StatusInternalServerError
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeUnsupportedProvider:
		return appErr.Message, http.StatusBadRequest
	default:
		return appErr.Message, http.StatusInternalServerError
	}
}
