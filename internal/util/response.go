package util

import (
	"edu_platform_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    http.StatusUnauthorized,
		Message: "Unauthorized",
		Error:   string(KindUnauthenticated),
	})
}

func Forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, Response{
		Code:    http.StatusForbidden,
		Message: "Forbidden",
		Error:   string(KindForbidden),
	})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: message,
		Error:   string(KindValidation),
	})
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.String("path", c.FullPath()),
	)
	InternalServerError(c)
}

// StatusOf 业务错误分类到 HTTP 状态码的映射
func StatusOf(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// RespondError 业务错误按分类返回，其余错误记录日志后返回 500
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		LogInternalError(c, err)
		return
	}
	code := StatusOf(appErr.Kind)
	c.JSON(code, Response{
		Code:    code,
		Message: appErr.Reason,
		Error:   string(appErr.Kind),
	})
}
