package middleware

import (
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID 透传或生成请求ID，写入上下文与响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(util.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
