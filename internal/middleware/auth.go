package middleware

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RevocationChecker 判断 token 是否已注销
type RevocationChecker interface {
	IsRevoked(ctx context.Context, claims *util.Claims) (bool, error)
}

func AuthMiddleware(secret string, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		// 浏览器 WebSocket 无法设置请求头
		if tokenString == "" && c.IsWebsocket() {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.Log.Debug("JWT parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims)
			if err != nil {
				// 黑名单不可用时放行，只记录日志
				logger.Log.Warn("Token revocation check failed", zap.Error(err))
			} else if revoked {
				util.Unauthorized(c)
				c.Abort()
				return
			}
		}

		c.Set(util.UserContextKey, claims)
		c.Set(util.TokenKey, tokenString)
		c.Next()
	}
}

// RoleMiddleware 管理员默认放行
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			// 异步更新，不阻塞主流程
			go func(userID uint) {
				if err := repo.UpdateLastSeen(userID); err != nil {
					logger.Log.Debug("Failed to update last seen", zap.Uint("user_id", userID), zap.Error(err))
				}
			}(claims.UserID)
		}
		c.Next()
	}
}
