package controller

import (
	"context"
	"edu_platform_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查数据库与 Redis 状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
