package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// GetOverview godoc
// @Summary 平台统计
// @Description 用户、班级、考试、作答与咨询的汇总数据
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PlatformOverview}
// @Router /api/admin/analytics [get]
func (c *AnalyticsController) GetOverview(ctx *gin.Context) {
	overview, err := c.AnalyticsService.Overview(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
