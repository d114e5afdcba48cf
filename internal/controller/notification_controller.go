package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notificationService *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{NotificationService: notificationService, Hub: hub}
}

// ListNotifications godoc
// @Summary 最新通知
// @Description 最近 20 条通知及未读数
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	list, err := c.NotificationService.ListLatest(ctx.Request.Context(), caller)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	unread, err := c.NotificationService.CountUnread(ctx.Request.Context(), caller)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"list": list, "unread": unread})
}

// MarkRead godoc
// @Summary 标记已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "通知ID"
// @Success 200 {object} util.Response{data=model.Notification}
// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	notification, err := c.NotificationService.MarkRead(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, notification)
}

// Stream godoc
// @Summary 通知推送
// @Description 建立 WebSocket 连接接收实时通知，客户端发送 {"type":"READ","data":{"id":1}} 标记已读
// @Tags 通知
// @Security ApiKeyAuth
// @Param   token query string false "JWT Token（无法设置请求头时使用）"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/notifications/ws [get]
func (c *NotificationController) Stream(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	// 升级失败时 upgrader 已写回错误响应
	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, caller.ID); err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Uint("userId", caller.ID), zap.Error(err))
	}
}
