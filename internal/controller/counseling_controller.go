package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CounselingController struct {
	CounselingService *service.CounselingService
}

func NewCounselingController(counselingService *service.CounselingService) *CounselingController {
	return &CounselingController{CounselingService: counselingService}
}

// RequestSession godoc
// @Summary 预约咨询
// @Tags 咨询
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.RequestSessionRequest true "预约信息"
// @Success 201 {object} util.Response{data=model.CounselingSession}
// @Failure 404 {object} util.Response "专家不存在"
// @Router /api/counseling/sessions [post]
func (c *CounselingController) RequestSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req service.RequestSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	session, err := c.CounselingService.RequestSession(ctx.Request.Context(), caller, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// ListSessions godoc
// @Summary 咨询列表
// @Tags 咨询
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "状态"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/counseling/sessions [get]
func (c *CounselingController) ListSessions(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	sessions, total, err := c.CounselingService.ListSessions(ctx.Request.Context(), caller,
		model.SessionStatus(ctx.Query("status")), page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(sessions, total, page, limit))
}

// GetSession godoc
// @Summary 咨询详情
// @Tags 咨询
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.CounselingSession}
// @Router /api/counseling/sessions/{id} [get]
func (c *CounselingController) GetSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	session, err := c.CounselingService.GetSession(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// UpdateSession godoc
// @Summary 修改咨询
// @Description 学生只能修改备注
// @Tags 咨询
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.UpdateSessionRequest true "修改字段"
// @Success 200 {object} util.Response{data=model.CounselingSession}
// @Router /api/counseling/sessions/{id} [put]
func (c *CounselingController) UpdateSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	session, err := c.CounselingService.UpdateSession(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// ConfirmSession godoc
// @Summary 确认咨询
// @Description 专家确认并附上会议链接，generate_meet=true 时自动生成
// @Tags 咨询
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.ConfirmSessionRequest true "会议链接"
// @Success 200 {object} util.Response{data=model.CounselingSession}
// @Failure 400 {object} util.Response "链接格式错误或状态不允许"
// @Router /api/counseling/sessions/{id}/confirm [post]
func (c *CounselingController) ConfirmSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ConfirmSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	session, err := c.CounselingService.ConfirmSession(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// CompleteSession godoc
// @Summary 完成咨询
// @Tags 咨询
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.CompleteSessionRequest false "咨询报告"
// @Success 200 {object} util.Response{data=model.CounselingSession}
// @Router /api/counseling/sessions/{id}/complete [post]
func (c *CounselingController) CompleteSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CompleteSessionRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	session, err := c.CounselingService.CompleteSession(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// CancelSession godoc
// @Summary 取消咨询
// @Tags 咨询
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.CounselingSession}
// @Router /api/counseling/sessions/{id}/cancel [post]
func (c *CounselingController) CancelSession(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	session, err := c.CounselingService.CancelSession(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// CreateMeetingLink godoc
// @Summary 生成会议链接
// @Tags 咨询
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/counseling/meeting-link [post]
func (c *CounselingController) CreateMeetingLink(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	link, err := c.CounselingService.GenerateMeetingLink(ctx.Request.Context(), caller)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"meeting_link": link})
}
