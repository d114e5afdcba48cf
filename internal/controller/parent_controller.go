package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ParentController 家长查看子女及管理员维护关联
type ParentController struct {
	ParentService *service.ParentService
}

func NewParentController(parentService *service.ParentService) *ParentController {
	return &ParentController{ParentService: parentService}
}

// ListChildren godoc
// @Summary 家长已关联的子女
// @Tags 家长
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/parent/children [get]
func (c *ParentController) ListChildren(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	children, err := c.ParentService.Children(ctx.Request.Context(), caller)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, children)
}

// GetChildProgress godoc
// @Summary 子女的考试结果与报名班级
// @Tags 家长
// @Produce  json
// @Security ApiKeyAuth
// @Param   childId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.ChildProgress}
// @Failure 403 {object} util.Response "未关联该学生"
// @Router /api/parent/children/{childId}/progress [get]
func (c *ParentController) GetChildProgress(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	childID, ok := pathID(ctx, "childId")
	if !ok {
		return
	}
	progress, err := c.ParentService.Progress(ctx.Request.Context(), caller, childID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// LinkChild godoc
// @Summary 关联家长与学生
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "家长用户ID"
// @Param   body body service.LinkChildRequest true "学生"
// @Success 201 {object} util.Response{data=model.ParentLink}
// @Failure 409 {object} util.Response "已关联"
// @Router /api/admin/parents/{id}/children [post]
func (c *ParentController) LinkChild(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	parentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LinkChildRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	link, err := c.ParentService.LinkChild(ctx.Request.Context(), caller, parentID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, link)
}

// UnlinkChild godoc
// @Summary 解除家长与学生的关联
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "家长用户ID"
// @Param   childId path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/admin/parents/{id}/children/{childId} [delete]
func (c *ParentController) UnlinkChild(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	parentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	childID, ok := pathID(ctx, "childId")
	if !ok {
		return
	}
	if err := c.ParentService.UnlinkChild(ctx.Request.Context(), caller, parentID, childID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
