package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理员用户管理
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   role query string false "按角色过滤"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, limit := pagination(ctx)
	role := model.UserRole(ctx.Query("role"))
	if role != "" && !role.Valid() {
		util.BadRequest(ctx, "invalid role: "+string(role))
		return
	}

	users, total, err := c.UserService.List(ctx.Request.Context(), role, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(users, total, page, limit))
}

// GetUser godoc
// @Summary 用户详情
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	user, err := c.UserService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetRole godoc
// @Summary 修改用户角色
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body service.SetRoleRequest true "角色"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/admin/users/{id}/role [put]
func (c *UserController) SetRole(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SetRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.SetRole(ctx.Request.Context(), caller, id, req.Role)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetDisabled godoc
// @Summary 禁用或启用用户
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body service.SetDisabledRequest true "是否禁用"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/admin/users/{id}/status [put]
func (c *UserController) SetDisabled(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.SetDisabled(ctx.Request.Context(), caller, id, req.Disabled)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
