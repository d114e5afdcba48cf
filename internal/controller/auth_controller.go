package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewAuthController(authService *service.AuthService, userService *service.UserService) *AuthController {
	return &AuthController{
		AuthService: authService,
		UserService: userService,
	}
}

// Register godoc
// @Summary 注册新用户
// @Description 学生、教师、专家或家长注册，管理员账号不能自行注册
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=model.User} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// Login godoc
// @Summary 用户登录
// @Description 邮箱密码登录，返回 JWT
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.LoginResponse} "登录成功"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Failure 403 {object} util.Response "账号已禁用"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.AuthService.Login(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// Logout godoc
// @Summary 退出登录
// @Description 当前 token 加入黑名单
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	if err := c.AuthService.Logout(ctx.Request.Context(), claims); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetProfile godoc
// @Summary 获取个人资料
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response "未授权"
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.Profile(ctx.Request.Context(), caller)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Description 角色不可由本人修改
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.UpdateProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 403 {object} util.Response "禁止修改角色"
// @Router /api/profile [put]
func (c *AuthController) UpdateProfile(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.UpdateProfile(ctx.Request.Context(), caller, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
