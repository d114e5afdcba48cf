package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassroomController struct {
	ClassroomService *service.ClassroomService
	ExamService      *service.ExamService
}

func NewClassroomController(classroomService *service.ClassroomService, examService *service.ExamService) *ClassroomController {
	return &ClassroomController{
		ClassroomService: classroomService,
		ExamService:      examService,
	}
}

// CreateClassroom godoc
// @Summary 创建班级
// @Description 教师为自己创建班级；管理员需指定 teacher_id
// @Tags 班级
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateClassroomRequest true "班级信息"
// @Success 201 {object} util.Response{data=model.Classroom}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/classrooms [post]
func (c *ClassroomController) CreateClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req service.CreateClassroomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	classroom, err := c.ClassroomService.Create(ctx.Request.Context(), caller, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, classroom)
}

// ListClassrooms godoc
// @Summary 班级列表
// @Description 管理员全部；教师本人班级；学生已加入班级
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/classrooms [get]
func (c *ClassroomController) ListClassrooms(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	classrooms, total, err := c.ClassroomService.List(ctx.Request.Context(), caller, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(classrooms, total, page, limit))
}

// GetClassroom godoc
// @Summary 班级详情
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Success 200 {object} util.Response{data=model.Classroom}
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "班级不存在"
// @Router /api/classrooms/{id} [get]
func (c *ClassroomController) GetClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	classroom, err := c.ClassroomService.Get(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, classroom)
}

// UpdateClassroom godoc
// @Summary 更新班级
// @Tags 班级
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Param   body body service.UpdateClassroomRequest true "更新字段"
// @Success 200 {object} util.Response{data=model.Classroom}
// @Failure 400 {object} util.Response "容量小于当前人数"
// @Router /api/classrooms/{id} [put]
func (c *ClassroomController) UpdateClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateClassroomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	classroom, err := c.ClassroomService.Update(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, classroom)
}

// DeleteClassroom godoc
// @Summary 删除班级
// @Description 同时删除报名、考试及作答、课程资料
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Success 200 {object} util.Response
// @Router /api/classrooms/{id} [delete]
func (c *ClassroomController) DeleteClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ClassroomService.Delete(ctx.Request.Context(), caller, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// JoinClassroom godoc
// @Summary 加入班级
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 400 {object} util.Response "班级已满"
// @Failure 409 {object} util.Response "已加入"
// @Router /api/classrooms/{id}/join [post]
func (c *ClassroomController) JoinClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	enrollment, err := c.ClassroomService.Join(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// LeaveClassroom godoc
// @Summary 退出班级
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Success 200 {object} util.Response
// @Router /api/classrooms/{id}/leave [post]
func (c *ClassroomController) LeaveClassroom(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ClassroomService.Leave(ctx.Request.Context(), caller, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListStudents godoc
// @Summary 班级学生
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/classrooms/{id}/students [get]
func (c *ClassroomController) ListStudents(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	students, err := c.ClassroomService.Students(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// ListClassroomExams godoc
// @Summary 班级考试
// @Tags 班级
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "班级ID"
// @Param   status query string false "考试状态"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/classrooms/{id}/exams [get]
func (c *ClassroomController) ListClassroomExams(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	filter := repository.ExamFilter{
		Status: model.ExamStatus(ctx.Query("status")),
		Page:   page,
		Limit:  limit,
	}
	exams, total, err := c.ExamService.ListClassroomExams(ctx.Request.Context(), caller, id, filter)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(exams, total, page, limit))
}
