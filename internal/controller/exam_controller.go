package controller

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// CreateExam godoc
// @Summary 创建考试
// @Description 教师在自己的班级创建考试草稿，可同时提交题目
// @Tags 考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateExamRequest true "考试信息"
// @Success 201 {object} util.Response{data=model.Exam}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "班级不存在"
// @Router /api/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	var req service.CreateExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	exam, err := c.ExamService.CreateExam(ctx.Request.Context(), caller, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// ListExams godoc
// @Summary 考试列表
// @Description 管理员全部；教师本人创建；学生已加入班级中已发布的考试
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   classroom_id query int false "班级ID"
// @Param   status query string false "考试状态"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	filter := repository.ExamFilter{
		Status: model.ExamStatus(ctx.Query("status")),
		Page:   page,
		Limit:  limit,
	}
	if raw := ctx.Query("classroom_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			util.BadRequest(ctx, "invalid classroom_id")
			return
		}
		filter.ClassroomID = uint(id)
	}

	exams, total, err := c.ExamService.ListExams(ctx.Request.Context(), caller, filter)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, pageResponse(exams, total, page, limit))
}

// GetExam godoc
// @Summary 考试详情
// @Description 学生完成作答前不返回标准答案
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	exam, err := c.ExamService.GetExam(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// UpdateExam godoc
// @Summary 更新考试
// @Description 仅未发布的考试可修改；questions 不为空时整体替换题目
// @Tags 考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Param   body body service.UpdateExamRequest true "更新字段"
// @Success 200 {object} util.Response{data=model.Exam}
// @Failure 400 {object} util.Response "考试已发布"
// @Router /api/exams/{id} [put]
func (c *ExamController) UpdateExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	exam, err := c.ExamService.UpdateExam(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// DeleteExam godoc
// @Summary 删除考试
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id} [delete]
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ExamService.DeleteExam(ctx.Request.Context(), caller, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// PublishExam godoc
// @Summary 发布考试
// @Description draft -> scheduled，可同时设置时间窗口
// @Tags 考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Param   body body service.PublishExamRequest false "时间窗口"
// @Success 200 {object} util.Response{data=model.Exam}
// @Failure 400 {object} util.Response "状态不允许发布"
// @Router /api/exams/{id}/publish [post]
func (c *ExamController) PublishExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.PublishExamRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	exam, err := c.ExamService.PublishExam(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// CancelExam godoc
// @Summary 取消考试
// @Description 仅管理员；进行中的作答标记为 abandoned
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/exams/{id}/cancel [post]
func (c *ExamController) CancelExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	exam, err := c.ExamService.CancelExam(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// StartExam godoc
// @Summary 开始考试
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 201 {object} util.Response{data=model.ExamAttempt}
// @Failure 400 {object} util.Response "未发布或不在时间窗口内"
// @Failure 403 {object} util.Response "未加入班级"
// @Failure 409 {object} util.Response "已有进行中的作答"
// @Router /api/exams/{id}/start [post]
func (c *ExamController) StartExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attempt, err := c.ExamService.StartExam(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// SubmitExam godoc
// @Summary 提交考试
// @Tags 考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Param   body body service.SubmitExamRequest true "答案"
// @Success 200 {object} util.Response{data=model.ExamAttempt}
// @Failure 400 {object} util.Response "没有进行中的作答"
// @Router /api/exams/{id}/submit [post]
func (c *ExamController) SubmitExam(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubmitExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	attempt, err := c.ExamService.SubmitExam(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GetQuestions godoc
// @Summary 考试题目
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/exams/{id}/questions [get]
func (c *ExamController) GetQuestions(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questions, err := c.ExamService.GetQuestions(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// AddQuestion godoc
// @Summary 添加题目
// @Tags 考试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Param   body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/exams/{id}/questions [post]
func (c *ExamController) AddQuestion(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.ExamService.AddQuestion(ctx.Request.Context(), caller, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Param   questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id}/questions/{questionId} [delete]
func (c *ExamController) DeleteQuestion(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}
	if err := c.ExamService.DeleteQuestion(ctx.Request.Context(), caller, id, questionID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListAttempts godoc
// @Summary 作答记录
// @Description 管理者查看全部，学生只看自己的
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.ExamAttempt}
// @Router /api/exams/{id}/attempts [get]
func (c *ExamController) ListAttempts(ctx *gin.Context) {
	c.attempts(ctx, c.ExamService.ListAttempts)
}

// GetResults godoc
// @Summary 考试成绩
// @Description 已完成的作答及逐题得分
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.ExamAttempt}
// @Router /api/exams/{id}/results [get]
func (c *ExamController) GetResults(ctx *gin.Context) {
	c.attempts(ctx, c.ExamService.Results)
}

type attemptLister func(ctx context.Context, caller policy.Caller, examID uint) ([]model.ExamAttempt, error)

func (c *ExamController) attempts(ctx *gin.Context, list attemptLister) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attempts, err := list(ctx.Request.Context(), caller, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
