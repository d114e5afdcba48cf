package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 512 << 20

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// UploadContent godoc
// @Summary Upload classroom content
// @Description Upload a PDF, ebook, video or audio file to a classroom (owner or admin)
// @Tags content
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Classroom ID"
// @Param   title formData string true "Content title"
// @Param   description formData string false "Content description"
// @Param   file formData file true "Content file"
// @Success 201 {object} util.Response{data=model.Content} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 403 {object} util.Response "Forbidden"
// @Router /api/classrooms/{id}/contents [post]
func (c *ContentController) UploadContent(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	classroomID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.UploadContentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	if file.Size > maxUploadSize {
		util.BadRequest(ctx, "File too large")
		return
	}

	content, err := c.ContentService.Upload(ctx.Request.Context(), caller, classroomID, file, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, content)
}

// ListContents godoc
// @Summary List classroom content
// @Tags content
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Classroom ID"
// @Param   type query string false "Content type" Enums(pdf, ebook, video, audio, other)
// @Success 200 {object} util.Response{data=[]model.Content}
// @Router /api/classrooms/{id}/contents [get]
func (c *ContentController) ListContents(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	classroomID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	contents, err := c.ContentService.List(ctx.Request.Context(), caller, classroomID, model.ContentType(ctx.Query("type")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, contents)
}

// DeleteContent godoc
// @Summary Delete classroom content
// @Tags content
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Content ID"
// @Success 200 {object} util.Response
// @Router /api/contents/{id} [delete]
func (c *ContentController) DeleteContent(ctx *gin.Context) {
	caller, ok := currentCaller(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ContentService.Delete(ctx.Request.Context(), caller, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
