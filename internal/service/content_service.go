package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var allowedContentMimes = []string{
	util.MimePDF,
	util.MimeVideo,
	util.MimeAudio,
	util.MimeEpub,
	"application/zip",
}

type ContentService struct {
	Repo       *repository.ContentRepository
	Classrooms *ClassroomService
	Storage    StorageProvider
}

func NewContentService(repo *repository.ContentRepository, classrooms *ClassroomService, storage StorageProvider) *ContentService {
	return &ContentService{Repo: repo, Classrooms: classrooms, Storage: storage}
}

type UploadContentRequest struct {
	Title       string `form:"title" binding:"required,max=255"`
	Description string `form:"description"`
}

// Upload 校验文件内容类型后存储；视频尽力探测时长
func (s *ContentService) Upload(ctx context.Context, caller policy.Caller, classroomID uint, file *multipart.FileHeader, req UploadContentRequest) (*model.Content, error) {
	classroom, err := s.Classrooms.Repo.FindByID(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return nil, util.ErrPermissionDenied
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, allowedContentMimes)
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	contentType := util.ContentTypeOf(mimeType, file.Filename)
	duration := 0
	if contentType == model.ContentVideo || contentType == model.ContentAudio {
		duration = s.probeDuration(src, file.Filename)
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	key := ObjectKey(classroomID, file.Filename)
	url, err := s.Storage.Upload(ctx, key, src, file.Size, mimeType)
	if err != nil {
		return nil, err
	}

	content := &model.Content{
		ClassroomID:     classroomID,
		UploadedBy:      caller.ID,
		Title:           req.Title,
		Description:     req.Description,
		ContentType:     contentType,
		FileURL:         url,
		FileKey:         key,
		FileSize:        file.Size,
		DurationSeconds: duration,
	}
	if err := s.Repo.Create(ctx, content); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return content, nil
}

// probeDuration ffprobe 需要本地文件，先落到临时文件
func (s *ContentService) probeDuration(src io.Reader, filename string) int {
	tmp, err := os.CreateTemp("", "content-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return 0
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return 0
	}

	info, err := util.ProbeMedia(tmp.Name())
	if err != nil {
		logger.Log.Debug("Media probe failed", zap.String("file", filename), zap.Error(err))
		return 0
	}
	return info.DurationSeconds
}

func (s *ContentService) List(ctx context.Context, caller policy.Caller, classroomID uint, contentType model.ContentType) ([]model.Content, error) {
	if _, err := s.Classrooms.Get(ctx, caller, classroomID); err != nil {
		return nil, err
	}
	return s.Repo.ListByClassroom(ctx, classroomID, contentType)
}

func (s *ContentService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	content, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	classroom, err := s.Classrooms.Repo.FindByID(ctx, content.ClassroomID)
	if err != nil {
		return err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return util.ErrPermissionDenied
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if content.FileKey != "" {
		if err := s.Storage.Delete(ctx, content.FileKey); err != nil {
			logger.Log.Warn("Failed to delete content object", zap.String("key", content.FileKey), zap.Error(err))
		}
	}
	return nil
}
