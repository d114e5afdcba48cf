package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"

	"gorm.io/gorm"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) Create(ctx context.Context, content *model.Content) error {
	return translateError(r.DB.WithContext(ctx).Create(content).Error)
}

func (r *ContentRepository) FindByID(ctx context.Context, id uint) (*model.Content, error) {
	var content model.Content
	if err := r.DB.WithContext(ctx).First(&content, id).Error; err != nil {
		return nil, notFoundAs(err, util.ErrContentNotFound)
	}
	return &content, nil
}

func (r *ContentRepository) ListByClassroom(ctx context.Context, classroomID uint, contentType model.ContentType) ([]model.Content, error) {
	var contents []model.Content
	query := r.DB.WithContext(ctx).Where("classroom_id = ?", classroomID)
	if contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}
	err := query.Order("created_at DESC").Find(&contents).Error
	return contents, err
}

// KeysByClassroom 班级删除前收集存储对象键
func (r *ContentRepository) KeysByClassroom(ctx context.Context, classroomID uint) ([]string, error) {
	var keys []string
	err := r.DB.WithContext(ctx).Model(&model.Content{}).
		Where("classroom_id = ? AND file_key <> ''", classroomID).
		Pluck("file_key", &keys).Error
	return keys, err
}

func (r *ContentRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Content{}, id).Error
}
