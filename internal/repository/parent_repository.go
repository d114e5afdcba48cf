package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"

	"gorm.io/gorm"
)

type ParentRepository struct {
	DB *gorm.DB
}

func NewParentRepository(db *gorm.DB) *ParentRepository {
	return &ParentRepository{DB: db}
}

func (r *ParentRepository) Link(ctx context.Context, link *model.ParentLink) error {
	err := r.DB.WithContext(ctx).Create(link).Error
	if IsDuplicateKey(err) {
		return util.ErrChildAlreadyLinked
	}
	return translateError(err)
}

func (r *ParentRepository) Unlink(ctx context.Context, parentID, studentID uint) error {
	result := r.DB.WithContext(ctx).
		Where("parent_id = ? AND student_id = ?", parentID, studentID).
		Delete(&model.ParentLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrChildNotFound
	}
	return nil
}

func (r *ParentRepository) IsLinked(ctx context.Context, parentID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ParentLink{}).
		Where("parent_id = ? AND student_id = ?", parentID, studentID).
		Count(&count).Error
	return count > 0, err
}

// ListChildren 家长已关联的学生
func (r *ParentRepository) ListChildren(ctx context.Context, parentID uint) ([]model.User, error) {
	var children []model.User
	err := r.DB.WithContext(ctx).
		Where("id IN (?)", r.DB.Session(&gorm.Session{NewDB: true}).
			Model(&model.ParentLink{}).
			Select("student_id").
			Where("parent_id = ?", parentID)).
		Order("first_name ASC, last_name ASC").
		Find(&children).Error
	return children, err
}
