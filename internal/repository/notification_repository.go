package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: tx}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return translateError(r.DB.WithContext(ctx).CreateInBatches(&notifications, 100).Error)
}

func (r *NotificationRepository) ListLatest(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uint) (*model.Notification, error) {
	var notification model.Notification
	if err := r.DB.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, notFoundAs(err, util.ErrNotificationNotFound)
	}
	return &notification, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).
		Error
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
