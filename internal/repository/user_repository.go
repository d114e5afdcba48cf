package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.DB.WithContext(ctx).Create(user).Error
	if IsDuplicateKey(err) {
		return util.ErrEmailRegistered
	}
	return translateError(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return translateError(r.DB.WithContext(ctx).Save(user).Error)
}

func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return util.ErrUserNotFound
	}
	return nil
}

// UpdateLastSeen 由活动中间件异步调用
func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).
		Error
}

func (r *UserRepository) List(ctx context.Context, role model.UserRole, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").Scopes(paginate(page, limit)).Find(&users).Error
	return users, total, err
}

type RoleCount struct {
	Role  model.UserRole `json:"role"`
	Count int64          `json:"count"`
}

func (r *UserRepository) CountByRole(ctx context.Context) ([]RoleCount, error) {
	var rows []RoleCount
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Order("role").
		Scan(&rows).Error
	return rows, err
}
