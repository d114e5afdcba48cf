package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
)

// UserService 处理用户资料与管理员的账号管理
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

// UpdateProfileRequest 角色不可由本人修改
type UpdateProfileRequest struct {
	FirstName *string         `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string         `json:"last_name" binding:"omitempty,max=100"`
	Phone     *string         `json:"phone_number" binding:"omitempty,max=20"`
	AvatarURL *string         `json:"profile_picture_url" binding:"omitempty,url"`
	Role      *model.UserRole `json:"role"`
}

type SetRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required,oneof=student teacher expert parent admin"`
}

type SetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

func (s *UserService) Profile(ctx context.Context, caller policy.Caller) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, caller.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, caller policy.Caller, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if req.Role != nil && *req.Role != user.Role {
		return nil, util.NewForbidden("role cannot be changed by the account owner")
	}

	fields := map[string]interface{}{}
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = *req.AvatarURL
	}
	if len(fields) > 0 {
		if err := s.UserRepo.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.UserRepo.FindByID(ctx, user.ID)
}

func (s *UserService) List(ctx context.Context, role model.UserRole, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(ctx, role, page, limit)
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

// SetRole 管理员修改他人角色
func (s *UserService) SetRole(ctx context.Context, caller policy.Caller, id uint, role model.UserRole) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	if !role.Valid() {
		return nil, util.NewValidation("invalid role: " + string(role))
	}
	if id == caller.ID {
		return nil, util.NewValidation("admins cannot change their own role")
	}
	if err := s.UserRepo.UpdateFields(ctx, id, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserService) SetDisabled(ctx context.Context, caller policy.Caller, id uint, disabled bool) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	if id == caller.ID {
		return nil, util.NewValidation("admins cannot disable themselves")
	}
	if err := s.UserRepo.UpdateFields(ctx, id, map[string]interface{}{"disabled": disabled}); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, id)
}
