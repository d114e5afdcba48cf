package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo  *repository.UserRepository
	Blacklist TokenBlacklist
	Cfg       *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, blacklist TokenBlacklist, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:  userRepo,
		Blacklist: blacklist,
		Cfg:       cfg,
	}
}

type RegisterRequest struct {
	FirstName string         `json:"first_name" binding:"required,max=100"`
	LastName  string         `json:"last_name" binding:"required,max=100"`
	Email     string         `json:"email" binding:"required,email"`
	Password  string         `json:"password" binding:"required,min=8,max=72"`
	Role      model.UserRole `json:"role" binding:"required,oneof=student teacher expert parent"`
	Phone     string         `json:"phone_number" binding:"omitempty,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 管理员账号不能自行注册
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if !req.Role.Valid() || req.Role == model.Admin {
		return nil, util.NewValidation("invalid role: " + string(req.Role))
	}
	return s.createUser(ctx, req.FirstName, req.LastName, req.Email, req.Password, req.Role, req.Phone)
}

// CreateAdmin 供命令行初始化管理员
func (s *AuthService) CreateAdmin(ctx context.Context, firstName, lastName, email, password string) (*model.User, error) {
	return s.createUser(ctx, firstName, lastName, email, password, model.Admin, "")
}

func (s *AuthService) createUser(ctx context.Context, firstName, lastName, email, password string, role model.UserRole, phone string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashed := string(hashedPassword)

	user := &model.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  &hashed,
		Role:      role,
		Phone:     phone,
	}
	// 唯一索引保证邮箱不重复，冲突时返回 ErrEmailRegistered
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if util.KindOf(err) == util.KindNotFound {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	// OAuth 账号没有本地密码
	if user.Password == nil {
		return nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user}, nil
}

// Logout 将 token 加入黑名单直至其自然过期
func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) error {
	if claims.ID == "" {
		return nil
	}
	return s.Blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL())
}

func (s *AuthService) IsRevoked(ctx context.Context, claims *util.Claims) (bool, error) {
	if claims.ID == "" {
		return false, nil
	}
	return s.Blacklist.IsRevoked(ctx, claims.ID)
}
