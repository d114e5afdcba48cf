package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrollmentChecker 考试引擎依赖的报名查询
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, classroomID, studentID uint) (bool, error)
}

type ClassroomService struct {
	Repo        *repository.ClassroomRepository
	UserRepo    *repository.UserRepository
	ContentRepo *repository.ContentRepository
	Storage     StorageProvider
}

func NewClassroomService(repo *repository.ClassroomRepository, userRepo *repository.UserRepository, contentRepo *repository.ContentRepository, storage StorageProvider) *ClassroomService {
	return &ClassroomService{
		Repo:        repo,
		UserRepo:    userRepo,
		ContentRepo: contentRepo,
		Storage:     storage,
	}
}

type CreateClassroomRequest struct {
	CourseID    uint            `json:"course_id" binding:"required"`
	TeacherID   uint            `json:"teacher_id"`
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description"`
	Schedule    json.RawMessage `json:"schedule" swaggertype:"object"`
	MaxStudents int             `json:"max_students" binding:"required,gt=0"`
}

type UpdateClassroomRequest struct {
	Title       *string         `json:"title" binding:"omitempty,max=255"`
	Description *string         `json:"description"`
	Schedule    json.RawMessage `json:"schedule" swaggertype:"object"`
	MaxStudents *int            `json:"max_students" binding:"omitempty,gt=0"`
	IsActive    *bool           `json:"is_active"`
}

func (s *ClassroomService) Create(ctx context.Context, caller policy.Caller, req CreateClassroomRequest) (*model.Classroom, error) {
	if !caller.Is(model.Teacher) && !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}

	teacherID := caller.ID
	if caller.IsAdmin() {
		if req.TeacherID == 0 {
			return nil, util.NewValidation("teacher_id is required")
		}
		teacher, err := s.UserRepo.FindByID(ctx, req.TeacherID)
		if err != nil {
			return nil, err
		}
		if teacher.Role != model.Teacher {
			return nil, util.NewValidation("teacher_id must reference a teacher")
		}
		teacherID = teacher.ID
	}

	classroom := &model.Classroom{
		CourseID:    req.CourseID,
		TeacherID:   teacherID,
		Title:       req.Title,
		Description: req.Description,
		MaxStudents: req.MaxStudents,
		IsActive:    true,
	}
	if len(req.Schedule) > 0 {
		classroom.Schedule = datatypes.JSON(req.Schedule)
	}

	if err := s.Repo.Create(ctx, classroom); err != nil {
		return nil, err
	}
	return classroom, nil
}

func (s *ClassroomService) List(ctx context.Context, caller policy.Caller, page, limit int) ([]model.Classroom, int64, error) {
	return s.Repo.List(ctx, policy.ClassroomScope(caller), page, limit)
}

func (s *ClassroomService) Get(ctx context.Context, caller policy.Caller, id uint) (*model.Classroom, error) {
	classroom, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, caller, classroom); err != nil {
		return nil, err
	}
	return classroom, nil
}

// ensureVisible 管理者或已报名学生可见
func (s *ClassroomService) ensureVisible(ctx context.Context, caller policy.Caller, classroom *model.Classroom) error {
	if policy.CanManageClassroom(caller, classroom) {
		return nil
	}
	if caller.Is(model.Student) {
		enrolled, err := s.Repo.IsEnrolled(ctx, classroom.ID, caller.ID)
		if err != nil {
			return err
		}
		if enrolled {
			return nil
		}
	}
	return util.ErrPermissionDenied
}

func (s *ClassroomService) Update(ctx context.Context, caller policy.Caller, id uint, req UpdateClassroomRequest) (*model.Classroom, error) {
	classroom, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return nil, util.ErrPermissionDenied
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(req.Schedule) > 0 {
		fields["schedule"] = datatypes.JSON(req.Schedule)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		if req.MaxStudents != nil {
			ok, err := repo.SetCapacity(ctx, id, *req.MaxStudents)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrCapacityTooSmall
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return repo.UpdateFields(ctx, id, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, id)
}

func (s *ClassroomService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	classroom, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return util.ErrPermissionDenied
	}

	keys, err := s.ContentRepo.KeysByClassroom(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.Storage == nil {
		return nil
	}
	for _, key := range keys {
		if err := s.Storage.Delete(ctx, key); err != nil {
			logger.Log.Warn("Failed to delete classroom content object", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Join 占位与报名写入在同一事务内完成，满员时不产生任何写入
func (s *ClassroomService) Join(ctx context.Context, caller policy.Caller, id uint) (*model.Enrollment, error) {
	if !caller.Is(model.Student) {
		return nil, util.ErrPermissionDenied
	}

	var enrollment *model.Enrollment
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		classroom, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !classroom.IsActive {
			return util.ErrClassroomInactive
		}

		existing, err := repo.FindEnrollment(ctx, id, caller.ID)
		if err != nil && util.KindOf(err) != util.KindNotFound {
			return err
		}
		if existing != nil && existing.Status == model.EnrollmentActive {
			return util.ErrAlreadyEnrolled
		}

		ok, err := repo.IncrementStudents(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrClassroomFull
		}

		if existing != nil {
			reactivated, err := repo.SetEnrollmentStatus(ctx, existing.ID, existing.Status, model.EnrollmentActive)
			if err != nil {
				return err
			}
			if !reactivated {
				return util.ErrAlreadyEnrolled
			}
			existing.Status = model.EnrollmentActive
			enrollment = existing
			return nil
		}

		enrollment = &model.Enrollment{
			ClassroomID: id,
			StudentID:   caller.ID,
			Status:      model.EnrollmentActive,
			EnrolledAt:  time.Now(),
		}
		return repo.CreateEnrollment(ctx, enrollment)
	})
	if err != nil {
		if errors.Is(err, util.ErrClassroomFull) {
			monitoring.ClassroomEnrollments.WithLabelValues("full").Inc()
		}
		return nil, err
	}

	monitoring.ClassroomEnrollments.WithLabelValues("joined").Inc()
	return enrollment, nil
}

func (s *ClassroomService) Leave(ctx context.Context, caller policy.Caller, id uint) error {
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		enrollment, err := repo.FindEnrollment(ctx, id, caller.ID)
		if err != nil {
			return err
		}
		ok, err := repo.SetEnrollmentStatus(ctx, enrollment.ID, model.EnrollmentActive, model.EnrollmentDropped)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrEnrollmentNotFound
		}
		return repo.DecrementStudents(ctx, id)
	})
	if err != nil {
		return err
	}

	monitoring.ClassroomEnrollments.WithLabelValues("left").Inc()
	return nil
}

func (s *ClassroomService) Students(ctx context.Context, caller policy.Caller, id uint) ([]model.Enrollment, error) {
	classroom, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return nil, util.ErrPermissionDenied
	}
	return s.Repo.ListStudents(ctx, id)
}

func (s *ClassroomService) IsEnrolled(ctx context.Context, classroomID, studentID uint) (bool, error) {
	return s.Repo.IsEnrolled(ctx, classroomID, studentID)
}
