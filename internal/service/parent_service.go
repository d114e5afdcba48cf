package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
)

// recentResultsLimit 家长查看子女成绩时返回的最近作答条数
const recentResultsLimit = 10

// ParentService 家长与学生的关联以及子女学习进度
type ParentService struct {
	Repo          *repository.ParentRepository
	UserRepo      *repository.UserRepository
	AttemptRepo   *repository.AttemptRepository
	ClassroomRepo *repository.ClassroomRepository
}

func NewParentService(repo *repository.ParentRepository, userRepo *repository.UserRepository, attemptRepo *repository.AttemptRepository, classroomRepo *repository.ClassroomRepository) *ParentService {
	return &ParentService{
		Repo:          repo,
		UserRepo:      userRepo,
		AttemptRepo:   attemptRepo,
		ClassroomRepo: classroomRepo,
	}
}

type LinkChildRequest struct {
	StudentID uint `json:"student_id" binding:"required"`
}

// ChildProgress 子女最近的考试结果与报名的班级
type ChildProgress struct {
	Student     *model.User         `json:"student"`
	ExamResults []model.ExamAttempt `json:"exam_results"`
	Enrollments []model.Enrollment  `json:"enrollments"`
}

// LinkChild 仅管理员可建立家长与学生的关联
func (s *ParentService) LinkChild(ctx context.Context, caller policy.Caller, parentID uint, req LinkChildRequest) (*model.ParentLink, error) {
	if !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	parent, err := s.UserRepo.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Role != model.Parent {
		return nil, util.NewValidation("user is not a parent")
	}
	student, err := s.student(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	link := &model.ParentLink{ParentID: parent.ID, StudentID: student.ID}
	if err := s.Repo.Link(ctx, link); err != nil {
		return nil, err
	}
	link.Student = student
	return link, nil
}

func (s *ParentService) UnlinkChild(ctx context.Context, caller policy.Caller, parentID, studentID uint) error {
	if !caller.IsAdmin() {
		return util.ErrPermissionDenied
	}
	return s.Repo.Unlink(ctx, parentID, studentID)
}

func (s *ParentService) Children(ctx context.Context, caller policy.Caller) ([]model.User, error) {
	if !caller.Is(model.Parent) {
		return nil, util.ErrPermissionDenied
	}
	return s.Repo.ListChildren(ctx, caller.ID)
}

func (s *ParentService) Progress(ctx context.Context, caller policy.Caller, studentID uint) (*ChildProgress, error) {
	linked := false
	if caller.Is(model.Parent) {
		var err error
		if linked, err = s.Repo.IsLinked(ctx, caller.ID, studentID); err != nil {
			return nil, err
		}
	}
	if !policy.CanViewChild(caller, studentID, linked) {
		return nil, util.ErrPermissionDenied
	}

	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	results, err := s.AttemptRepo.ListByStudent(ctx, studentID, recentResultsLimit)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.ClassroomRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &ChildProgress{Student: student, ExamResults: results, Enrollments: enrollments}, nil
}

func (s *ParentService) student(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		if util.KindOf(err) == util.KindNotFound {
			return nil, util.ErrChildNotFound
		}
		return nil, err
	}
	if user.Role != model.Student {
		return nil, util.ErrChildNotFound
	}
	return user, nil
}
