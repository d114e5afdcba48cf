package service

import (
	"context"
	"edu_platform_backend/internal/repository"
	"math"
)

// PlatformOverview 管理员看板统计
type PlatformOverview struct {
	UsersByRole       []repository.RoleCount   `json:"users_by_role"`
	Classrooms        int64                    `json:"classrooms"`
	ExamsByStatus     []repository.StatusCount `json:"exams_by_status"`
	CompletedAttempts int64                    `json:"completed_attempts"`
	AveragePercentage float64                  `json:"average_percentage"`
	SessionsByStatus  []repository.StatusCount `json:"sessions_by_status"`
}

type AnalyticsService struct {
	UserRepo       *repository.UserRepository
	ClassroomRepo  *repository.ClassroomRepository
	ExamRepo       *repository.ExamRepository
	AttemptRepo    *repository.AttemptRepository
	CounselingRepo *repository.CounselingRepository
}

func NewAnalyticsService(
	userRepo *repository.UserRepository,
	classroomRepo *repository.ClassroomRepository,
	examRepo *repository.ExamRepository,
	attemptRepo *repository.AttemptRepository,
	counselingRepo *repository.CounselingRepository,
) *AnalyticsService {
	return &AnalyticsService{
		UserRepo:       userRepo,
		ClassroomRepo:  classroomRepo,
		ExamRepo:       examRepo,
		AttemptRepo:    attemptRepo,
		CounselingRepo: counselingRepo,
	}
}

func (s *AnalyticsService) Overview(ctx context.Context) (*PlatformOverview, error) {
	var overview PlatformOverview
	var err error

	if overview.UsersByRole, err = s.UserRepo.CountByRole(ctx); err != nil {
		return nil, err
	}
	if overview.Classrooms, err = s.ClassroomRepo.Count(ctx); err != nil {
		return nil, err
	}
	if overview.ExamsByStatus, err = s.ExamRepo.CountByStatus(ctx); err != nil {
		return nil, err
	}
	stats, err := s.AttemptRepo.CompletedStats(ctx)
	if err != nil {
		return nil, err
	}
	overview.CompletedAttempts = stats.Completed
	overview.AveragePercentage = math.Round(stats.AveragePercentage*100) / 100
	if overview.SessionsByStatus, err = s.CounselingRepo.CountByStatus(ctx); err != nil {
		return nil, err
	}
	return &overview, nil
}
