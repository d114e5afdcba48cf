package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/monitoring"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const defaultSessionMinutes = 60

type CounselingService struct {
	Repo     *repository.CounselingRepository
	UserRepo *repository.UserRepository
	Meetings *MeetingService
	Notifier *NotificationService
	Now      func() time.Time
}

func NewCounselingService(repo *repository.CounselingRepository, userRepo *repository.UserRepository, meetings *MeetingService, notifier *NotificationService) *CounselingService {
	return &CounselingService{
		Repo:     repo,
		UserRepo: userRepo,
		Meetings: meetings,
		Notifier: notifier,
		Now:      time.Now,
	}
}

type RequestSessionRequest struct {
	ExpertID        uint      `json:"expert_id" binding:"required"`
	ScheduledTime   time.Time `json:"scheduled_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,gt=0,lte=480"`
	Notes           string    `json:"notes"`
}

type UpdateSessionRequest struct {
	ScheduledTime   *time.Time `json:"scheduled_time"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,gt=0,lte=480"`
	Notes           *string    `json:"notes"`
}

type ConfirmSessionRequest struct {
	MeetingLink  string `json:"meeting_link" binding:"omitempty,meetlink"`
	GenerateMeet bool   `json:"generate_meet"`
}

type CompleteSessionRequest struct {
	ReportText      string `json:"report_text"`
	Recommendations string `json:"recommendations"`
}

func (s *CounselingService) RequestSession(ctx context.Context, caller policy.Caller, req RequestSessionRequest) (*model.CounselingSession, error) {
	if !caller.Is(model.Student) {
		return nil, util.ErrPermissionDenied
	}
	expert, err := s.UserRepo.FindByID(ctx, req.ExpertID)
	if err != nil || expert.Role != model.Expert {
		if err != nil && util.KindOf(err) != util.KindNotFound {
			return nil, err
		}
		return nil, util.ErrExpertNotFound
	}
	if req.ScheduledTime.Before(s.Now()) {
		return nil, util.NewValidation("scheduled_time must be in the future")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultSessionMinutes
	}
	session := &model.CounselingSession{
		ExpertID:        expert.ID,
		StudentID:       caller.ID,
		ScheduledTime:   req.ScheduledTime,
		DurationMinutes: duration,
		Notes:           req.Notes,
		Status:          model.SessionRequested,
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return nil, err
	}

	monitoring.CounselingSessions.WithLabelValues(string(model.SessionRequested)).Inc()
	s.notify(ctx, []uint{expert.ID}, model.NotifySessionRequested, "New counseling request",
		fmt.Sprintf("A counseling session was requested for %s.", session.ScheduledTime.Format(util.TimeFormat)))
	return session, nil
}

func (s *CounselingService) ListSessions(ctx context.Context, caller policy.Caller, status model.SessionStatus, page, limit int) ([]model.CounselingSession, int64, error) {
	return s.Repo.List(ctx, policy.SessionScope(caller), status, page, limit)
}

func (s *CounselingService) GetSession(ctx context.Context, caller policy.Caller, id uint) (*model.CounselingSession, error) {
	session, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewSession(caller, session) {
		return nil, util.ErrPermissionDenied
	}
	return session, nil
}

// UpdateSession 学生只能修改备注
func (s *CounselingService) UpdateSession(ctx context.Context, caller policy.Caller, id uint, req UpdateSessionRequest) (*model.CounselingSession, error) {
	session, err := s.GetSession(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, util.NewInvalidState("session is " + string(session.Status))
	}

	managing := policy.IsAssignedExpert(caller, session)
	if !managing && (req.ScheduledTime != nil || req.DurationMinutes != nil) {
		return nil, util.ErrStudentNotesOnly
	}

	fields := map[string]interface{}{}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.ScheduledTime != nil {
		fields["scheduled_time"] = *req.ScheduledTime
	}
	if req.DurationMinutes != nil {
		fields["duration_minutes"] = *req.DurationMinutes
	}
	if len(fields) > 0 {
		if err := s.Repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.Repo.FindByID(ctx, id)
}

// ConfirmSession requested -> confirmed，附加会议链接
func (s *CounselingService) ConfirmSession(ctx context.Context, caller policy.Caller, id uint, req ConfirmSessionRequest) (*model.CounselingSession, error) {
	session, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.IsAssignedExpert(caller, session) {
		return nil, util.ErrPermissionDenied
	}
	next, err := session.Status.Next(model.SessionEventConfirm)
	if err != nil {
		return nil, invalidTransition(err)
	}

	link := req.MeetingLink
	if req.GenerateMeet {
		if link, err = s.Meetings.CreateMeetingLink(ctx); err != nil {
			return nil, err
		}
	} else if err := s.Meetings.Validate(link); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, s.Repo, session, next, map[string]interface{}{"meeting_link": link}); err != nil {
		return nil, err
	}
	s.applied(session, next)
	session.MeetingLink = link

	s.notify(ctx, []uint{session.StudentID, session.ExpertID}, model.NotifySessionConfirmed, "Counseling session confirmed",
		fmt.Sprintf("Session on %s is confirmed. Join: %s", session.ScheduledTime.Format(util.TimeFormat), link))
	return session, nil
}

// CompleteSession confirmed -> completed，报告与状态切换在同一事务
func (s *CounselingService) CompleteSession(ctx context.Context, caller policy.Caller, id uint, req CompleteSessionRequest) (*model.CounselingSession, error) {
	session, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.IsAssignedExpert(caller, session) {
		return nil, util.ErrPermissionDenied
	}
	next, err := session.Status.Next(model.SessionEventComplete)
	if err != nil {
		return nil, invalidTransition(err)
	}

	err = s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		if err := s.transition(ctx, repo, session, next, nil); err != nil {
			return err
		}
		if req.ReportText == "" {
			return nil
		}
		report := &model.SessionReport{
			SessionID:       session.ID,
			ExpertID:        session.ExpertID,
			ReportText:      req.ReportText,
			Recommendations: req.Recommendations,
			SubmittedAt:     s.Now(),
		}
		if err := repo.CreateReport(ctx, report); err != nil {
			return err
		}
		session.Report = report
		return nil
	})
	if err != nil {
		session.Report = nil
		return nil, err
	}
	s.applied(session, next)

	s.notify(ctx, []uint{session.StudentID}, model.NotifySessionCompleted, "Counseling session completed",
		"Your counseling session has been marked as completed.")
	return session, nil
}

// CancelSession requested|confirmed -> cancelled
func (s *CounselingService) CancelSession(ctx context.Context, caller policy.Caller, id uint) (*model.CounselingSession, error) {
	session, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewSession(caller, session) {
		return nil, util.ErrPermissionDenied
	}
	next, err := session.Status.Next(model.SessionEventCancel)
	if err != nil {
		return nil, invalidTransition(err)
	}
	if err := s.transition(ctx, s.Repo, session, next, nil); err != nil {
		return nil, err
	}
	s.applied(session, next)

	recipients := make([]uint, 0, 2)
	for _, uid := range []uint{session.StudentID, session.ExpertID} {
		if uid != caller.ID {
			recipients = append(recipients, uid)
		}
	}
	s.notify(ctx, recipients, model.NotifySessionCancelled, "Counseling session cancelled",
		fmt.Sprintf("The session scheduled for %s was cancelled.", session.ScheduledTime.Format(util.TimeFormat)))
	return session, nil
}

// GenerateMeetingLink 专家临时创建会议
func (s *CounselingService) GenerateMeetingLink(ctx context.Context, caller policy.Caller) (string, error) {
	if !caller.Is(model.Expert) && !caller.IsAdmin() {
		return "", util.ErrPermissionDenied
	}
	return s.Meetings.CreateMeetingLink(ctx)
}

// transition 只做条件更新；在事务内调用时由调用方在提交后执行 applied
func (s *CounselingService) transition(ctx context.Context, repo *repository.CounselingRepository, session *model.CounselingSession, next model.SessionStatus, fields map[string]interface{}) error {
	ok, err := repo.Transition(ctx, session.ID, session.Status, next, fields)
	if err != nil {
		return err
	}
	if !ok {
		return util.NewInvalidState("session status changed concurrently")
	}
	return nil
}

// applied 状态变更已持久化后同步内存对象与指标
func (s *CounselingService) applied(session *model.CounselingSession, next model.SessionStatus) {
	session.Status = next
	monitoring.CounselingSessions.WithLabelValues(string(next)).Inc()
}

func (s *CounselingService) notify(ctx context.Context, userIDs []uint, typ model.NotificationType, title, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.NotifyWithMail(ctx, userIDs, typ, title, message)
}
