package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"edu_platform_backend/pkg/tracing"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamService struct {
	ExamRepo      *repository.ExamRepository
	AttemptRepo   *repository.AttemptRepository
	ClassroomRepo *repository.ClassroomRepository
	Enrollment    EnrollmentChecker
	Notifier      *NotificationService
	Now           func() time.Time
}

func NewExamService(
	examRepo *repository.ExamRepository,
	attemptRepo *repository.AttemptRepository,
	classroomRepo *repository.ClassroomRepository,
	enrollment EnrollmentChecker,
	notifier *NotificationService,
) *ExamService {
	return &ExamService{
		ExamRepo:      examRepo,
		AttemptRepo:   attemptRepo,
		ClassroomRepo: classroomRepo,
		Enrollment:    enrollment,
		Notifier:      notifier,
		Now:           time.Now,
	}
}

type QuestionRequest struct {
	QuestionText  string             `json:"question_text" binding:"required"`
	QuestionType  model.QuestionType `json:"question_type" binding:"required,questiontype"`
	Marks         int                `json:"marks" binding:"required,gt=0"`
	Options       json.RawMessage    `json:"options" swaggertype:"array,string"`
	CorrectAnswer *string            `json:"correct_answer"`
	Explanation   string             `json:"explanation"`
	Position      int                `json:"position"`
}

type CreateExamRequest struct {
	ClassroomID     uint              `json:"classroom_id" binding:"required"`
	Title           string            `json:"title" binding:"required,max=255"`
	Description     string            `json:"description"`
	Instructions    string            `json:"instructions"`
	DurationMinutes int               `json:"duration_minutes" binding:"required,gt=0"`
	TotalMarks      int               `json:"total_marks" binding:"required,gt=0"`
	PassingMarks    *int              `json:"passing_marks" binding:"omitempty,gte=0"`
	StartTime       *time.Time        `json:"start_time"`
	EndTime         *time.Time        `json:"end_time"`
	Questions       []QuestionRequest `json:"questions" binding:"dive"`
}

// UpdateExamRequest 字段为空表示不修改；Questions 非空时整体替换题目
type UpdateExamRequest struct {
	Title           *string            `json:"title" binding:"omitempty,max=255"`
	Description     *string            `json:"description"`
	Instructions    *string            `json:"instructions"`
	DurationMinutes *int               `json:"duration_minutes" binding:"omitempty,gt=0"`
	TotalMarks      *int               `json:"total_marks" binding:"omitempty,gt=0"`
	PassingMarks    *int               `json:"passing_marks" binding:"omitempty,gte=0"`
	StartTime       *time.Time         `json:"start_time"`
	EndTime         *time.Time         `json:"end_time"`
	Questions       *[]QuestionRequest `json:"questions" binding:"omitempty,dive"`
}

type PublishExamRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type AnswerInput struct {
	QuestionID uint    `json:"question_id" binding:"required"`
	Answer     *string `json:"answer"`
}

type SubmitExamRequest struct {
	Answers []AnswerInput `json:"answers" binding:"dive"`
}

func (r QuestionRequest) toModel() (model.Question, error) {
	if !r.QuestionType.Valid() {
		return model.Question{}, util.NewValidation("invalid question_type: " + string(r.QuestionType))
	}
	if r.Marks <= 0 {
		return model.Question{}, util.NewValidation("marks must be greater than 0")
	}
	q := model.Question{
		QuestionText:  r.QuestionText,
		QuestionType:  r.QuestionType,
		Marks:         r.Marks,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
		Position:      r.Position,
	}
	if len(r.Options) > 0 && string(r.Options) != "null" {
		q.Options = datatypes.JSON(r.Options)
	}
	return q, nil
}

func toQuestions(reqs []QuestionRequest) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(reqs))
	for i, r := range reqs {
		q, err := r.toModel()
		if err != nil {
			return nil, err
		}
		if q.Position == 0 {
			q.Position = i + 1
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func validateWindow(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return util.NewValidation("end_time must be after start_time")
	}
	return nil
}

func validateMarks(totalMarks, durationMinutes int, passingMarks *int) error {
	if totalMarks <= 0 {
		return util.NewValidation("total_marks must be greater than 0")
	}
	if durationMinutes <= 0 {
		return util.NewValidation("duration_minutes must be greater than 0")
	}
	if passingMarks != nil && (*passingMarks < 0 || *passingMarks > totalMarks) {
		return util.NewValidation("passing_marks must be between 0 and total_marks")
	}
	return nil
}

func invalidTransition(err error) error {
	var te *model.TransitionError
	if errors.As(err, &te) {
		return util.NewInvalidState(te.Error())
	}
	return err
}

func (s *ExamService) CreateExam(ctx context.Context, caller policy.Caller, req CreateExamRequest) (*model.Exam, error) {
	if !caller.Is(model.Teacher) && !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}

	classroom, err := s.ClassroomRepo.FindByID(ctx, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageClassroom(caller, classroom) {
		return nil, util.ErrPermissionDenied
	}

	if err := validateMarks(req.TotalMarks, req.DurationMinutes, req.PassingMarks); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	questions, err := toQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		ClassroomID:     classroom.ID,
		CreatedBy:       caller.ID,
		Title:           req.Title,
		Description:     req.Description,
		Instructions:    req.Instructions,
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      req.TotalMarks,
		PassingMarks:    req.PassingMarks,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Status:          model.ExamDraft,
		IsPublished:     false,
		Questions:       questions,
	}

	// 考试与题目在同一事务内写入
	if err := s.ExamRepo.Create(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) ListExams(ctx context.Context, caller policy.Caller, filter repository.ExamFilter) ([]model.Exam, int64, error) {
	return s.ExamRepo.List(ctx, policy.ExamScope(caller), filter)
}

// ListClassroomExams 班级下对调用者可见的考试
func (s *ExamService) ListClassroomExams(ctx context.Context, caller policy.Caller, classroomID uint, filter repository.ExamFilter) ([]model.Exam, int64, error) {
	if _, err := s.ClassroomRepo.FindByID(ctx, classroomID); err != nil {
		return nil, 0, err
	}
	filter.ClassroomID = classroomID
	return s.ExamRepo.List(ctx, policy.ExamScope(caller), filter)
}

// visibleExam 考试存在且在调用者的查询范围内
func (s *ExamService) visibleExam(ctx context.Context, caller policy.Caller, id uint) (*model.Exam, error) {
	exam, err := s.ExamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	visible, err := s.ExamRepo.Visible(ctx, id, policy.ExamScope(caller))
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, util.ErrPermissionDenied
	}
	return exam, nil
}

// GetExam 学生在完成作答前看不到标准答案与解析
func (s *ExamService) GetExam(ctx context.Context, caller policy.Caller, id uint) (*model.Exam, error) {
	if _, err := s.visibleExam(ctx, caller, id); err != nil {
		return nil, err
	}
	exam, err := s.ExamRepo.FindWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.redactForStudent(ctx, caller, exam.ID, exam.Questions); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) GetQuestions(ctx context.Context, caller policy.Caller, id uint) ([]model.Question, error) {
	if _, err := s.visibleExam(ctx, caller, id); err != nil {
		return nil, err
	}
	questions, err := s.ExamRepo.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.redactForStudent(ctx, caller, id, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *ExamService) redactForStudent(ctx context.Context, caller policy.Caller, examID uint, questions []model.Question) error {
	if !caller.Is(model.Student) {
		return nil
	}
	completed, err := s.AttemptRepo.HasCompleted(ctx, examID, caller.ID)
	if err != nil {
		return err
	}
	if completed {
		return nil
	}
	for i := range questions {
		questions[i].CorrectAnswer = nil
		questions[i].Explanation = ""
	}
	return nil
}

// managedExam 加载考试并校验调用者是管理员或创建者
func (s *ExamService) managedExam(ctx context.Context, caller policy.Caller, id uint) (*model.Exam, error) {
	exam, err := s.ExamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageExam(caller, exam) {
		return nil, util.ErrPermissionDenied
	}
	return exam, nil
}

// ensureEditable 已发布的考试不可再编辑
func ensureEditable(exam *model.Exam) error {
	if exam.IsPublished {
		return util.ErrExamAlreadyPublished
	}
	if exam.Status == model.ExamCancelled {
		return util.ErrExamCancelled
	}
	return nil
}

func (s *ExamService) UpdateExam(ctx context.Context, caller policy.Caller, id uint, req UpdateExamRequest) (*model.Exam, error) {
	if _, err := s.managedExam(ctx, caller, id); err != nil {
		return nil, err
	}

	var questions []model.Question
	if req.Questions != nil {
		var err error
		if questions, err = toQuestions(*req.Questions); err != nil {
			return nil, err
		}
	}

	err := s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx)

		// 加锁后复查，避免与发布并发
		exam, err := exams.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureEditable(exam); err != nil {
			return err
		}

		if req.Title != nil {
			exam.Title = *req.Title
		}
		if req.Description != nil {
			exam.Description = *req.Description
		}
		if req.Instructions != nil {
			exam.Instructions = *req.Instructions
		}
		if req.DurationMinutes != nil {
			exam.DurationMinutes = *req.DurationMinutes
		}
		if req.TotalMarks != nil {
			exam.TotalMarks = *req.TotalMarks
		}
		if req.PassingMarks != nil {
			exam.PassingMarks = req.PassingMarks
		}
		if req.StartTime != nil {
			exam.StartTime = req.StartTime
		}
		if req.EndTime != nil {
			exam.EndTime = req.EndTime
		}
		if err := validateMarks(exam.TotalMarks, exam.DurationMinutes, exam.PassingMarks); err != nil {
			return err
		}
		if err := validateWindow(exam.StartTime, exam.EndTime); err != nil {
			return err
		}

		if err := exams.Update(ctx, exam); err != nil {
			return err
		}
		if req.Questions != nil {
			return exams.ReplaceQuestions(ctx, id, questions)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ExamRepo.FindWithQuestions(ctx, id)
}

func (s *ExamService) DeleteExam(ctx context.Context, caller policy.Caller, id uint) error {
	if _, err := s.managedExam(ctx, caller, id); err != nil {
		return err
	}
	return s.ExamRepo.Delete(ctx, id)
}

func (s *ExamService) AddQuestion(ctx context.Context, caller policy.Caller, examID uint, req QuestionRequest) (*model.Question, error) {
	if _, err := s.managedExam(ctx, caller, examID); err != nil {
		return nil, err
	}
	question, err := req.toModel()
	if err != nil {
		return nil, err
	}
	question.ExamID = examID

	err = s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx)
		if _, err := s.lockEditable(ctx, exams, examID); err != nil {
			return err
		}
		if question.Position == 0 {
			count, err := exams.CountQuestions(ctx, examID)
			if err != nil {
				return err
			}
			question.Position = int(count) + 1
		}
		return exams.AddQuestion(ctx, &question)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (s *ExamService) DeleteQuestion(ctx context.Context, caller policy.Caller, examID, questionID uint) error {
	if _, err := s.managedExam(ctx, caller, examID); err != nil {
		return err
	}
	return s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx)
		if _, err := s.lockEditable(ctx, exams, examID); err != nil {
			return err
		}
		return exams.DeleteQuestion(ctx, examID, questionID)
	})
}

// lockEditable 锁定考试行并确认仍可编辑，题目变更与发布互斥
func (s *ExamService) lockEditable(ctx context.Context, exams *repository.ExamRepository, id uint) (*model.Exam, error) {
	exam, err := exams.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureEditable(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// PublishExam draft -> scheduled，发布后题目冻结
func (s *ExamService) PublishExam(ctx context.Context, caller policy.Caller, id uint, req PublishExamRequest) (*model.Exam, error) {
	if _, err := s.managedExam(ctx, caller, id); err != nil {
		return nil, err
	}

	var (
		exam       *model.Exam
		next       model.ExamStatus
		start, end *time.Time
	)
	err := s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx)
		var err error
		if exam, err = s.lockEditable(ctx, exams, id); err != nil {
			return err
		}
		if next, err = exam.Status.Next(model.ExamEventPublish); err != nil {
			return invalidTransition(err)
		}

		count, err := exams.CountQuestions(ctx, id)
		if err != nil {
			return err
		}
		if count == 0 {
			return util.ErrExamNoQuestions
		}

		start, end = exam.StartTime, exam.EndTime
		if req.StartTime != nil {
			start = req.StartTime
		}
		if req.EndTime != nil {
			end = req.EndTime
		}
		if err := validateWindow(start, end); err != nil {
			return err
		}

		ok, err := exams.Transition(ctx, id, exam.Status, next, map[string]interface{}{
			"is_published": true,
			"start_time":   start,
			"end_time":     end,
		})
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrExamAlreadyPublished
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	exam.Status = next
	exam.IsPublished = true
	exam.StartTime = start
	exam.EndTime = end

	s.notifyClassroom(ctx, exam.ClassroomID, model.NotifyExamPublished,
		"New exam published",
		fmt.Sprintf("%s has been published%s.", exam.Title, windowText(start, end)))
	return exam, nil
}

func windowText(start, end *time.Time) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf(" (%s - %s)", start.Format(util.TimeFormat), end.Format(util.TimeFormat))
	case start != nil:
		return " (opens " + start.Format(util.TimeFormat) + ")"
	case end != nil:
		return " (closes " + end.Format(util.TimeFormat) + ")"
	}
	return ""
}

// CancelExam 管理员取消未结束的考试，进行中的作答标记为 abandoned
func (s *ExamService) CancelExam(ctx context.Context, caller policy.Caller, id uint) (*model.Exam, error) {
	if !caller.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}

	var exam *model.Exam
	var abandoned int64
	err := s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx)
		var err error
		exam, err = exams.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := exam.Status.Next(model.ExamEventCancel)
		if err != nil {
			return invalidTransition(err)
		}
		ok, err := exams.Transition(ctx, id, exam.Status, next, nil)
		if err != nil {
			return err
		}
		if !ok {
			return util.NewInvalidState("exam status changed concurrently")
		}
		exam.Status = next

		abandoned, err = s.AttemptRepo.WithTx(tx).AbandonInProgress(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if abandoned > 0 {
		monitoring.ExamAttempts.WithLabelValues("abandoned").Add(float64(abandoned))
	}
	if exam.IsPublished {
		s.notifyClassroom(ctx, exam.ClassroomID, model.NotifyExamCancelled,
			"Exam cancelled", exam.Title+" has been cancelled.")
	}
	return exam, nil
}

// StartExam 依次校验：存在、已发布、时间窗口、报名、无进行中作答
func (s *ExamService) StartExam(ctx context.Context, caller policy.Caller, examID uint) (attempt *model.ExamAttempt, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamService.StartExam")
	span.SetAttributes(attribute.Int64("exam.id", int64(examID)), attribute.Int64("student.id", int64(caller.ID)))
	defer func() {
		if err != nil {
			monitoring.ExamAttempts.WithLabelValues("rejected").Inc()
		}
		tracing.EndSpan(span, err)
	}()

	if !caller.Is(model.Student) {
		return nil, util.ErrPermissionDenied
	}

	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamCancelled {
		return nil, util.ErrExamCancelled
	}
	if !exam.IsPublished {
		return nil, util.ErrExamNotPublished
	}
	now := s.Now()
	if !exam.WithinWindow(now) {
		return nil, util.ErrOutsideExamWindow
	}
	enrolled, err := s.Enrollment.IsEnrolled(ctx, exam.ClassroomID, caller.ID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	err = s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁定报名行，串行化同一学生的并发开考
		if _, err := s.ClassroomRepo.WithTx(tx).LockActiveEnrollment(ctx, exam.ClassroomID, caller.ID); err != nil {
			return err
		}
		attempts := s.AttemptRepo.WithTx(tx)
		count, err := attempts.CountInProgress(ctx, examID, caller.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return util.ErrAttemptInProgress
		}

		attempt = &model.ExamAttempt{
			ExamID:    examID,
			StudentID: caller.ID,
			Status:    model.AttemptInProgress,
			StartTime: now,
		}
		// 唯一键兜底，冲突映射为 Conflict
		return attempts.Create(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	monitoring.ExamAttempts.WithLabelValues("started").Inc()
	return attempt, nil
}

// Grade 逐题精确匹配评分；未作答的题目记为 null 且不得分
func Grade(exam *model.Exam, questions []model.Question, answers []AnswerInput) ([]model.StudentAnswer, int, float64) {
	submitted := make(map[uint]*string, len(answers))
	for _, a := range answers {
		// 同一题重复提交时以第一次为准
		if _, seen := submitted[a.QuestionID]; !seen {
			submitted[a.QuestionID] = a.Answer
		}
	}

	rows := make([]model.StudentAnswer, 0, len(questions))
	score := 0
	for _, q := range questions {
		answer := submitted[q.ID]
		correct := answer != nil && q.CorrectAnswer != nil && *answer == *q.CorrectAnswer
		awarded := 0
		if correct {
			awarded = q.Marks
		}
		score += awarded
		rows = append(rows, model.StudentAnswer{
			QuestionID:   q.ID,
			Answer:       answer,
			IsCorrect:    correct,
			MarksAwarded: awarded,
		})
	}

	return rows, score, Percentage(score, exam.TotalMarks)
}

// Percentage 保留两位小数；总分非正时为 0
func Percentage(score, totalMarks int) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(totalMarks)*10000) / 100
}

// SubmitExam 答案写入与作答状态切换在同一事务内完成
func (s *ExamService) SubmitExam(ctx context.Context, caller policy.Caller, examID uint, req SubmitExamRequest) (attempt *model.ExamAttempt, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamService.SubmitExam")
	span.SetAttributes(attribute.Int64("exam.id", int64(examID)), attribute.Int64("student.id", int64(caller.ID)))
	defer func() {
		if err != nil {
			monitoring.ExamAttempts.WithLabelValues("rejected").Inc()
		}
		tracing.EndSpan(span, err)
	}()

	if !caller.Is(model.Student) {
		return nil, util.ErrPermissionDenied
	}

	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamCancelled {
		return nil, util.ErrExamCancelled
	}
	now := s.Now()
	if !exam.WithinWindow(now) {
		return nil, util.ErrOutsideExamWindow
	}
	enrolled, err := s.Enrollment.IsEnrolled(ctx, exam.ClassroomID, caller.ID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	err = s.ExamRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)

		var err error
		attempt, err = attempts.LockInProgress(ctx, examID, caller.ID)
		if err != nil {
			return err
		}
		next, err := attempt.Status.Next(model.AttemptEventSubmit)
		if err != nil {
			return util.ErrNoOngoingAttempt
		}

		questions, err := s.ExamRepo.WithTx(tx).ListQuestions(ctx, examID)
		if err != nil {
			return err
		}
		answers, score, percentage := Grade(exam, questions, req.Answers)
		for i := range answers {
			answers[i].AttemptID = attempt.ID
		}
		if err := attempts.CreateAnswers(ctx, answers); err != nil {
			return err
		}

		attempt.Status = next
		attempt.EndTime = &now
		attempt.Score = score
		attempt.Percentage = percentage
		if exam.PassingMarks != nil {
			passed := score >= *exam.PassingMarks
			attempt.Passed = &passed
		}
		ok, err := attempts.Finish(ctx, attempt)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNoOngoingAttempt
		}
		attempt.InProgressKey = nil
		attempt.Answers = answers
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ExamAttempts.WithLabelValues("submitted").Inc()
	monitoring.ExamScore.Observe(attempt.Percentage)
	span.SetAttributes(attribute.Float64("attempt.percentage", attempt.Percentage))

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, []uint{caller.ID}, model.NotifyExamGraded, "Exam graded",
			fmt.Sprintf("%s: %d/%d (%.2f%%)", exam.Title, attempt.Score, exam.TotalMarks, attempt.Percentage))
	}
	return attempt, nil
}

// ListAttempts 管理者看全部作答，学生只看自己的
func (s *ExamService) ListAttempts(ctx context.Context, caller policy.Caller, examID uint) ([]model.ExamAttempt, error) {
	exam, err := s.attemptViewer(ctx, caller, examID)
	if err != nil {
		return nil, err
	}
	return s.AttemptRepo.ListByExam(ctx, examID, policy.AttemptScope(caller, exam), "", false)
}

// Results 已完成作答及逐题得分
func (s *ExamService) Results(ctx context.Context, caller policy.Caller, examID uint) ([]model.ExamAttempt, error) {
	exam, err := s.attemptViewer(ctx, caller, examID)
	if err != nil {
		return nil, err
	}
	return s.AttemptRepo.ListByExam(ctx, examID, policy.AttemptScope(caller, exam), model.AttemptCompleted, true)
}

func (s *ExamService) attemptViewer(ctx context.Context, caller policy.Caller, examID uint) (*model.Exam, error) {
	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if policy.CanManageExam(caller, exam) {
		return exam, nil
	}
	if caller.Is(model.Student) {
		return s.visibleExam(ctx, caller, examID)
	}
	return nil, util.ErrPermissionDenied
}

// SweepWindows 按时间窗口推进考试状态，不触碰作答
func (s *ExamService) SweepWindows(ctx context.Context) (opened, closed int, err error) {
	now := s.Now()

	toOpen, err := s.ExamRepo.DueToOpen(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, exam := range toOpen {
		next, err := exam.Status.Next(model.ExamEventOpen)
		if err != nil {
			continue
		}
		ok, err := s.ExamRepo.Transition(ctx, exam.ID, exam.Status, next, nil)
		if err != nil {
			return opened, closed, err
		}
		if ok {
			opened++
		}
	}

	toClose, err := s.ExamRepo.DueToClose(ctx, now)
	if err != nil {
		return opened, closed, err
	}
	for _, exam := range toClose {
		next, err := exam.Status.Next(model.ExamEventClose)
		if err != nil {
			continue
		}
		ok, err := s.ExamRepo.Transition(ctx, exam.ID, exam.Status, next, nil)
		if err != nil {
			return opened, closed, err
		}
		if ok {
			closed++
		}
	}
	return opened, closed, nil
}

// RunSweeper 周期性执行 SweepWindows，直到 ctx 结束
func (s *ExamService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opened, closed, err := s.SweepWindows(ctx)
			if err != nil {
				logger.Log.Error("Exam window sweep failed", zap.Error(err))
				continue
			}
			if opened > 0 || closed > 0 {
				logger.Log.Info("Exam window sweep", zap.Int("opened", opened), zap.Int("closed", closed))
			}
		}
	}
}

func (s *ExamService) notifyClassroom(ctx context.Context, classroomID uint, typ model.NotificationType, title, message string) {
	if s.Notifier == nil {
		return
	}
	studentIDs, err := s.ClassroomRepo.ActiveStudentIDs(ctx, classroomID)
	if err != nil {
		logger.Log.Error("Failed to load classroom students", zap.Uint("classroom_id", classroomID), zap.Error(err))
		return
	}
	s.Notifier.NotifyWithMail(ctx, studentIDs, typ, title, message)
}
