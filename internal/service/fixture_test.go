package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/pkg/database"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	users      *repository.UserRepository
	classrooms *ClassroomService
	exams      *ExamService
	counseling *CounselingService
	notifier   *NotificationService
	now        time.Time
	seq        int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	notifier := NewNotificationService(repository.NewNotificationRepository(db), users, nil)
	classrooms := NewClassroomService(classroomRepo, users, repository.NewContentRepository(db), nil)

	f := &fixture{
		db:         db,
		users:      users,
		classrooms: classrooms,
		notifier:   notifier,
		now:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.exams = NewExamService(
		repository.NewExamRepository(db),
		repository.NewAttemptRepository(db),
		classroomRepo,
		classrooms,
		notifier,
	)
	f.exams.Now = func() time.Time { return f.now }
	f.counseling = NewCounselingService(repository.NewCounselingRepository(db), users, NewMeetingService(""), notifier)
	f.counseling.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) user(t *testing.T, role model.UserRole) policy.Caller {
	t.Helper()
	n := atomic.AddInt64(&f.seq, 1)
	u := &model.User{
		FirstName: string(role),
		LastName:  fmt.Sprint(n),
		Email:     fmt.Sprintf("%s%d@example.com", role, n),
		Role:      role,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return policy.Caller{ID: u.ID, Role: role}
}

func (f *fixture) classroom(t *testing.T, teacher policy.Caller, maxStudents int) *model.Classroom {
	t.Helper()
	c, err := f.classrooms.Create(context.Background(), teacher, CreateClassroomRequest{
		CourseID:    1,
		Title:       "Algebra",
		MaxStudents: maxStudents,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) enroll(t *testing.T, student policy.Caller, classroom *model.Classroom) {
	t.Helper()
	_, err := f.classrooms.Join(context.Background(), student, classroom.ID)
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// twoQuestionExam Q1 5分答案 A，Q2 10分答案 B，总分 15
func (f *fixture) twoQuestionExam(t *testing.T, teacher policy.Caller, classroom *model.Classroom) *model.Exam {
	t.Helper()
	exam, err := f.exams.CreateExam(context.Background(), teacher, CreateExamRequest{
		ClassroomID:     classroom.ID,
		Title:           "Midterm",
		DurationMinutes: 60,
		TotalMarks:      15,
		Questions: []QuestionRequest{
			{QuestionText: "Q1", QuestionType: model.MultipleChoice, Marks: 5, CorrectAnswer: strPtr("A")},
			{QuestionText: "Q2", QuestionType: model.MultipleChoice, Marks: 10, CorrectAnswer: strPtr("B")},
		},
	})
	require.NoError(t, err)
	require.Len(t, exam.Questions, 2)
	return exam
}

// publishedExam 在 [now-1h, now+1h] 窗口内发布，并让 student 报名
func (f *fixture) publishedExam(t *testing.T) (*model.Exam, policy.Caller, policy.Caller) {
	t.Helper()
	teacher := f.user(t, model.Teacher)
	student := f.user(t, model.Student)
	classroom := f.classroom(t, teacher, 30)
	f.enroll(t, student, classroom)

	exam := f.twoQuestionExam(t, teacher, classroom)
	start, end := f.now.Add(-time.Hour), f.now.Add(time.Hour)
	published, err := f.exams.PublishExam(context.Background(), teacher, exam.ID, PublishExamRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	published.Questions = exam.Questions
	return published, teacher, student
}
