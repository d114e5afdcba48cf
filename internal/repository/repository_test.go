package repository

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/database"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	return db
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, isForeignKeyViolation(nil))

	dupes := []error{
		gorm.ErrDuplicatedKey,
		&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
		&pgconn.PgError{Code: "23505"},
		errors.New("UNIQUE constraint failed: users.email"),
	}
	for _, err := range dupes {
		assert.Equal(t, util.KindConflict, util.KindOf(translateError(fmt.Errorf("insert: %w", err))), err.Error())
	}

	fks := []error{
		gorm.ErrForeignKeyViolated,
		&mysql.MySQLError{Number: 1452},
		&pgconn.PgError{Code: "23503"},
	}
	for _, err := range fks {
		assert.Equal(t, util.KindValidation, util.KindOf(translateError(err)), err.Error())
	}

	other := errors.New("connection refused")
	assert.Equal(t, other, translateError(other))
}

func TestUserEmailUnique(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{FirstName: "A", LastName: "B", Email: "a@b.c", Role: model.Student}))
	err := repo.Create(ctx, &model.User{FirstName: "C", LastName: "D", Email: "a@b.c", Role: model.Teacher})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestIncrementStudentsStopsAtCapacity(t *testing.T) {
	repo := NewClassroomRepository(newTestDB(t))
	ctx := context.Background()

	classroom := &model.Classroom{CourseID: 1, TeacherID: 1, Title: "c", MaxStudents: 2}
	require.NoError(t, repo.Create(ctx, classroom))

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementStudents(ctx, classroom.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.IncrementStudents(ctx, classroom.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SetCapacity(ctx, classroom.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.DecrementStudents(ctx, classroom.ID))
	got, err := repo.FindByID(ctx, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStudents)
}

func TestAttemptInProgressKeyIsUnique(t *testing.T) {
	repo := NewAttemptRepository(newTestDB(t))
	ctx := context.Background()

	first := &model.ExamAttempt{ExamID: 1, StudentID: 2, Status: model.AttemptInProgress, StartTime: time.Now()}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.ExamAttempt{ExamID: 1, StudentID: 2, Status: model.AttemptInProgress, StartTime: time.Now()})
	assert.ErrorIs(t, err, util.ErrAttemptInProgress)

	now := time.Now()
	first.Status = model.AttemptCompleted
	first.EndTime = &now
	ok, err := repo.Finish(ctx, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finish(ctx, first)
	require.NoError(t, err)
	assert.False(t, ok)

	// 完成后允许再次开始
	require.NoError(t, repo.Create(ctx, &model.ExamAttempt{ExamID: 1, StudentID: 2, Status: model.AttemptInProgress, StartTime: time.Now()}))
}

func TestCreateSucceedsWithoutConstraintErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{FirstName: "A", LastName: "B", Email: "ok@b.c", Role: model.Student}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))
	assert.NotZero(t, user.ID)

	classrooms := NewClassroomRepository(db)
	classroom := &model.Classroom{CourseID: 1, TeacherID: 1, Title: "c", MaxStudents: 5}
	require.NoError(t, classrooms.Create(ctx, classroom))
	enrollment := &model.Enrollment{ClassroomID: classroom.ID, StudentID: user.ID, Status: model.EnrollmentActive, EnrolledAt: time.Now()}
	require.NoError(t, classrooms.CreateEnrollment(ctx, enrollment))
	assert.NotZero(t, enrollment.ID)

	attempt := &model.ExamAttempt{ExamID: 1, StudentID: user.ID, Status: model.AttemptInProgress, StartTime: time.Now()}
	require.NoError(t, NewAttemptRepository(db).Create(ctx, attempt))
	assert.NotZero(t, attempt.ID)
}

func TestListPaginationDefaults(t *testing.T) {
	db := newTestDB(t)
	repo := NewExamRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &model.Exam{
			ClassroomID:     1,
			CreatedBy:       1,
			Title:           fmt.Sprintf("exam %d", i),
			DurationMinutes: 30,
			TotalMarks:      10,
			Status:          model.ExamDraft,
		}))
	}
	all := func(db *gorm.DB) *gorm.DB { return db }

	// 零值过滤条件使用默认分页
	exams, total, err := repo.List(ctx, all, ExamFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, exams, 3)

	exams, total, err = repo.List(ctx, all, ExamFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, exams, 1)

	classrooms := NewClassroomRepository(db)
	require.NoError(t, classrooms.Create(ctx, &model.Classroom{CourseID: 1, TeacherID: 1, Title: "c", MaxStudents: 5}))
	list, total, err := classrooms.List(ctx, all, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
