package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinFullClassroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 1)

	f.enroll(t, f.user(t, model.Student), classroom)

	late := f.user(t, model.Student)
	_, err := f.classrooms.Join(ctx, late, classroom.ID)
	assert.ErrorIs(t, err, util.ErrClassroomFull)
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	enrolled, err := f.classrooms.IsEnrolled(ctx, classroom.ID, late.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	reloaded, err := f.classrooms.Repo.FindByID(ctx, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentStudents)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 3)
	f.enroll(t, f.user(t, model.Student), classroom)
	f.enroll(t, f.user(t, model.Student), classroom)

	const workers = 6
	students := make([]policy.Caller, 0, workers)
	for i := 0; i < workers; i++ {
		students = append(students, f.user(t, model.Student))
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		full   int
	)
	for _, s := range students {
		wg.Add(1)
		go func(s policy.Caller) {
			defer wg.Done()
			_, err := f.classrooms.Join(ctx, s, classroom.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case util.KindOf(err) == util.KindInvalidState:
				full++
			}
		}(s)
	}
	wg.Wait()

	assert.Equal(t, 1, joined)
	assert.Equal(t, workers-1, full)

	reloaded, err := f.classrooms.Repo.FindByID(ctx, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.CurrentStudents)
}

func TestJoinLeaveRejoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	student := f.user(t, model.Student)
	classroom := f.classroom(t, teacher, 5)

	first, err := f.classrooms.Join(ctx, student, classroom.ID)
	require.NoError(t, err)

	_, err = f.classrooms.Join(ctx, student, classroom.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	require.NoError(t, f.classrooms.Leave(ctx, student, classroom.ID))
	reloaded, err := f.classrooms.Repo.FindByID(ctx, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentStudents)

	err = f.classrooms.Leave(ctx, student, classroom.ID)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	// 重新加入复用原报名记录
	again, err := f.classrooms.Join(ctx, student, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, model.EnrollmentActive, again.Status)

	_, err = f.classrooms.Join(ctx, teacher, classroom.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestClassroomCapacityUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 5)
	f.enroll(t, f.user(t, model.Student), classroom)
	f.enroll(t, f.user(t, model.Student), classroom)

	one := 1
	_, err := f.classrooms.Update(ctx, teacher, classroom.ID, UpdateClassroomRequest{MaxStudents: &one})
	assert.ErrorIs(t, err, util.ErrCapacityTooSmall)

	two := 2
	updated, err := f.classrooms.Update(ctx, teacher, classroom.ID, UpdateClassroomRequest{MaxStudents: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxStudents)

	other := f.user(t, model.Teacher)
	_, err = f.classrooms.Update(ctx, other, classroom.ID, UpdateClassroomRequest{MaxStudents: &two})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestInactiveClassroomRejectsJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 5)

	inactive := false
	_, err := f.classrooms.Update(ctx, teacher, classroom.ID, UpdateClassroomRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.classrooms.Join(ctx, f.user(t, model.Student), classroom.ID)
	assert.ErrorIs(t, err, util.ErrClassroomInactive)
}

func TestClassroomCreateAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	admin := f.user(t, model.Admin)
	student := f.user(t, model.Student)
	stranger := f.user(t, model.Student)

	_, err := f.classrooms.Create(ctx, student, CreateClassroomRequest{CourseID: 1, Title: "X", MaxStudents: 3})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.classrooms.Create(ctx, admin, CreateClassroomRequest{CourseID: 1, Title: "X", MaxStudents: 3})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = f.classrooms.Create(ctx, admin, CreateClassroomRequest{CourseID: 1, TeacherID: student.ID, Title: "X", MaxStudents: 3})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	classroom, err := f.classrooms.Create(ctx, admin, CreateClassroomRequest{CourseID: 1, TeacherID: teacher.ID, Title: "X", MaxStudents: 3})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, classroom.TeacherID)

	f.enroll(t, student, classroom)

	_, err = f.classrooms.Get(ctx, student, classroom.ID)
	assert.NoError(t, err)
	_, err = f.classrooms.Get(ctx, stranger, classroom.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	list, total, err := f.classrooms.List(ctx, stranger, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, list)

	_, total, err = f.classrooms.List(ctx, teacher, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	students, err := f.classrooms.Students(ctx, teacher, classroom.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].StudentID)

	_, err = f.classrooms.Students(ctx, student, classroom.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestDeleteClassroomRemovesExams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, student := f.publishedExam(t)

	_, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)
	_, err = f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "B")})
	require.NoError(t, err)

	require.NoError(t, f.classrooms.Delete(ctx, teacher, exam.ClassroomID))

	_, err = f.exams.ExamRepo.FindByID(ctx, exam.ID)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	var answers int64
	require.NoError(t, f.db.Model(&model.StudentAnswer{}).Count(&answers).Error)
	assert.Zero(t, answers)
}
