package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answersFor(exam *model.Exam, values ...string) []AnswerInput {
	answers := make([]AnswerInput, 0, len(values))
	for i, v := range values {
		answers = append(answers, AnswerInput{QuestionID: exam.Questions[i].ID, Answer: strPtr(v)})
	}
	return answers
}

func TestGradeAndPercentage(t *testing.T) {
	exam := &model.Exam{TotalMarks: 15}
	questions := []model.Question{
		{BaseModel: model.BaseModel{ID: 1}, Marks: 5, CorrectAnswer: strPtr("A")},
		{BaseModel: model.BaseModel{ID: 2}, Marks: 10, CorrectAnswer: strPtr("B")},
		{BaseModel: model.BaseModel{ID: 3}, Marks: 3},
	}

	rows, score, pct := Grade(exam, questions, []AnswerInput{
		{QuestionID: 1, Answer: strPtr("A")},
		{QuestionID: 1, Answer: strPtr("Z")},
		{QuestionID: 2, Answer: strPtr("C")},
		{QuestionID: 3, Answer: strPtr("anything")},
		{QuestionID: 99, Answer: strPtr("A")},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, 5, score)
	assert.Equal(t, 33.33, pct)
	assert.True(t, rows[0].IsCorrect)
	assert.Equal(t, 5, rows[0].MarksAwarded)
	assert.False(t, rows[1].IsCorrect)
	// 无标准答案的题目永远不得分
	assert.False(t, rows[2].IsCorrect)

	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 100.0, Percentage(15, 15))
	assert.Equal(t, 66.67, Percentage(2, 3))
}

func TestSubmitScoresExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, _, student := f.publishedExam(t)

	_, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)

	attempt, err := f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "C")})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, attempt.Status)
	assert.Equal(t, 5, attempt.Score)
	assert.Equal(t, 33.33, attempt.Percentage)
	assert.NotNil(t, attempt.EndTime)
	assert.Nil(t, attempt.Passed)

	var stored []model.StudentAnswer
	require.NoError(t, f.db.Where("attempt_id = ?", attempt.ID).Order("question_id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].IsCorrect)
	assert.Equal(t, 0, stored[1].MarksAwarded)

	var notes []model.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", student.ID, model.NotifyExamGraded).Find(&notes).Error)
	assert.Len(t, notes, 1)
}

func TestSubmitStoresMissingAnswerAsNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, _, student := f.publishedExam(t)

	_, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)

	attempt, err := f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A")})
	require.NoError(t, err)
	assert.Equal(t, 5, attempt.Score)

	var missing model.StudentAnswer
	require.NoError(t, f.db.Where("attempt_id = ? AND question_id = ?", attempt.ID, exam.Questions[1].ID).First(&missing).Error)
	assert.Nil(t, missing.Answer)
	assert.False(t, missing.IsCorrect)
	assert.Equal(t, 0, missing.MarksAwarded)
}

func TestSubmitTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, _, student := f.publishedExam(t)

	_, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)
	first, err := f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "B")})
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.Percentage)

	_, err = f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "Z", "Z")})
	assert.ErrorIs(t, err, util.ErrNoOngoingAttempt)
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	var reloaded model.ExamAttempt
	require.NoError(t, f.db.First(&reloaded, first.ID).Error)
	assert.Equal(t, 15, reloaded.Score)
	assert.Nil(t, reloaded.InProgressKey)
}

func TestSubmitSetsPassed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	student := f.user(t, model.Student)
	classroom := f.classroom(t, teacher, 10)
	f.enroll(t, student, classroom)

	exam, err := f.exams.CreateExam(ctx, teacher, CreateExamRequest{
		ClassroomID:     classroom.ID,
		Title:           "Quiz",
		DurationMinutes: 10,
		TotalMarks:      10,
		PassingMarks:    intPtr(6),
		Questions: []QuestionRequest{
			{QuestionText: "2+2", QuestionType: model.ShortAnswer, Marks: 10, CorrectAnswer: strPtr("4")},
		},
	})
	require.NoError(t, err)
	_, err = f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{})
	require.NoError(t, err)

	_, err = f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)
	attempt, err := f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "4")})
	require.NoError(t, err)
	require.NotNil(t, attempt.Passed)
	assert.True(t, *attempt.Passed)
}

func TestPublishRequiresQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 10)

	exam, err := f.exams.CreateExam(ctx, teacher, CreateExamRequest{
		ClassroomID:     classroom.ID,
		Title:           "Empty",
		DurationMinutes: 30,
		TotalMarks:      10,
	})
	require.NoError(t, err)

	_, err = f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{})
	assert.ErrorIs(t, err, util.ErrExamNoQuestions)

	reloaded, err := f.exams.ExamRepo.FindByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamDraft, reloaded.Status)
	assert.False(t, reloaded.IsPublished)
}

func TestPublishedExamIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, _ := f.publishedExam(t)
	assert.Equal(t, model.ExamScheduled, exam.Status)
	assert.True(t, exam.IsPublished)

	title := "Renamed"
	_, err := f.exams.UpdateExam(ctx, teacher, exam.ID, UpdateExamRequest{Title: &title})
	assert.ErrorIs(t, err, util.ErrExamAlreadyPublished)

	_, err = f.exams.AddQuestion(ctx, teacher, exam.ID, QuestionRequest{QuestionText: "Q3", QuestionType: model.TrueFalse, Marks: 1})
	assert.ErrorIs(t, err, util.ErrExamAlreadyPublished)

	err = f.exams.DeleteQuestion(ctx, teacher, exam.ID, exam.Questions[0].ID)
	assert.ErrorIs(t, err, util.ErrExamAlreadyPublished)

	_, err = f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{})
	assert.ErrorIs(t, err, util.ErrExamAlreadyPublished)

	count, err := f.exams.ExamRepo.CountQuestions(ctx, exam.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestPublishRacesLastQuestionDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 10)

	for i := 0; i < 5; i++ {
		exam := f.twoQuestionExam(t, teacher, classroom)
		require.NoError(t, f.exams.DeleteQuestion(ctx, teacher, exam.ID, exam.Questions[0].ID))
		last := exam.Questions[1].ID

		var (
			wg                    sync.WaitGroup
			publishErr, deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, publishErr = f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{})
		}()
		go func() {
			defer wg.Done()
			deleteErr = f.exams.DeleteQuestion(ctx, teacher, exam.ID, last)
		}()
		wg.Wait()

		reloaded, err := f.exams.ExamRepo.FindByID(ctx, exam.ID)
		require.NoError(t, err)
		count, err := f.exams.ExamRepo.CountQuestions(ctx, exam.ID)
		require.NoError(t, err)

		// 两者恰有一个成功，且已发布的考试至少有一道题
		if publishErr == nil {
			assert.ErrorIs(t, deleteErr, util.ErrExamAlreadyPublished)
			assert.True(t, reloaded.IsPublished)
			assert.EqualValues(t, 1, count)
		} else {
			assert.ErrorIs(t, publishErr, util.ErrExamNoQuestions)
			assert.NoError(t, deleteErr)
			assert.False(t, reloaded.IsPublished)
			assert.Zero(t, count)
		}
	}
}

func TestUpdateDraftReplacesQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 10)
	exam := f.twoQuestionExam(t, teacher, classroom)

	title := "Final"
	questions := []QuestionRequest{
		{QuestionText: "Only", QuestionType: model.Essay, Marks: 15},
	}
	updated, err := f.exams.UpdateExam(ctx, teacher, exam.ID, UpdateExamRequest{Title: &title, Questions: &questions})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, "Only", updated.Questions[0].QuestionText)

	other := f.user(t, model.Teacher)
	_, err = f.exams.UpdateExam(ctx, other, exam.ID, UpdateExamRequest{Title: &title})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	zero := 0
	_, err = f.exams.UpdateExam(ctx, teacher, exam.ID, UpdateExamRequest{TotalMarks: &zero})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestCreateExamAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, model.Teacher)
	other := f.user(t, model.Teacher)
	student := f.user(t, model.Student)
	admin := f.user(t, model.Admin)
	classroom := f.classroom(t, owner, 10)

	req := CreateExamRequest{ClassroomID: classroom.ID, Title: "T", DurationMinutes: 10, TotalMarks: 10}

	_, err := f.exams.CreateExam(ctx, other, req)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = f.exams.CreateExam(ctx, student, req)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = f.exams.CreateExam(ctx, admin, req)
	assert.NoError(t, err)

	req.ClassroomID = 9999
	_, err = f.exams.CreateExam(ctx, owner, req)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	req.ClassroomID = classroom.ID
	req.TotalMarks = 0
	_, err = f.exams.CreateExam(ctx, owner, req)
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	req.TotalMarks = 10
	start := f.now
	end := f.now.Add(-time.Minute)
	req.StartTime, req.EndTime = &start, &end
	_, err = f.exams.CreateExam(ctx, owner, req)
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestStartExamPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	student := f.user(t, model.Student)
	outsider := f.user(t, model.Student)
	classroom := f.classroom(t, teacher, 10)
	f.enroll(t, student, classroom)
	exam := f.twoQuestionExam(t, teacher, classroom)

	_, err := f.exams.StartExam(ctx, student, 4242)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	_, err = f.exams.StartExam(ctx, student, exam.ID)
	assert.ErrorIs(t, err, util.ErrExamNotPublished)

	_, err = f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{})
	require.NoError(t, err)

	_, err = f.exams.StartExam(ctx, teacher, exam.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.exams.StartExam(ctx, outsider, exam.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	attempt, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)

	_, err = f.exams.StartExam(ctx, student, exam.ID)
	assert.ErrorIs(t, err, util.ErrAttemptInProgress)
	assert.Equal(t, util.KindConflict, util.KindOf(err))

	// 提交后允许再次作答
	_, err = f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{})
	require.NoError(t, err)
	_, err = f.exams.StartExam(ctx, student, exam.ID)
	assert.NoError(t, err)
}

func TestExamWindowBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 10)
	exam := f.twoQuestionExam(t, teacher, classroom)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	_, err := f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"before start", start.Add(-time.Second), false},
		{"at start", start, true},
		{"at end", end, true},
		{"after end", end.Add(time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			student := f.user(t, model.Student)
			f.enroll(t, student, classroom)
			f.now = tc.now

			_, err := f.exams.StartExam(ctx, student, exam.ID)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, util.ErrOutsideExamWindow)
		})
	}
}

func TestSubmitWindowBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, model.Teacher)
	classroom := f.classroom(t, teacher, 10)
	exam := f.twoQuestionExam(t, teacher, classroom)

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	_, err := f.exams.PublishExam(ctx, teacher, exam.ID, PublishExamRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"at end", end, true},
		{"after end", end.Add(time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			student := f.user(t, model.Student)
			f.enroll(t, student, classroom)
			f.now = start
			_, err := f.exams.StartExam(ctx, student, exam.ID)
			require.NoError(t, err)

			f.now = tc.now
			attempt, err := f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "C")})
			inProgress, countErr := f.exams.AttemptRepo.CountInProgress(ctx, exam.ID, student.ID)
			require.NoError(t, countErr)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, model.AttemptCompleted, attempt.Status)
				assert.Equal(t, 5, attempt.Score)
				assert.EqualValues(t, 0, inProgress)
				return
			}
			assert.ErrorIs(t, err, util.ErrOutsideExamWindow)
			// 窗口结束后提交被拒，作答保持进行中
			assert.EqualValues(t, 1, inProgress)
		})
	}
}

func TestConcurrentStartsCreateOneAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, _, student := f.publishedExam(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.exams.StartExam(ctx, student, exam.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if util.KindOf(err) == util.KindConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	count, err := f.exams.AttemptRepo.CountInProgress(ctx, exam.ID, student.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCancelExamAbandonsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, student := f.publishedExam(t)
	admin := f.user(t, model.Admin)

	attempt, err := f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)

	_, err = f.exams.CancelExam(ctx, teacher, exam.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	cancelled, err := f.exams.CancelExam(ctx, admin, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamCancelled, cancelled.Status)

	var reloaded model.ExamAttempt
	require.NoError(t, f.db.First(&reloaded, attempt.ID).Error)
	assert.Equal(t, model.AttemptAbandoned, reloaded.Status)
	assert.Nil(t, reloaded.InProgressKey)

	_, err = f.exams.StartExam(ctx, student, exam.ID)
	assert.ErrorIs(t, err, util.ErrExamCancelled)
	_, err = f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{})
	assert.ErrorIs(t, err, util.ErrExamCancelled)

	_, err = f.exams.CancelExam(ctx, admin, exam.ID)
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))
}

func TestSweepWindowsAdvancesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, _, _ := f.publishedExam(t)

	opened, closed, err := f.exams.SweepWindows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, opened)
	assert.Equal(t, 0, closed)

	reloaded, err := f.exams.ExamRepo.FindByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamOngoing, reloaded.Status)

	f.now = f.now.Add(2 * time.Hour)
	opened, closed, err = f.exams.SweepWindows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, opened)
	assert.Equal(t, 1, closed)

	reloaded, err = f.exams.ExamRepo.FindByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamCompleted, reloaded.Status)
}

func TestStudentViewHidesAnswersUntilCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, student := f.publishedExam(t)

	questions, err := f.exams.GetQuestions(ctx, student, exam.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Nil(t, questions[0].CorrectAnswer)

	questions, err = f.exams.GetQuestions(ctx, teacher, exam.ID)
	require.NoError(t, err)
	require.NotNil(t, questions[0].CorrectAnswer)

	_, err = f.exams.StartExam(ctx, student, exam.ID)
	require.NoError(t, err)
	_, err = f.exams.SubmitExam(ctx, student, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "B")})
	require.NoError(t, err)

	got, err := f.exams.GetExam(ctx, student, exam.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Questions[0].CorrectAnswer)
	assert.Equal(t, "A", *got.Questions[0].CorrectAnswer)
}

func TestExamVisibilityScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, student := f.publishedExam(t)
	stranger := f.user(t, model.Student)
	otherTeacher := f.user(t, model.Teacher)
	parent := f.user(t, model.Parent)

	// 未发布的草稿对学生不可见
	classroom, err := f.classrooms.Repo.FindByID(ctx, exam.ClassroomID)
	require.NoError(t, err)
	f.twoQuestionExam(t, teacher, classroom)

	list, total, err := f.exams.ListExams(ctx, student, repository.ExamFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, exam.ID, list[0].ID)

	_, total, err = f.exams.ListExams(ctx, teacher, repository.ExamFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	for _, caller := range []policy.Caller{stranger, otherTeacher, parent} {
		_, total, err = f.exams.ListExams(ctx, caller, repository.ExamFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, total, "role %s", caller.Role)

		_, err = f.exams.GetExam(ctx, caller, exam.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	}
}

func TestAttemptListingScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exam, teacher, student := f.publishedExam(t)
	classmate := f.user(t, model.Student)
	classroom, err := f.classrooms.Repo.FindByID(ctx, exam.ClassroomID)
	require.NoError(t, err)
	f.enroll(t, classmate, classroom)

	for _, s := range []policy.Caller{student, classmate} {
		_, err := f.exams.StartExam(ctx, s, exam.ID)
		require.NoError(t, err)
		_, err = f.exams.SubmitExam(ctx, s, exam.ID, SubmitExamRequest{Answers: answersFor(exam, "A", "B")})
		require.NoError(t, err)
	}

	all, err := f.exams.Results(ctx, teacher, exam.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.exams.Results(ctx, student, exam.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, student.ID, own[0].StudentID)
	assert.Len(t, own[0].Answers, 2)

	_, err = f.exams.ListAttempts(ctx, f.user(t, model.Expert), exam.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
