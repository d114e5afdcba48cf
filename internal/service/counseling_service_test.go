package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/monitoring"
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (f *fixture) requestedSession(t *testing.T) (*model.CounselingSession, policy.Caller, policy.Caller) {
	t.Helper()
	student := f.user(t, model.Student)
	expert := f.user(t, model.Expert)
	session, err := f.counseling.RequestSession(context.Background(), student, RequestSessionRequest{
		ExpertID:      expert.ID,
		ScheduledTime: f.now.Add(24 * time.Hour),
		Notes:         "career advice",
	})
	require.NoError(t, err)
	return session, student, expert
}

func TestRequestSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, student, expert := f.requestedSession(t)
	assert.Equal(t, model.SessionRequested, session.Status)
	assert.Equal(t, 60, session.DurationMinutes)

	var notes []model.Notification
	require.NoError(t, f.db.Where("user_id = ?", expert.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifySessionRequested, notes[0].Type)

	teacher := f.user(t, model.Teacher)
	_, err := f.counseling.RequestSession(ctx, student, RequestSessionRequest{ExpertID: teacher.ID, ScheduledTime: f.now.Add(time.Hour)})
	assert.ErrorIs(t, err, util.ErrExpertNotFound)

	_, err = f.counseling.RequestSession(ctx, student, RequestSessionRequest{ExpertID: 9999, ScheduledTime: f.now.Add(time.Hour)})
	assert.ErrorIs(t, err, util.ErrExpertNotFound)

	_, err = f.counseling.RequestSession(ctx, student, RequestSessionRequest{ExpertID: expert.ID, ScheduledTime: f.now.Add(-time.Hour)})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = f.counseling.RequestSession(ctx, expert, RequestSessionRequest{ExpertID: expert.ID, ScheduledTime: f.now.Add(time.Hour)})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, student, expert := f.requestedSession(t)

	// 未确认不能直接完成
	_, err := f.counseling.CompleteSession(ctx, expert, session.ID, CompleteSessionRequest{})
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	_, err = f.counseling.ConfirmSession(ctx, student, session.ID, ConfirmSessionRequest{MeetingLink: "https://meet.google.com/abc-defg-hij"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.counseling.ConfirmSession(ctx, expert, session.ID, ConfirmSessionRequest{MeetingLink: "https://zoom.us/j/123"})
	assert.ErrorIs(t, err, util.ErrInvalidMeetingLink)

	confirmed, err := f.counseling.ConfirmSession(ctx, expert, session.ID, ConfirmSessionRequest{MeetingLink: "https://meet.google.com/abc-defg-hij"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionConfirmed, confirmed.Status)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", confirmed.MeetingLink)

	_, err = f.counseling.ConfirmSession(ctx, expert, session.ID, ConfirmSessionRequest{GenerateMeet: true})
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	completed, err := f.counseling.CompleteSession(ctx, expert, session.ID, CompleteSessionRequest{
		ReportText:      "Discussed goals",
		Recommendations: "Practice daily",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)
	require.NotNil(t, completed.Report)

	got, err := f.counseling.GetSession(ctx, student, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Report)
	assert.Equal(t, "Discussed goals", got.Report.ReportText)

	_, err = f.counseling.CancelSession(ctx, student, session.ID)
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	notes := "late update"
	_, err = f.counseling.UpdateSession(ctx, student, session.ID, UpdateSessionRequest{Notes: &notes})
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))
}

func sessionCounter(t *testing.T, status model.SessionStatus) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, monitoring.CounselingSessions.WithLabelValues(string(status)).Write(&m))
	return m.GetCounter().GetValue()
}

func TestCompleteSessionRollsBackOnReportFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, _, expert := f.requestedSession(t)
	_, err := f.counseling.ConfirmSession(ctx, expert, session.ID, ConfirmSessionRequest{GenerateMeet: true})
	require.NoError(t, err)

	// 报告写入失败时整个完成操作回滚
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_report", func(db *gorm.DB) {
		if db.Statement.Table == (model.SessionReport{}).TableName() {
			_ = db.AddError(errors.New("disk full"))
		}
	}))
	before := sessionCounter(t, model.SessionCompleted)

	_, err = f.counseling.CompleteSession(ctx, expert, session.ID, CompleteSessionRequest{ReportText: "went well"})
	require.Error(t, err)
	assert.Equal(t, before, sessionCounter(t, model.SessionCompleted))

	var stored model.CounselingSession
	require.NoError(t, f.db.First(&stored, session.ID).Error)
	assert.Equal(t, model.SessionConfirmed, stored.Status)

	require.NoError(t, f.db.Callback().Create().Remove("test:fail_report"))
	// 无报告时仍可完成，计数只增加一次
	completed, err := f.counseling.CompleteSession(ctx, expert, session.ID, CompleteSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)
	assert.Equal(t, before+1, sessionCounter(t, model.SessionCompleted))
}

func TestConfirmWithGeneratedLink(t *testing.T) {
	f := newFixture(t)
	session, _, expert := f.requestedSession(t)

	confirmed, err := f.counseling.ConfirmSession(context.Background(), expert, session.ID, ConfirmSessionRequest{GenerateMeet: true})
	require.NoError(t, err)
	assert.True(t, ValidMeetingLink(confirmed.MeetingLink), confirmed.MeetingLink)
}

func TestStudentCanOnlyUpdateNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, student, expert := f.requestedSession(t)

	later := f.now.Add(48 * time.Hour)
	_, err := f.counseling.UpdateSession(ctx, student, session.ID, UpdateSessionRequest{ScheduledTime: &later})
	assert.ErrorIs(t, err, util.ErrStudentNotesOnly)

	notes := "bring transcript"
	updated, err := f.counseling.UpdateSession(ctx, student, session.ID, UpdateSessionRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "bring transcript", updated.Notes)

	minutes := 90
	updated, err = f.counseling.UpdateSession(ctx, expert, session.ID, UpdateSessionRequest{ScheduledTime: &later, DurationMinutes: &minutes})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.DurationMinutes)
	assert.True(t, updated.ScheduledTime.Equal(later))
}

func TestSessionVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, student, expert := f.requestedSession(t)
	otherStudent := f.user(t, model.Student)
	otherExpert := f.user(t, model.Expert)
	admin := f.user(t, model.Admin)

	_, err := f.counseling.GetSession(ctx, otherStudent, session.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = f.counseling.GetSession(ctx, admin, session.ID)
	assert.NoError(t, err)

	_, err = f.counseling.ConfirmSession(ctx, otherExpert, session.ID, ConfirmSessionRequest{GenerateMeet: true})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	for _, c := range []policy.Caller{student, expert, admin} {
		_, total, err := f.counseling.ListSessions(ctx, c, "", 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total, "role %s", c.Role)
	}
	_, total, err := f.counseling.ListSessions(ctx, otherExpert, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	_, total, err = f.counseling.ListSessions(ctx, admin, model.SessionConfirmed, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestCancelSessionNotifiesOtherParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, student, expert := f.requestedSession(t)

	cancelled, err := f.counseling.CancelSession(ctx, student, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCancelled, cancelled.Status)

	var count int64
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ? AND type = ?", expert.ID, model.NotifySessionCancelled).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.NoError(t, f.db.Model(&model.Notification{}).
		Where("user_id = ? AND type = ?", student.ID, model.NotifySessionCancelled).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestGenerateMeetingLinkRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.counseling.GenerateMeetingLink(ctx, f.user(t, model.Expert))
	require.NoError(t, err)
	assert.True(t, ValidMeetingLink(link))

	_, err = f.counseling.GenerateMeetingLink(ctx, f.user(t, model.Student))
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
