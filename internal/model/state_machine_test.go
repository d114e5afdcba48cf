package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamTransitions(t *testing.T) {
	cases := []struct {
		from  ExamStatus
		event ExamEvent
		to    ExamStatus
		ok    bool
	}{
		{ExamDraft, ExamEventPublish, ExamScheduled, true},
		{ExamDraft, ExamEventOpen, ExamDraft, false},
		{ExamDraft, ExamEventCancel, ExamCancelled, true},
		{ExamScheduled, ExamEventPublish, ExamScheduled, false},
		{ExamScheduled, ExamEventOpen, ExamOngoing, true},
		{ExamScheduled, ExamEventClose, ExamCompleted, true},
		{ExamOngoing, ExamEventClose, ExamCompleted, true},
		{ExamOngoing, ExamEventCancel, ExamCancelled, true},
		{ExamCompleted, ExamEventCancel, ExamCompleted, false},
		{ExamCancelled, ExamEventPublish, ExamCancelled, false},
	}

	for _, tc := range cases {
		got, err := tc.from.Next(tc.event)
		if tc.ok {
			require.NoError(t, err, "%s --%s-->", tc.from, tc.event)
		} else {
			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, string(tc.from), te.From)
		}
		assert.Equal(t, tc.to, got)
	}

	assert.True(t, ExamCompleted.IsTerminal())
	assert.True(t, ExamCancelled.IsTerminal())
	assert.False(t, ExamScheduled.IsTerminal())
}

func TestAttemptTransitions(t *testing.T) {
	next, err := AttemptInProgress.Next(AttemptEventSubmit)
	require.NoError(t, err)
	assert.Equal(t, AttemptCompleted, next)

	next, err = AttemptInProgress.Next(AttemptEventAbandon)
	require.NoError(t, err)
	assert.Equal(t, AttemptAbandoned, next)

	// completed 与 abandoned 互斥且均为终态
	_, err = AttemptCompleted.Next(AttemptEventSubmit)
	assert.Error(t, err)
	_, err = AttemptAbandoned.Next(AttemptEventSubmit)
	assert.Error(t, err)
	assert.True(t, AttemptCompleted.IsTerminal())
	assert.True(t, AttemptAbandoned.IsTerminal())
}

func TestSessionTransitions(t *testing.T) {
	s, err := SessionRequested.Next(SessionEventConfirm)
	require.NoError(t, err)
	assert.Equal(t, SessionConfirmed, s)

	_, err = SessionRequested.Next(SessionEventComplete)
	assert.Error(t, err)

	s, err = SessionConfirmed.Next(SessionEventComplete)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, s)

	s, err = SessionConfirmed.Next(SessionEventCancel)
	require.NoError(t, err)
	assert.Equal(t, SessionCancelled, s)

	_, err = SessionCompleted.Next(SessionEventCancel)
	assert.Error(t, err)
	_, err = SessionCancelled.Next(SessionEventConfirm)
	assert.Error(t, err)
}

func TestExamWithinWindowInclusive(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	exam := &Exam{StartTime: &start, EndTime: &end}

	assert.False(t, exam.WithinWindow(start.Add(-time.Nanosecond)))
	assert.True(t, exam.WithinWindow(start))
	assert.True(t, exam.WithinWindow(start.Add(time.Hour)))
	assert.True(t, exam.WithinWindow(end))
	assert.False(t, exam.WithinWindow(end.Add(time.Nanosecond)))

	open := &Exam{}
	assert.True(t, open.WithinWindow(time.Time{}))
	assert.True(t, open.WithinWindow(end.Add(1000*time.Hour)))
}
