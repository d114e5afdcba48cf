package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func (m *recordingMailer) Send(ctx context.Context, toName, toEmail, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, toEmail)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func TestNotificationsAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, model.Student)
	bob := f.user(t, model.Student)

	f.notifier.Notify(ctx, []uint{alice.ID, bob.ID}, model.NotifyExamPublished, "New exam", "Midterm")

	unread, err := f.notifier.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	list, err := f.notifier.ListLatest(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.notifier.MarkRead(ctx, bob, list[0].ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	read, err := f.notifier.MarkRead(ctx, alice, list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, err = f.notifier.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestNotifyWithMailSendsToRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.user(t, model.Student)

	mailer := &recordingMailer{done: make(chan struct{}, 1)}
	f.notifier.Mailer = mailer
	f.notifier.NotifyWithMail(ctx, []uint{student.ID}, model.NotifyExamCancelled, "Exam cancelled", "Midterm")
	<-mailer.done

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, []string{"student1@example.com"}, mailer.sent)
}
