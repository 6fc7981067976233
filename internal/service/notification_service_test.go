package service

import (
	"context"
	"testing"

	"serviceease/internal/model"
	"serviceease/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	to      []string
	subject []string
	fail    error
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	return m.fail
}

func TestEnqueueAndDispatch(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := NewNotificationService(
		repository.NewNotificationRepository(env.db), repository.NewUserRepository(env.db), mailer, nil,
	)

	n := &model.Notification{
		UserID:  env.technician.ID,
		Type:    model.NotificationServiceApproved,
		Title:   "Service Completion Approved",
		Message: "Your completion was approved.",
	}
	require.NoError(t, svc.Enqueue(context.Background(), n))
	svc.Dispatch(context.Background(), n)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "tech@serviceease.test", mailer.to[0])
	assert.Equal(t, "Service Completion Approved", mailer.subject[0])

	var stored model.Notification
	require.NoError(t, env.db.First(&stored, "id = ?", n.ID).Error)
	assert.NotNil(t, stored.DispatchedAt)
	assert.False(t, stored.IsRead)
}

func TestDispatchEmailFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{fail: assert.AnError}
	svc := NewNotificationService(repository.NewNotificationRepository(env.db), repository.NewUserRepository(env.db), mailer, nil)

	n := &model.Notification{
		UserID:  env.technician.ID,
		Type:    model.NotificationServiceApproved,
		Title:   "t",
		Message: "m",
	}
	require.NoError(t, svc.Enqueue(context.Background(), n))

	// A broken relay must not panic or surface an error to the caller.
	svc.Dispatch(context.Background(), n)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	n := &model.Notification{
		UserID:  env.technician.ID,
		Type:    model.NotificationServiceApproved,
		Title:   "t",
		Message: "m",
	}
	require.NoError(t, env.notifySvc.Enqueue(context.Background(), n))

	require.NoError(t, env.notifySvc.MarkRead(context.Background(), n.ID, env.technician.ID))

	var stored model.Notification
	require.NoError(t, env.db.First(&stored, "id = ?", n.ID).Error)
	assert.True(t, stored.IsRead)
}

func TestListForUser(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.notifySvc.Enqueue(context.Background(), &model.Notification{
			UserID:  env.technician.ID,
			Type:    model.NotificationServiceApproved,
			Title:   "t",
			Message: "m",
		}))
	}
	require.NoError(t, env.notifySvc.Enqueue(context.Background(), &model.Notification{
		UserID:  env.admin.ID,
		Type:    model.NotificationServiceSubmitted,
		Title:   "t",
		Message: "m",
	}))

	items, total, err := env.notifySvc.ListForUser(context.Background(), env.technician.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 2)
}
