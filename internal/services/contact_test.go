package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/database/dbtest"
	"github.com/jetsocket/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	got []*models.ContactMessage
	err error
}

func (r *recordingNotifier) NotifyContact(_ context.Context, msg *models.ContactMessage) error {
	r.got = append(r.got, msg)
	return r.err
}

func TestContactService_Submit(t *testing.T) {
	db := dbtest.New(t)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := NewContactService(db, notifier)

	msg, err := svc.Submit(context.Background(), ContactInput{
		Name:      " Ada ",
		Email:     "Ada@Example.com",
		Message:   "Do you support presence channels?",
		IPAddress: "203.0.113.9",
	})
	require.NoError(t, err, "notification failures do not fail the submission")
	assert.Equal(t, "Ada", msg.Name)
	assert.Equal(t, "ada@example.com", msg.Email)
	require.Len(t, notifier.got, 1)

	var count int64
	require.NoError(t, db.Model(&models.ContactMessage{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestContactService_Validation(t *testing.T) {
	db := dbtest.New(t)
	svc := NewContactService(db, nil)
	ctx := context.Background()

	cases := []ContactInput{
		{Email: "a@example.com", Message: "hi"},
		{Name: "Ada", Email: "a@example.com"},
		{Name: "Ada", Email: "not-an-email", Message: "hi"},
	}
	for _, in := range cases {
		_, err := svc.Submit(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	var count int64
	require.NoError(t, db.Model(&models.ContactMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMailNotifier_DisabledWithoutSMTP(t *testing.T) {
	assert.Nil(t, NewMailNotifier(NewMailer(config.SMTPConfig{}), "team@example.com"))
	assert.Nil(t, NewMailNotifier(NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587}), ""))
	assert.NotNil(t, NewMailNotifier(NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587}), "team@example.com"))

	var n *MailNotifier
	assert.NoError(t, n.NotifyContact(context.Background(), &models.ContactMessage{}))
	assert.ErrorIs(t, NewMailer(config.SMTPConfig{}).Send("a@example.com", "s", "b", ""), ErrSMTPNotConfigured)
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("from@example.com", "to@example.com", "Hello", "Body", "reply@example.com"))
	assert.Contains(t, msg, "From: from@example.com\r\n")
	assert.Contains(t, msg, "Reply-To: reply@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nBody"))
}
