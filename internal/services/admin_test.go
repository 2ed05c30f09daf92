package services

import (
	"context"
	"testing"
	"time"

	"github.com/jetsocket/backend/internal/database/dbtest"
	"github.com/jetsocket/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_Stats(t *testing.T) {
	db := dbtest.New(t)
	apps := NewApplicationService(db, nil)
	svc := NewAdminService(db, apps)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Users)
	assert.Empty(t, stats.Subscriptions)

	owner := createUser(t, db, "owner@example.com")
	createUser(t, db, "idle@example.com")
	active := models.SubscriptionStatusActive
	require.NoError(t, db.Model(owner).Update("subscription_status", active).Error)

	app, err := apps.Create(ctx, owner, CreateApplicationInput{})
	require.NoError(t, err)
	addSnapshot(t, db, app.ID, time.Now(), 12)

	require.NoError(t, db.Create(&models.ContactMessage{Name: "a", Email: "a@example.com", Message: "m"}).Error)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Users)
	assert.EqualValues(t, 1, stats.Applications)
	assert.EqualValues(t, 1, stats.EnabledApplications)
	assert.EqualValues(t, 12, stats.Connections)
	assert.EqualValues(t, 1, stats.ContactMessages)
	assert.EqualValues(t, 1, stats.Subscriptions["active"])
}

func TestAdminService_ListUsers(t *testing.T) {
	db := dbtest.New(t)
	svc := NewAdminService(db, NewApplicationService(db, nil))
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@other.org"} {
		createUser(t, db, email)
	}

	users, meta, err := svc.ListUsers(ctx, UserFilter{Search: "EXAMPLE"}, Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, Meta{Page: 1, Limit: 1, Total: 2, TotalPages: 2}, meta)

	users, _, err = svc.ListUsers(ctx, UserFilter{Status: "none"}, Page{})
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, meta, err = svc.ListUsers(ctx, UserFilter{Status: "active"}, Page{Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, maxPageLimit, meta.Limit)
}

func TestAdminService_GetUser(t *testing.T) {
	db := dbtest.New(t)
	apps := NewApplicationService(db, nil)
	svc := NewAdminService(db, apps)
	ctx := context.Background()

	user := createUser(t, db, "owner@example.com")
	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Application)

	app, err := apps.Create(ctx, user, CreateApplicationInput{Name: "feed"})
	require.NoError(t, err)
	got, err = svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Application)
	assert.Equal(t, app.ID, got.Application.ID)

	_, err = svc.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminService_ListAuditLogs(t *testing.T) {
	db := dbtest.New(t)
	svc := NewAdminService(db, NewApplicationService(db, nil))
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.AuditLog{
		{UserID: 1, Email: "a@example.com", Action: models.AuditActionCreate, EntityType: "application"},
		{UserID: 1, Email: "a@example.com", Action: models.AuditActionLogin, EntityType: "session"},
		{UserID: 2, Email: "b@example.com", Action: models.AuditActionCreate, EntityType: "application"},
	}).Error)

	logs, meta, err := svc.ListAuditLogs(ctx, AuditFilter{Action: string(models.AuditActionCreate)}, Page{})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.EqualValues(t, 2, meta.Total)

	logs, _, err = svc.ListAuditLogs(ctx, AuditFilter{UserID: 2}, Page{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "b@example.com", logs[0].Email)

	msgs, meta, err := svc.ListContactMessages(ctx, Page{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Zero(t, meta.TotalPages)
}
