package services

import (
	"testing"
	"time"

	"github.com/jetsocket/backend/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Email: email, Password: string(hashed)}
	require.NoError(t, db.Create(user).Error)
	return user
}

func addSnapshot(t *testing.T, db *gorm.DB, appID string, at time.Time, connected int64) *models.AppMetrics {
	t.Helper()
	m := &models.AppMetrics{
		AppID: appID,
		MetricCounters: models.MetricCounters{
			Connected:               connected,
			WSMessagesReceivedTotal: connected * 10,
			WSMessagesSentTotal:     connected * 20,
		},
		CreatedAt: at.UTC(),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}
