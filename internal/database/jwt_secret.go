package database

import (
	"errors"
	"fmt"

	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/models"
	"gorm.io/gorm"
)

const jwtSecretKey = "jwt_secret"

// EnsureJWTSecret ensures JWT secret is persisted in database
// If not exists, generates and saves. Returns the secret.
func EnsureJWTSecret(db *gorm.DB, cfg *config.Config) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}

	var pref models.SystemPreference
	err := db.Where(&models.SystemPreference{Key: jwtSecretKey}).First(&pref).Error
	if err == nil && pref.Value != "" {
		log.Info("JWT secret loaded from database, sessions persist across restarts")
		return pref.Value, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("load jwt secret: %w", err)
	}

	secret := config.GenerateSecret(32)
	pref = models.SystemPreference{
		Key:       jwtSecretKey,
		Value:     secret,
		ValueType: "string",
	}
	if err := db.Create(&pref).Error; err != nil {
		// Another instance may have won the race; use its secret.
		if err := db.Where(&models.SystemPreference{Key: jwtSecretKey}).First(&pref).Error; err != nil {
			return "", fmt.Errorf("persist jwt secret: %w", err)
		}
		return pref.Value, nil
	}

	log.Info("JWT secret generated and persisted to database")
	return secret, nil
}
