package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Application{},
		&AppMetrics{},
		&AuditLog{},
		&ContactMessage{},
		&SystemPreference{},
	}
}

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
