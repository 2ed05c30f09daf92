package main

import (
	"fmt"

	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/models"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db, nil)

			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema is up to date", "driver", cfg.DBDriver)
			return nil
		},
	}
}
