package main

import (
	"errors"
	"fmt"

	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/services"
	"github.com/spf13/cobra"
)

func createAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a platform administrator account",
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

			user, err := services.NewUserService(db).Signup(cmd.Context(), email, password, true)
			if errors.Is(err, services.ErrEmailTaken) {
				return fmt.Errorf("an account with email %s already exists", email)
			}
			if err != nil {
				return err
			}
			log.Info("admin user created", "id", user.ID, "email", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password (at least 8 characters)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
