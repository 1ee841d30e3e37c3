/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/db"
	"github.com/guardpost/apiserver/internal/logging"
	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedAdmin struct {
	username  string
	email     string
	firstName string
	lastName  string
}

// seedAdminCmd represents the seed-admin command
var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the first administrator account",
	Long: `Creates an active admin user. The password is read from
GUARDPOST_ADMIN_PASSWORD so it never appears in the process list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("GUARDPOST_ADMIN_PASSWORD")
		if password == "" {
			return errors.New("GUARDPOST_ADMIN_PASSWORD is required")
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		logger := logging.L()
		users := services.NewUserService(
			store.NewUserRepository(conn),
			auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxConcurrentHashes),
			nil,
			services.NewActivityService(store.NewActivityRepository(conn), logger),
			nil,
			logger,
		)

		user, err := users.Create(cmd.Context(), services.NewUser{
			User: types.User{
				Username:  seedAdmin.username,
				Email:     seedAdmin.email,
				FirstName: seedAdmin.firstName,
				LastName:  seedAdmin.lastName,
				Role:      types.RoleAdmin,
				Status:    types.UserStatusActive,
			},
			Password: password,
		})
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("user %q or email %q already exists", seedAdmin.username, seedAdmin.email)
		}
		if err != nil {
			return err
		}

		logger.Info("admin created", zap.String("user_id", user.ID), zap.String("username", user.Username))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedAdminCmd)

	seedAdminCmd.Flags().StringVar(&seedAdmin.username, "username", "admin", "login name")
	seedAdminCmd.Flags().StringVar(&seedAdmin.email, "email", "", "email address")
	seedAdminCmd.Flags().StringVar(&seedAdmin.firstName, "first-name", "Site", "first name")
	seedAdminCmd.Flags().StringVar(&seedAdmin.lastName, "last-name", "Administrator", "last name")
	_ = seedAdminCmd.MarkFlagRequired("email")
}
