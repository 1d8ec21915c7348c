/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bullwork-fleet/apiserver/config"
	"github.com/bullwork-fleet/apiserver/internal/db"
	"github.com/bullwork-fleet/apiserver/internal/services"
	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/bullwork-fleet/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

// createAdminCmd seeds the initial admin account. Running it again with
// the same email is a no-op.
var createAdminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create the bootstrap admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("admin email and password are required")
		}

		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = dbConn.Close()
		}()

		userService := services.NewUserService(store.NewUserRepository(dbConn))

		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user, err := userService.Create(cmd.Context(), types.User{
			Name:         adminName,
			Email:        adminEmail,
			Role:         types.RoleAdmin,
			PasswordHash: string(hashed),
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Println("Admin already exists")
				return nil
			}
			return err
		}

		fmt.Printf("Admin created successfully: %s\n", user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminName, "name", envOr("ADMIN_NAME", "Admin User"), "admin display name")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", envOr("ADMIN_EMAIL", ""), "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", envOr("ADMIN_PASSWORD", ""), "admin password")
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
