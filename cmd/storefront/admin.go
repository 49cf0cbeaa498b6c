package main

import (
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin console access",
}

var grantCmd = &cobra.Command{
	Use:   "grant [email]",
	Short: "Give an existing account the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], models.RoleAdmin)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke [email]",
	Short: "Return an account to the user role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], models.RoleUser)
	},
}

func init() {
	adminCmd.AddCommand(grantCmd)
	adminCmd.AddCommand(revokeCmd)
}

func setRole(cmd *cobra.Command, email string, role models.Role) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(cmd.Context(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := store.SetRoleByEmail(cmd.Context(), db, email, role); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
	return nil
}
