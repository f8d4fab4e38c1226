package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finanze/internal/auth"
	"finanze/internal/services"
	"finanze/internal/storage"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userCreateAdminCmd())
	return cmd
}

func userCreateAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is read from --password
or FINANZE_ADMIN_PASSWORD; there are no built-in default credentials.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := viper.GetString("admin.password")
			if password == "" {
				return fmt.Errorf("no password: set --password or FINANZE_ADMIN_PASSWORD")
			}

			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			defaults, err := storage.DefaultCategories()
			if err != nil {
				return err
			}
			users := services.NewUserService(repo, auth.NewHasher(auth.DefaultCost), defaults)
			id, err := users.CreateAdmin(cmd.Context(), viper.GetString("admin.username"), viper.GetString("admin.email"), password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q with id %d\n", viper.GetString("admin.username"), id)
			return nil
		},
	}

	cmd.Flags().String("username", "admin", "admin username")
	cmd.Flags().String("email", "", "admin email")
	cmd.Flags().String("password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")

	_ = viper.BindPFlag("admin.username", cmd.Flags().Lookup("username"))
	_ = viper.BindPFlag("admin.email", cmd.Flags().Lookup("email"))
	_ = viper.BindPFlag("admin.password", cmd.Flags().Lookup("password"))
	_ = viper.BindEnv("admin.password", "FINANZE_ADMIN_PASSWORD")
	return cmd
}
