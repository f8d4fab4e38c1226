package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finanze/internal/log"
	"finanze/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := viper.GetString("db")
			if err := storage.RunMigrations(path); err != nil {
				return err
			}
			version, _, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			log.FromContext(cmd.Context()).Info("Migrations applied", "db", path, "version", version)
			return nil
		},
	}
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, dirty, err := storage.MigrationVersion(viper.GetString("db"))
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n", version, state)
			return nil
		},
	}
}
