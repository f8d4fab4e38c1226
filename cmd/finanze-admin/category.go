package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finanze/internal/core"
	"finanze/internal/services"
)

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories shared by every user",
	}
	cmd.AddCommand(categoryAddSystemCmd())
	return cmd
}

func categoryAddSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-system",
		Short: "Add a system category visible to every user",
		Long: `Add an income or expense category owned by no user. Every user sees it,
nobody can rename or delete it, and users cannot create a category with the
same name. Adding a name that already exists is a no-op.`,
		Example: "  finanze-admin category add-system --kind expense --name Taxes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := core.Kind(viper.GetString("category.kind"))
			name := viper.GetString("category.name")

			repo, err := openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			inserted, err := services.NewCategoryService(repo, nil).
				AddSystem(cmd.Context(), kind, name, viper.GetString("category.description"))
			if err != nil {
				return fmt.Errorf("add system category: %w", err)
			}
			if !inserted {
				fmt.Fprintf(cmd.OutOrStdout(), "system %s category %q already exists\n", kind, name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added system %s category %q\n", kind, name)
			return nil
		},
	}

	cmd.Flags().String("kind", "", "income or expense")
	cmd.Flags().String("name", "", "category name")
	cmd.Flags().String("description", "", "optional description")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("name")

	_ = viper.BindPFlag("category.kind", cmd.Flags().Lookup("kind"))
	_ = viper.BindPFlag("category.name", cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("category.description", cmd.Flags().Lookup("description"))
	return cmd
}
