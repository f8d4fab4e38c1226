package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finanze/internal/cli"
	"finanze/internal/log"
	"finanze/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "finanze-admin",
	Short: "Administrative tasks for a finanze installation",
	Long: `finanze-admin runs maintenance tasks against the finanze database:
schema migrations, administrator bootstrap, shared categories and offline
report rendering.

Every flag can also be set through the environment variable the server uses.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().String("db", "./data/finanze.db", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// same variable names as the server
	_ = viper.BindEnv("db", "SQLITE_DB_PATH")
	_ = viper.BindEnv("log.level", "LOG_LEVEL")
	_ = viper.BindEnv("log.format", "LOG_FORMAT")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(reportCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	viper.AutomaticEnv()

	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(viper.GetString("log.level"))
	lc.Format = viper.GetString("log.format")
	lc.Component = log.ComponentAdmin
	logger := log.New(lc)
	log.SetDefault(logger)
	cmd.SetContext(log.IntoContext(cmd.Context(), logger))
	return nil
}

// openRepo opens the configured database, applying pending migrations.
func openRepo() (*storage.SQLiteRepository, error) {
	path := viper.GetString("db")
	if path == "" {
		return nil, fmt.Errorf("no database path: set --db or SQLITE_DB_PATH")
	}
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return repo, nil
}
