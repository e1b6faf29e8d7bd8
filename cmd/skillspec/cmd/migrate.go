package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AiCoda/skill-spec/internal/core/config"
	"github.com/AiCoda/skill-spec/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending registry migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry migration status",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func resolveMigrateURL() (string, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	url := databaseURL(cfg)
	if url == "" {
		return "", fmt.Errorf("no database URL configured (--db-url flag or database_url)")
	}
	return url, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	url, err := resolveMigrateURL()
	if err != nil {
		return err
	}
	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	url, err := resolveMigrateURL()
	if err != nil {
		return err
	}
	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", s.ID, state)
	}
	return nil
}
