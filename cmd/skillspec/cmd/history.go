package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AiCoda/skill-spec/internal/core/config"
	"github.com/AiCoda/skill-spec/internal/core/db"
	"github.com/AiCoda/skill-spec/internal/registry"
)

var historyCmd = &cobra.Command{
	Use:   "history [skill]",
	Short: "Show recorded validation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 0, "maximum number of runs to show")
	historyCmd.Flags().Bool("summary", false, "show aggregate statistics instead of individual runs")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	limit := cfg.HistoryLimit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}

	url := databaseURL(cfg)
	if url == "" {
		return fmt.Errorf("no database URL configured (--db-url flag or database_url)")
	}
	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	reg, err := registry.New(database)
	if err != nil {
		return err
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		if len(args) == 0 {
			return fmt.Errorf("--summary requires a skill name")
		}
		s, err := reg.SkillSummary(args[0], limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run Summary: %s\n", s.SkillName)
		fmt.Fprintf(cmd.OutOrStdout(), "  Total Runs: %d\n", s.TotalRuns)
		fmt.Fprintf(cmd.OutOrStdout(), "  Passed: %d\n", s.PassedRuns)
		fmt.Fprintf(cmd.OutOrStdout(), "  Success Rate: %.1f%%\n", s.SuccessRate)
		fmt.Fprintf(cmd.OutOrStdout(), "  Average Duration: %.0fms\n", s.AvgDurationMs)
		if s.LastRunAt != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Last Run: %s\n", s.LastRunAt)
		}
		return nil
	}

	var runs []registry.Run
	if len(args) == 1 {
		runs, err = reg.RunsForSkill(args[0], limit)
	} else {
		runs, err = reg.RecentRuns(limit)
	}
	if err != nil {
		return err
	}

	for _, run := range runs {
		status := "PASS"
		if !run.Valid {
			status = "FAIL"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-4s  %-20s  errors=%d warnings=%d  %dms\n",
			run.CreatedAt, status, run.SkillName, run.TotalErrors, run.TotalWarnings, run.DurationMs)
	}
	return nil
}
