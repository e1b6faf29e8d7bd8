package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbURL      string
)

var rootCmd = &cobra.Command{
	Use:   "skillspec",
	Short: "Skill specification validator",
	Long:  `skillspec validates skill specification documents across structure, quality, coverage, consistency, compliance and taxonomy layers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "registry database URL (sqlite://path or postgres://...)")
}

func Execute() error {
	return rootCmd.Execute()
}
