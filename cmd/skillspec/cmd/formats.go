package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AiCoda/skill-spec/internal/validator"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the string formats the constraint validator recognizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range validator.NewConstraintValidator().Formats() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
