package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AiCoda/skill-spec/internal/core/config"
	"github.com/AiCoda/skill-spec/internal/core/db"
	"github.com/AiCoda/skill-spec/internal/registry"
	"github.com/AiCoda/skill-spec/internal/spec"
)

var registerCmd = &cobra.Command{
	Use:   "register <spec.yaml>",
	Short: "Register a skill so other specs can reference it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().String("owner", "", "skill owner")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	url := databaseURL(cfg)
	if url == "" {
		return fmt.Errorf("no database URL configured (--db-url flag or database_url)")
	}

	doc, err := spec.LoadFile(args[0])
	if err != nil {
		return err
	}
	name := spec.Name(doc)
	if name == "" {
		return fmt.Errorf("spec declares no skill.name")
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

	owner, _ := cmd.Flags().GetString("owner")
	if err := reg.RegisterSkill(name, spec.Version(doc), owner); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered %s %s\n", name, spec.Version(doc))
	return nil
}
