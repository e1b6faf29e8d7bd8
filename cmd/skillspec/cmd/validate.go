package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AiCoda/skill-spec/internal/core/config"
	"github.com/AiCoda/skill-spec/internal/core/db"
	"github.com/AiCoda/skill-spec/internal/registry"
	"github.com/AiCoda/skill-spec/internal/report"
	"github.com/AiCoda/skill-spec/internal/spec"
	"github.com/AiCoda/skill-spec/internal/validator"
)

const Version = "0.1.0"

var validateCmd = &cobra.Command{
	Use:   "validate <spec.yaml>",
	Short: "Validate a skill specification",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "fail on warnings")
	validateCmd.Flags().String("policies-dir", "", "directory of policy YAML files")
	validateCmd.Flags().String("taxonomies-dir", "", "directory of taxonomy YAML files")
	validateCmd.Flags().String("patterns-dir", "", "directory of extra forbidden-pattern YAML files")
	validateCmd.Flags().String("format", "", "report format (text, json, markdown)")
	validateCmd.Flags().String("output", "", "write the report to a file instead of stdout")
}

func runValidate(cmd *cobra.Command, args []string) error {
	specPath := args[0]

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyValidateFlags(cmd, cfg)

	doc, err := spec.LoadFile(specPath)
	if err != nil {
		return err
	}

	engine, reg, closeDB, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if closeDB != nil {
		defer closeDB()
	}

	start := time.Now()
	result := engine.Validate(doc, cfg.Strict)
	duration := time.Since(start)

	if reg != nil {
		if _, err := reg.RecordRun(spec.Name(doc), result, cfg.Strict, duration); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", err)
		}
	}

	rep := report.New(spec.Name(doc), spec.Version(doc), result, duration, specPath)
	rendered, err := rep.Render(cfg.ReportFormat)
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, []byte(rendered+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
	}

	if !result.Valid {
		return fmt.Errorf("validation failed: %d errors, %d warnings",
			result.TotalErrors(), result.TotalWarnings())
	}
	return nil
}

func applyValidateFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("strict") {
		cfg.Strict, _ = cmd.Flags().GetBool("strict")
	}
	if cmd.Flags().Changed("policies-dir") {
		cfg.PoliciesDir, _ = cmd.Flags().GetString("policies-dir")
	}
	if cmd.Flags().Changed("taxonomies-dir") {
		cfg.TaxonomiesDir, _ = cmd.Flags().GetString("taxonomies-dir")
	}
	if cmd.Flags().Changed("patterns-dir") {
		cfg.PatternsDir, _ = cmd.Flags().GetString("patterns-dir")
	}
	if cmd.Flags().Changed("format") {
		cfg.ReportFormat, _ = cmd.Flags().GetString("format")
	}
}

// databaseURL resolves the registry backend: the --db-url flag wins,
// then database_url from the config file or SKILLSPEC_DATABASE_URL.
func databaseURL(cfg *config.Config) string {
	if dbURL != "" {
		return dbURL
	}
	return cfg.DatabaseURL
}

// buildEngine assembles the validation engine from configuration. The
// registry is optional: without a database URL, works_with references
// go unchecked and runs are not recorded. When a registry is opened the
// returned close function is non-nil and the caller must invoke it.
func buildEngine(cfg *config.Config) (*validator.Engine, *registry.Registry, func() error, error) {
	opts := []validator.Option{
		validator.WithStructural(spec.NewStructureValidator()),
		validator.WithMaxCombinations(cfg.MaxCombinations),
	}

	extraPatterns, err := loadPatterns(cfg.PatternsDir)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, validator.WithQuality(spec.NewPatternValidator(extraPatterns...)))

	if cfg.PoliciesDir != "" {
		policies, err := loadPolicies(cfg.PoliciesDir)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, validator.WithPolicies(policies...))
	}
	if cfg.TaxonomiesDir != "" {
		taxonomies, err := loadTaxonomies(cfg.TaxonomiesDir)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, validator.WithTaxonomies(taxonomies...))
	}

	var reg *registry.Registry
	var closeDB func() error
	if url := databaseURL(cfg); url != "" {
		database, err := db.Open(url)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		reg, err = registry.New(database)
		if err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		known, err := reg.KnownSkills()
		if err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		opts = append(opts, validator.WithKnownSkills(known))
		closeDB = database.Close
	}

	return validator.NewEngine(opts...), reg, closeDB, nil
}

func loadPolicies(dir string) ([]validator.Policy, error) {
	var policies []validator.Policy
	err := eachYAML(dir, func(content []byte) error {
		policy, err := validator.PolicyFromYAML(content)
		if err != nil {
			return err
		}
		policies = append(policies, policy)
		return nil
	})
	return policies, err
}

func loadTaxonomies(dir string) ([]validator.Taxonomy, error) {
	var taxonomies []validator.Taxonomy
	err := eachYAML(dir, func(content []byte) error {
		taxonomy, err := validator.TaxonomyFromYAML(content)
		if err != nil {
			return err
		}
		taxonomies = append(taxonomies, taxonomy)
		return nil
	})
	return taxonomies, err
}

func loadPatterns(dir string) ([]spec.Pattern, error) {
	if dir == "" {
		return nil, nil
	}
	var patterns []spec.Pattern
	err := eachYAML(dir, func(content []byte) error {
		loaded, err := spec.PatternsFromYAML(content)
		if err != nil {
			return err
		}
		patterns = append(patterns, loaded...)
		return nil
	})
	return patterns, err
}

// eachYAML visits every .yaml file in dir in name order.
func eachYAML(dir string, fn func(content []byte) error) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := fn(content); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
