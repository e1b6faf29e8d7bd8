package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/AiCoda/skill-spec/internal/types"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults matching DefaultConfig
	v.SetDefault("database_url", "")
	v.SetDefault("strict", false)
	v.SetDefault("policies_dir", "")
	v.SetDefault("taxonomies_dir", "")
	v.SetDefault("patterns_dir", "")
	v.SetDefault("report_format", "text")
	v.SetDefault("history_limit", 20)
	v.SetDefault("max_combinations", types.MaxCartesianCombinations)

	// Bind environment variables with SKILLSPEC_ prefix
	v.SetEnvPrefix("SKILLSPEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		Strict:          v.GetBool("strict"),
		PoliciesDir:     v.GetString("policies_dir"),
		TaxonomiesDir:   v.GetString("taxonomies_dir"),
		PatternsDir:     v.GetString("patterns_dir"),
		ReportFormat:    v.GetString("report_format"),
		HistoryLimit:    v.GetInt("history_limit"),
		MaxCombinations: v.GetInt("max_combinations"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks report format and positive limits.
func validateConfig(cfg *Config) error {
	switch cfg.ReportFormat {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("report_format must be text, json or markdown, got %q", cfg.ReportFormat)
	}
	if cfg.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.MaxCombinations <= 0 {
		return fmt.Errorf("max_combinations must be positive, got %d", cfg.MaxCombinations)
	}
	return nil
}
