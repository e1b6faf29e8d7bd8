// Package config provides configuration management for the skillspec CLI.
package config

import "github.com/AiCoda/skill-spec/internal/types"

// Config holds validation and registry configuration.
type Config struct {
	// DatabaseURL selects the registry backend (sqlite:// or postgres://).
	// Empty disables the registry: validation runs are not recorded and
	// works_with references are not checked.
	DatabaseURL string

	// Strict fails validation on warnings, not just errors.
	Strict bool

	// PoliciesDir holds policy YAML files for the compliance layer.
	PoliciesDir string

	// TaxonomiesDir holds taxonomy YAML files for the taxonomy layer.
	TaxonomiesDir string

	// PatternsDir holds extra forbidden-pattern YAML files for the
	// quality layer, merged with the builtin set.
	PatternsDir string

	// ReportFormat selects run report rendering (text, json, markdown).
	ReportFormat string

	// HistoryLimit caps the rows returned by history queries.
	HistoryLimit int

	// MaxCombinations caps generated input-space products.
	MaxCombinations int
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ReportFormat:    "text",
		HistoryLimit:    20,
		MaxCombinations: types.MaxCartesianCombinations,
	}
}
