package types

/*
 * Domain types for decision-rule evaluation.
 *
 * Provides Rule and RuleSetConfig used by internal/logic for parsing,
 * evaluation and static analysis. These types are wire-format agnostic:
 * YAML/JSON-to-types conversion happens at the loader boundary.
 *
 * Rule sets arrive in three historically-coexisting shapes (plain list,
 * mapping keyed by rule id with a reserved _config key, and a
 * {_config, rules: [...]} wrapper). internal/logic normalizes all three
 * into an ordered []Rule once, at ingestion; nothing downstream
 * re-implements the shape detection.
 */

// MatchStrategy selects which decision rule(s) apply for a record.
type MatchStrategy string

const (
	// MatchFirst stops at the first rule whose condition is truthy,
	// in declaration order.
	MatchFirst MatchStrategy = "first_match"

	// MatchPriority stops at the first match after a stable sort by
	// descending priority (ties keep declaration order).
	MatchPriority MatchStrategy = "priority"

	// MatchAll collects every matching rule.
	MatchAll MatchStrategy = "all_match"
)

// ConflictResolution decides what happens when all_match yields multiple
// matches with differing action payloads.
type ConflictResolution string

const (
	// ResolveFirstWins silently keeps the first match.
	ResolveFirstWins ConflictResolution = "first_wins"

	// ResolveWarn keeps the first match and attaches a warning.
	ResolveWarn ConflictResolution = "warn"

	// ResolveError fails the whole evaluation with a ConflictError.
	ResolveError ConflictResolution = "error"
)

// Rule is a single decision rule from a skill specification.
type Rule struct {
	ID        string // unique within the rule set
	When      any    // condition: infix string, literal bool, or pre-built tree
	Then      map[string]any
	Priority  int
	IsDefault bool
}

// RuleSetConfig carries per-rule-set evaluation configuration, taken from
// the _config entry of the decision_rules section.
type RuleSetConfig struct {
	MatchStrategy      MatchStrategy
	ConflictResolution ConflictResolution
}

// DefaultRuleSetConfig returns the configuration used when a rule set
// declares none.
func DefaultRuleSetConfig() RuleSetConfig {
	return RuleSetConfig{
		MatchStrategy:      MatchFirst,
		ConflictResolution: ResolveFirstWins,
	}
}
