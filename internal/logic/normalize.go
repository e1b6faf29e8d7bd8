package logic

import (
	"fmt"
	"sort"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Rule-set shape normalization.
 *
 * The decision_rules section appears in three historically-coexisting
 * shapes:
 *
 *	1. a plain list of rule mappings
 *	2. a mapping keyed by rule id, with a reserved _config key
 *	3. a {_config: ..., rules: [...]} wrapper
 *
 * ExtractRules is the single normalization point: every consumer (rule
 * engine, analyzer, coverage, consistency) goes through it instead of
 * re-implementing the tri-shape detection. Mapping-keyed rule sets are
 * ordered by sorted key because decoded Go maps have no declaration
 * order; list shapes preserve declaration order exactly.
 */

// ExtractRules normalizes a decision_rules section into an ordered rule
// slice plus the rule-set configuration.
func ExtractRules(decisionRules any) ([]types.Rule, types.RuleSetConfig) {
	cfg := types.DefaultRuleSetConfig()

	switch dr := decisionRules.(type) {
	case []any:
		return rulesFromList(dr), cfg

	case map[string]any:
		if rawCfg, ok := dr["_config"].(map[string]any); ok {
			cfg = configFrom(rawCfg)
		}
		if nested, ok := dr["rules"].([]any); ok {
			return rulesFromList(nested), cfg
		}

		keys := make([]string, 0, len(dr))
		for k := range dr {
			if k == "_config" {
				continue
			}
			if _, isMap := dr[k].(map[string]any); isMap {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		rules := make([]types.Rule, 0, len(keys))
		for _, k := range keys {
			rules = append(rules, ruleFrom(dr[k].(map[string]any), k))
		}
		return rules, cfg
	}

	return nil, cfg
}

func rulesFromList(raw []any) []types.Rule {
	rules := make([]types.Rule, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rules = append(rules, ruleFrom(m, fmt.Sprintf("rule_%d", i)))
	}
	return rules
}

// ruleFrom builds a Rule from its mapping form. fallbackID is used when
// the rule declares no id of its own (the map key, or a positional name).
func ruleFrom(m map[string]any, fallbackID string) types.Rule {
	rule := types.Rule{ID: fallbackID, When: m["when"], Priority: 0}

	if id, ok := m["id"].(string); ok && id != "" {
		rule.ID = id
	}
	if rule.When == nil {
		rule.When = true
	}
	switch then := m["then"].(type) {
	case map[string]any:
		rule.Then = then
	case nil:
		rule.Then = map[string]any{}
	default:
		rule.Then = map[string]any{"value": then}
	}
	if p, ok := asInt(m["priority"]); ok {
		rule.Priority = p
	}
	if d, ok := m["is_default"].(bool); ok {
		rule.IsDefault = d
	}
	return rule
}

func configFrom(m map[string]any) types.RuleSetConfig {
	cfg := types.DefaultRuleSetConfig()
	if s, ok := m["match_strategy"].(string); ok && s != "" {
		cfg.MatchStrategy = types.MatchStrategy(s)
	}
	if s, ok := m["conflict_resolution"].(string); ok && s != "" {
		cfg.ConflictResolution = types.ConflictResolution(s)
	}
	return cfg
}

// asInt accepts the integer representations YAML and JSON decoders
// produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
