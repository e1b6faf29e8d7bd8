package logic

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Decision-rule evaluation.
 *
 * EvaluateRules walks an ordered rule set against one input record using a
 * match strategy and conflict-resolution policy. Under priority the rules
 * are stably sorted by descending priority first (ties keep declaration
 * order), then the walk stops at the first match exactly like first_match:
 * the ordering determines which rule is "first". all_match collects every
 * match and only then inspects the collected set for genuine conflicts:
 * two or more matches whose action payloads differ under deep structural
 * equality.
 *
 * No matching rule is not an error; callers decide whether an empty result
 * is acceptable. A condition that fails to parse IS an error, attributed
 * to the specific rule.
 */

// RuleMatch is one matched outcome of rule evaluation.
type RuleMatch struct {
	RuleID   string
	Result   map[string]any
	Warnings []string
}

// ConflictError reports genuinely conflicting matches under
// conflict_resolution=error, naming every conflicting rule.
type ConflictError struct {
	RuleIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting rules matched: [%s]; use conflict_resolution=first_wins or warn to resolve",
		strings.Join(e.RuleIDs, ", "))
}

func (e *ConflictError) Unwrap() error { return types.ErrRuleConflict }

// EvaluateRules evaluates a rule set against a record.
// Returned matches are deterministic for fixed inputs: identical rules,
// strategy and record always yield identical matches and warning text.
func EvaluateRules(
	rules []types.Rule,
	record types.Record,
	strategy types.MatchStrategy,
	resolution types.ConflictResolution,
) ([]RuleMatch, error) {
	ordered := rules
	if strategy == types.MatchPriority {
		ordered = make([]types.Rule, len(rules))
		copy(ordered, rules)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority > ordered[j].Priority
		})
	}

	var matches []RuleMatch
	for _, rule := range ordered {
		if rule.When == nil {
			continue
		}
		cond, err := Parse(rule.When)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		if !Truthy(Evaluate(cond, record)) {
			continue
		}
		matches = append(matches, RuleMatch{RuleID: rule.ID, Result: rule.Then})
		if strategy == types.MatchFirst || strategy == types.MatchPriority {
			break
		}
	}

	if strategy == types.MatchAll && len(matches) > 1 {
		if err := resolveConflicts(matches, resolution); err != nil {
			return nil, err
		}
	}

	return matches, nil
}

// resolveConflicts inspects all_match results for differing action
// payloads and applies the configured policy. Payloads are compared by
// deep structural equality, not string rendering, so formatting noise
// never manufactures a conflict.
func resolveConflicts(matches []RuleMatch, resolution types.ConflictResolution) error {
	conflicting := false
	for _, m := range matches[1:] {
		if !reflect.DeepEqual(m.Result, matches[0].Result) {
			conflicting = true
			break
		}
	}
	if !conflicting {
		return nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.RuleID
	}

	switch resolution {
	case types.ResolveError:
		return &ConflictError{RuleIDs: ids}
	case types.ResolveWarn:
		matches[0].Warnings = append(matches[0].Warnings, fmt.Sprintf(
			"conflicting rules matched: [%s]; using first match: %s",
			strings.Join(ids, ", "), matches[0].RuleID))
	}
	// first_wins: silently keep the first match.
	return nil
}

// FindApplicable returns the first applicable rule's action for a record,
// or nil when nothing matches.
func FindApplicable(rules []types.Rule, record types.Record, cfg types.RuleSetConfig) (map[string]any, error) {
	matches, err := EvaluateRules(rules, record, cfg.MatchStrategy, cfg.ConflictResolution)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0].Result, nil
}
