package logic

import (
	"fmt"
	"strings"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Static analysis of decision rules.
 *
 * Analyze enumerates branches, detects dead branches and conflicting
 * rules, finds input combinations no declared test exercises, and lists
 * coverage gaps. Everything is derived per run; Branch views are never
 * persisted.
 *
 * The always-false check is intentionally incomplete: it catches literal
 * false conditions and same-variable equality contradictions inside a
 * single conjunction, purely syntactically. Semantically-dead but
 * syntactically-distinct conditions (inequality/range contradictions,
 * cross-rule subsumption) are NOT caught; expanding the heuristic risks
 * false positives, so the limitation stands.
 */

// Branch is an analyzer's view over one decision rule, with derived
// reachability and test-coverage flags.
type Branch struct {
	RuleID         string
	Condition      string
	Action         map[string]any
	Priority       int
	IsDefault      bool
	Reachable      bool
	CoveredByTests bool
}

// ConflictReport summarizes conflicting rules found during analysis.
type ConflictReport struct {
	HasConflict      bool
	ConflictingRules [][2]string // pairwise conflicting rule ids
	Resolution       string      // recommendation from the declared conflict_resolution
	Warnings         []string
}

// UncoveredCombination is a generated input no declared test covers,
// together with the rule it would trigger.
type UncoveredCombination struct {
	Input        types.Record
	TriggersRule string
}

// AnalysisResult holds the outcome of one analysis run.
type AnalysisResult struct {
	TotalBranches         int
	ReachableBranches     int
	DeadBranches          []string
	UncoveredCombinations []UncoveredCombination
	Conflicts             ConflictReport
	Branches              []Branch
	CoverageGaps          []string
}

// Analyze runs static analysis over a document's decision rules,
// optionally checking the given test inputs for combination coverage.
func Analyze(doc types.Document, testInputs []types.Record) AnalysisResult {
	var result AnalysisResult

	decisionRules := doc["decision_rules"]
	inputs, _ := doc["inputs"].([]any)

	rules, cfg := ExtractRules(decisionRules)
	branches := enumerateBranches(rules)
	result.TotalBranches = len(branches)

	dead := detectDeadBranches(branches, cfg)
	result.DeadBranches = dead
	result.ReachableBranches = len(branches) - len(dead)

	result.Conflicts = detectConflicts(branches, cfg)

	if len(testInputs) > 0 {
		result.UncoveredCombinations = findUncoveredCombinations(branches, inputs, testInputs)
	}

	result.CoverageGaps = coverageGaps(branches, testInputs)
	result.Branches = branches

	return result
}

// enumerateBranches derives Branch views from normalized rules.
func enumerateBranches(rules []types.Rule) []Branch {
	branches := make([]Branch, 0, len(rules))
	for _, rule := range rules {
		branches = append(branches, Branch{
			RuleID:    rule.ID,
			Condition: conditionString(rule.When),
			Action:    rule.Then,
			Priority:  rule.Priority,
			IsDefault: rule.IsDefault,
			Reachable: true,
		})
	}
	return branches
}

// conditionString renders a condition for identity grouping: infix text
// verbatim, booleans as literals, pre-built trees in canonical prefix
// form.
func conditionString(when any) string {
	switch w := when.(type) {
	case nil:
		return "true"
	case bool:
		if w {
			return "true"
		}
		return "false"
	case string:
		return strings.TrimSpace(w)
	case *Node:
		return w.String()
	case map[string]any:
		if n, err := fromMap(w); err == nil {
			return n.String()
		}
		return fmt.Sprintf("%v", w)
	default:
		return fmt.Sprintf("%v", w)
	}
}

// detectDeadBranches marks branches that can never fire: a duplicate of
// an earlier condition under first_match (unless it is the default), or
// a syntactically always-false condition.
func detectDeadBranches(branches []Branch, cfg types.RuleSetConfig) []string {
	var dead []string
	seen := make(map[string]bool)

	for i := range branches {
		b := &branches[i]

		if cfg.MatchStrategy == types.MatchFirst && seen[b.Condition] && !b.IsDefault {
			dead = append(dead, b.RuleID)
			b.Reachable = false
			continue
		}

		if isAlwaysFalse(b.Condition) {
			dead = append(dead, b.RuleID)
			b.Reachable = false
			continue
		}

		seen[b.Condition] = true
	}
	return dead
}

// isAlwaysFalse reports syntactic always-false conditions: a false
// literal, or a conjunction containing two equality terms on the same
// variable with differing literals. Purely syntactic; no SAT solving.
func isAlwaysFalse(condition string) bool {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "false", "0", "none", "null":
		return true
	}

	lower := strings.ToLower(condition)
	if !strings.Contains(lower, " and ") {
		return false
	}

	terms := strings.Split(lower, " and ")
	type eqTerm struct{ variable, value string }
	var eqs []eqTerm
	for _, t := range terms {
		// Only plain equality terms participate; != inside a term would
		// leave a trailing "!" on the variable side and not collide.
		parts := strings.SplitN(t, "==", 2)
		if len(parts) != 2 || strings.HasSuffix(parts[0], "!") {
			continue
		}
		eqs = append(eqs, eqTerm{
			variable: strings.TrimSpace(parts[0]),
			value:    strings.TrimSpace(parts[1]),
		})
	}
	for i := 0; i < len(eqs); i++ {
		for j := i + 1; j < len(eqs); j++ {
			if eqs[i].variable == eqs[j].variable && eqs[i].value != eqs[j].value {
				return true
			}
		}
	}
	return false
}

// detectConflicts groups branches by identical condition string and flags
// groups whose action payloads differ, independent of match strategy.
func detectConflicts(branches []Branch, cfg types.RuleSetConfig) ConflictReport {
	report := ConflictReport{}

	byCondition := make(map[string][]Branch)
	var order []string
	for _, b := range branches {
		if _, ok := byCondition[b.Condition]; !ok {
			order = append(order, b.Condition)
		}
		byCondition[b.Condition] = append(byCondition[b.Condition], b)
	}

	for _, cond := range order {
		group := byCondition[cond]
		if len(group) < 2 {
			continue
		}
		differing := false
		for _, b := range group[1:] {
			if Stringify(b.Action) != Stringify(group[0].Action) {
				differing = true
				break
			}
		}
		if !differing {
			continue
		}
		report.HasConflict = true
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				report.ConflictingRules = append(report.ConflictingRules,
					[2]string{group[i].RuleID, group[j].RuleID})
			}
		}
	}

	if report.HasConflict {
		switch cfg.ConflictResolution {
		case types.ResolveError:
			report.Resolution = "error"
			report.Warnings = append(report.Warnings,
				"conflicting rules detected; resolution strategy is 'error'")
		case types.ResolveWarn:
			report.Resolution = "first_wins"
			report.Warnings = append(report.Warnings,
				"conflicting rules detected; using first matching rule")
		default:
			report.Resolution = "first_wins"
		}
	}
	return report
}

// findUncoveredCombinations samples the input space and reports
// combinations not matched by any declared test input, with the rule each
// would trigger. Output is capped to stay bounded on high-cardinality
// domains.
func findUncoveredCombinations(branches []Branch, inputs []any, testInputs []types.Record) []UncoveredCombination {
	var uncovered []UncoveredCombination

	for _, combo := range CartesianSample(inputs, types.MaxAnalysisSamples) {
		if coveredByTest(combo, testInputs) {
			continue
		}
		if triggered := triggeredBranch(branches, combo); triggered != nil {
			uncovered = append(uncovered, UncoveredCombination{
				Input:        combo,
				TriggersRule: triggered.RuleID,
			})
			if len(uncovered) >= types.MaxUncoveredResults {
				break
			}
		}
	}
	return uncovered
}

func coveredByTest(combo types.Record, testInputs []types.Record) bool {
	for _, test := range testInputs {
		if recordCovers(combo, test) {
			return true
		}
	}
	return false
}

// recordCovers reports whether every key/value of combo appears in test.
func recordCovers(combo, test types.Record) bool {
	for key, val := range combo {
		got, ok := test[key]
		if !ok || !looseEqual(got, val) {
			return false
		}
	}
	return true
}

// triggeredBranch finds the branch a record would fire: the first
// non-default branch whose condition parses and evaluates truthy, else
// the default branch if one exists. Unparseable conditions are skipped;
// parse failures are reported elsewhere, not here.
func triggeredBranch(branches []Branch, record types.Record) *Branch {
	for i := range branches {
		b := &branches[i]
		if b.IsDefault {
			continue
		}
		node, err := Parse(b.Condition)
		if err != nil {
			continue
		}
		if Truthy(Evaluate(node, record)) {
			return b
		}
	}
	for i := range branches {
		if branches[i].IsDefault {
			return &branches[i]
		}
	}
	return nil
}

// coverageGaps lists reachable branches no test input triggers, plus
// structural gaps: a missing default path, or several default rules
// competing for the fallback role.
func coverageGaps(branches []Branch, testInputs []types.Record) []string {
	var gaps []string

	tested := make(map[string]bool)
	for _, test := range testInputs {
		if triggered := triggeredBranch(branches, test); triggered != nil {
			tested[triggered.RuleID] = true
			triggered.CoveredByTests = true
		}
	}

	defaults := 0
	for i := range branches {
		b := &branches[i]
		if b.IsDefault {
			defaults++
		}
		if b.Reachable && !tested[b.RuleID] {
			gaps = append(gaps, fmt.Sprintf("Rule '%s' has no test coverage", b.RuleID))
		}
	}

	if defaults == 0 {
		gaps = append(gaps, "No default rule defined - edge cases may not be handled")
	} else if defaults > 1 {
		gaps = append(gaps, fmt.Sprintf("%d default rules defined - fallback outcome is ambiguous", defaults))
	}
	return gaps
}
