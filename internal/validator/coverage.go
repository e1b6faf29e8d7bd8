package validator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/AiCoda/skill-spec/internal/logic"
	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Coverage validation.
 *
 * Structural coverage cross-references declared entities: failure codes
 * against edge cases, rule ids against covers_rule references, input
 * names against the serialized decision-rule structure. Behavioral
 * coverage scores edge cases backed by concrete input examples. Boundary
 * coverage tracks canonical boundary labels per input domain.
 *
 * The aggregate structural score is the mean of the ratio sub-scores
 * whose denominator is nonzero; inapplicable sub-scores are excluded
 * entirely rather than counted as zero or as perfect.
 */

// CoverageGap is one coverage finding.
type CoverageGap struct {
	GapType     string // structural | behavioral
	Category    string
	Item        string
	Description string
	Severity    types.Severity
}

func (g CoverageGap) String() string {
	return fmt.Sprintf("[%s] %s: %s - %s", strings.ToUpper(g.GapType), g.Category, g.Item, g.Description)
}

// CoverageMetrics holds the raw counters coverage scores derive from.
type CoverageMetrics struct {
	FailureModesCovered     int
	FailureModesTotal       int
	DecisionRulesReferenced int
	DecisionRulesTotal      int
	InputsReferenced        int
	InputsTotal             int

	EdgeCasesWithInput int
	EdgeCasesTotal     int
}

// StructuralScore is the aggregate structural coverage percentage:
// the mean of sub-scores with a nonzero denominator, scaled to 0-100.
func (m CoverageMetrics) StructuralScore() float64 {
	var scores []float64
	if m.FailureModesTotal > 0 {
		scores = append(scores, float64(m.FailureModesCovered)/float64(m.FailureModesTotal))
	}
	if m.DecisionRulesTotal > 0 {
		scores = append(scores, float64(m.DecisionRulesReferenced)/float64(m.DecisionRulesTotal))
	}
	if m.InputsTotal > 0 {
		scores = append(scores, float64(m.InputsReferenced)/float64(m.InputsTotal))
	}
	if len(scores) == 0 {
		return 100.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return round1(sum / float64(len(scores)) * 100)
}

// BehavioralScore is the percentage of edge cases with input examples.
func (m CoverageMetrics) BehavioralScore() float64 {
	if m.EdgeCasesTotal == 0 {
		return 0.0
	}
	return round1(float64(m.EdgeCasesWithInput) / float64(m.EdgeCasesTotal) * 100)
}

// CoverageResult is the coverage layer's sub-result.
type CoverageResult struct {
	Valid   bool
	Gaps    []CoverageGap
	Metrics CoverageMetrics
}

func (r *CoverageResult) addGap(gapType, category, item, description string, severity types.Severity) {
	r.Gaps = append(r.Gaps, CoverageGap{
		GapType:     gapType,
		Category:    category,
		Item:        item,
		Description: description,
		Severity:    severity,
	})
	if severity == types.SeverityError {
		r.Valid = false
	}
}

// CoverageValidator computes structural and behavioral coverage.
type CoverageValidator struct {
	maxCombinations int
}

// NewCoverageValidator returns a coverage validator with the default
// input-space cap.
func NewCoverageValidator() *CoverageValidator {
	return &CoverageValidator{maxCombinations: types.MaxCartesianCombinations}
}

// Validate runs all coverage checks over a document.
func (v *CoverageValidator) Validate(doc types.Document) CoverageResult {
	result := CoverageResult{Valid: true}

	inputs, _ := doc["inputs"].([]any)
	decisionRules := doc["decision_rules"]
	failureModes := mapsOf(doc["failure_modes"])
	edgeCases := mapsOf(doc["edge_cases"])
	steps := mapsOf(doc["steps"])

	v.checkFailureModes(failureModes, edgeCases, &result)
	v.checkDecisionRules(decisionRules, edgeCases, &result)
	v.checkInputs(inputs, decisionRules, &result)
	v.checkInputDomains(inputs, &result)
	v.checkDefaultPath(decisionRules, &result)
	v.checkStepChain(steps, &result)
	v.checkEdgeCaseCompleteness(edgeCases, &result)

	return result
}

// checkFailureModes scores failure codes referenced by at least one edge
// case (via covers_failure or expected.code) against all declared codes.
func (v *CoverageValidator) checkFailureModes(failureModes, edgeCases []map[string]any, result *CoverageResult) {
	failureCodes := stringSet(failureModes, "code")
	result.Metrics.FailureModesTotal = len(failureCodes)

	covered := make(map[string]bool)
	for _, ec := range edgeCases {
		if code, ok := ec["covers_failure"].(string); ok && code != "" {
			covered[code] = true
		}
		if expected, ok := ec["expected"].(map[string]any); ok {
			if code, ok := expected["code"].(string); ok && code != "" {
				covered[code] = true
			}
		}
	}

	for code := range covered {
		if failureCodes[code] {
			result.Metrics.FailureModesCovered++
		}
	}

	for _, code := range sortedKeys(failureCodes) {
		if !covered[code] {
			result.addGap("structural", "UNCOVERED_FAILURE_MODE", code,
				fmt.Sprintf("Failure mode '%s' has no corresponding edge case", code),
				types.SeverityWarning)
		}
	}
}

// checkDecisionRules scores rule ids referenced by edge cases'
// covers_rule field against all declared rule ids.
func (v *CoverageValidator) checkDecisionRules(decisionRules any, edgeCases []map[string]any, result *CoverageResult) {
	rules, _ := logic.ExtractRules(decisionRules)
	ruleIDs := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID != "" {
			ruleIDs[r.ID] = true
		}
	}
	result.Metrics.DecisionRulesTotal = len(ruleIDs)

	covered := make(map[string]bool)
	for _, ec := range edgeCases {
		if id, ok := ec["covers_rule"].(string); ok && id != "" {
			covered[id] = true
		}
	}
	for id := range covered {
		if ruleIDs[id] {
			result.Metrics.DecisionRulesReferenced++
		}
	}

	for _, id := range sortedKeys(ruleIDs) {
		if !covered[id] {
			result.addGap("structural", "UNCOVERED_RULE", id,
				fmt.Sprintf("Rule '%s' has no edge case with covers_rule reference", id),
				types.SeverityWarning)
		}
	}
}

// checkInputs scores inputs whose name token appears anywhere inside the
// serialized decision-rule structure, found by recursive text search.
func (v *CoverageValidator) checkInputs(inputs []any, decisionRules any, result *CoverageResult) {
	inputNames := make(map[string]bool)
	for _, raw := range inputs {
		if m, ok := raw.(map[string]any); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				inputNames[name] = true
			}
		}
	}
	result.Metrics.InputsTotal = len(inputNames)

	referenced := make(map[string]bool)
	var walk func(obj any)
	walk = func(obj any) {
		switch o := obj.(type) {
		case string:
			for name := range inputNames {
				if strings.Contains(o, name) {
					referenced[name] = true
				}
			}
		case map[string]any:
			for _, val := range o {
				walk(val)
			}
		case []any:
			for _, item := range o {
				walk(item)
			}
		}
	}
	walk(decisionRules)

	result.Metrics.InputsReferenced = len(referenced)

	for _, name := range sortedKeys(inputNames) {
		if !referenced[name] {
			result.addGap("structural", "UNREFERENCED_INPUT", name,
				fmt.Sprintf("Input '%s' is not referenced in any decision rule", name),
				types.SeverityWarning)
		}
	}
}

// checkInputDomains surfaces constraint errors in declared domains;
// a range with min > max is an error, never silently swapped.
func (v *CoverageValidator) checkInputDomains(inputs []any, result *CoverageResult) {
	for _, raw := range inputs {
		input, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := input["name"].(string)
		if _, err := logic.DomainOf(input); errors.Is(err, types.ErrDomainBounds) {
			result.addGap("structural", "INVALID_DOMAIN", name,
				fmt.Sprintf("Input '%s' declares a range domain with min > max", name),
				types.SeverityError)
		}
	}
}

func (v *CoverageValidator) checkDefaultPath(decisionRules any, result *CoverageResult) {
	rules, _ := logic.ExtractRules(decisionRules)
	for _, r := range rules {
		if r.IsDefault {
			return
		}
		if when, ok := r.When.(bool); ok && when {
			return
		}
	}
	if len(rules) == 0 {
		return
	}
	result.addGap("structural", "NO_DEFAULT_PATH", "decision_rules",
		"No default path defined (add is_default: true to a rule)",
		types.SeverityWarning)
}

// checkStepChain verifies every step dependency was produced by an
// earlier step's output, strictly in declaration order.
func (v *CoverageValidator) checkStepChain(steps []map[string]any, result *CoverageResult) {
	produced := make(map[string]bool)
	for i, step := range steps {
		for _, dep := range stringsOf(step["based_on"]) {
			if !produced[dep] {
				stepID, _ := step["id"].(string)
				result.addGap("structural", "BROKEN_STEP_CHAIN",
					fmt.Sprintf("steps[%d].based_on", i),
					fmt.Sprintf("Step '%s' depends on '%s' which is not available", stepID, dep),
					types.SeverityError)
			}
		}
		if out, ok := step["output"].(string); ok && out != "" {
			produced[out] = true
		}
	}
}

func (v *CoverageValidator) checkEdgeCaseCompleteness(edgeCases []map[string]any, result *CoverageResult) {
	result.Metrics.EdgeCasesTotal = len(edgeCases)

	caseNames := make([]string, 0, len(edgeCases))
	for _, ec := range edgeCases {
		if _, ok := ec["input_example"]; ok && ec["input_example"] != nil {
			result.Metrics.EdgeCasesWithInput++
		}
		if name, ok := ec["case"].(string); ok {
			caseNames = append(caseNames, strings.ToLower(name))
		}
	}

	recommended := []struct{ keyword, description string }{
		{"empty", "empty input"},
		{"null", "null input"},
		{"boundary", "boundary conditions"},
	}
	for _, rec := range recommended {
		found := false
		for _, name := range caseNames {
			if strings.Contains(name, rec.keyword) {
				found = true
				break
			}
		}
		if !found {
			result.addGap("behavioral", "MISSING_EDGE_CASE", rec.description,
				fmt.Sprintf("Consider adding edge case for: %s", rec.description),
				types.SeverityWarning)
		}
	}
}

// BoundaryCoverage tracks which canonical boundary labels of one input
// domain are exercised by examples.
type BoundaryCoverage struct {
	Expected    []string
	Tested      []string
	Missing     []string
	CoveragePct float64
}

// BoundaryCoverageFor computes per-input boundary coverage from example
// records. Range domains expect six canonical labels; enums expect each
// declared value; booleans both values; strings/any empty vs non_empty.
func (v *CoverageValidator) BoundaryCoverageFor(doc types.Document, examples []types.Record) map[string]BoundaryCoverage {
	if len(examples) == 0 {
		return nil
	}

	inputs, _ := doc["inputs"].([]any)
	out := make(map[string]BoundaryCoverage)

	for _, raw := range inputs {
		input, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := input["name"].(string)
		if name == "" {
			continue
		}
		domain, err := logic.DomainOf(input)
		if err != nil {
			continue
		}
		out[name] = boundaryForDomain(domain, name, examples)
	}
	return out
}

func boundaryForDomain(domain logic.Domain, name string, examples []types.Record) BoundaryCoverage {
	var bc BoundaryCoverage
	tested := func(label string) {
		for _, t := range bc.Tested {
			if t == label {
				return
			}
		}
		bc.Tested = append(bc.Tested, label)
	}

	switch domain.Kind {
	case logic.DomainRange:
		type bound struct {
			label string
			value float64
		}
		var expected []bound
		if domain.HasMin {
			expected = append(expected,
				bound{"min", domain.Min},
				bound{"below_min", domain.Min - 1},
				bound{"above_min", domain.Min + 1})
		}
		if domain.HasMax {
			expected = append(expected,
				bound{"max", domain.Max},
				bound{"above_max", domain.Max + 1},
				bound{"below_max", domain.Max - 1})
		}
		for _, e := range expected {
			bc.Expected = append(bc.Expected, e.label)
		}
		for _, ex := range examples {
			val, ok := numberOf(ex[name])
			if !ok {
				continue
			}
			for _, e := range expected {
				if val == e.value {
					tested(e.label)
				}
			}
		}

	case logic.DomainEnum:
		for _, v := range domain.Values {
			bc.Expected = append(bc.Expected, logic.Stringify(v))
		}
		for _, ex := range examples {
			got := ex[name]
			for _, v := range domain.Values {
				if logic.Stringify(got) == logic.Stringify(v) && got != nil {
					tested(logic.Stringify(v))
				}
			}
		}

	case logic.DomainBoolean:
		bc.Expected = []string{"true", "false"}
		for _, ex := range examples {
			if b, ok := ex[name].(bool); ok {
				if b {
					tested("true")
				} else {
					tested("false")
				}
			}
		}

	default:
		bc.Expected = []string{"empty", "non_empty"}
		for _, ex := range examples {
			switch val := ex[name].(type) {
			case string:
				if val == "" {
					tested("empty")
				} else {
					tested("non_empty")
				}
			case nil:
			default:
				if logic.Truthy(val) {
					tested("non_empty")
				}
			}
		}
	}

	for _, e := range bc.Expected {
		found := false
		for _, t := range bc.Tested {
			if t == e {
				found = true
				break
			}
		}
		if !found {
			bc.Missing = append(bc.Missing, e)
		}
	}
	if len(bc.Expected) > 0 {
		bc.CoveragePct = round1(float64(len(bc.Tested)) / float64(len(bc.Expected)) * 100)
	}
	return bc
}

// InputSpace builds the bounded cartesian product of all input domains,
// truncated deterministically at the configured cap.
func (v *CoverageValidator) InputSpace(doc types.Document) []types.Record {
	inputs, _ := doc["inputs"].([]any)
	max := v.maxCombinations
	if max <= 0 {
		max = types.MaxCartesianCombinations
	}
	return logic.CartesianSpace(inputs, max)
}

// TestCoverageReport summarizes how well test inputs cover the generated
// input space and boundary labels.
type TestCoverageReport struct {
	TotalInputSpace        int
	CoveredCombinations    int
	CombinationCoveragePct float64
	BoundaryCoverage       map[string]BoundaryCoverage
	UncoveredBoundaries    map[string][]string
	Recommendations        []string
}

// AnalyzeTestCoverage scores provided test inputs against the generated
// input space and boundary expectations.
func (v *CoverageValidator) AnalyzeTestCoverage(doc types.Document, testInputs []types.Record) TestCoverageReport {
	space := v.InputSpace(doc)
	boundary := v.BoundaryCoverageFor(doc, testInputs)

	covered := 0
	for _, combo := range space {
		for _, test := range testInputs {
			if comboCovered(combo, test) {
				covered++
				break
			}
		}
	}

	report := TestCoverageReport{
		TotalInputSpace:     len(space),
		CoveredCombinations: covered,
		BoundaryCoverage:    boundary,
		UncoveredBoundaries: make(map[string][]string),
	}
	if len(space) > 0 {
		report.CombinationCoveragePct = round1(float64(covered) / float64(len(space)) * 100)
	}
	for name, bc := range boundary {
		if len(bc.Missing) > 0 {
			report.UncoveredBoundaries[name] = bc.Missing
		}
	}
	report.Recommendations = coverageRecommendations(boundary)
	return report
}

// comboCovered treats null combo values as "input absent is acceptable".
func comboCovered(combo, test types.Record) bool {
	for key, val := range combo {
		if val == nil {
			continue
		}
		got, ok := test[key]
		if !ok || logic.Stringify(got) != logic.Stringify(val) {
			return false
		}
	}
	return true
}

func coverageRecommendations(boundary map[string]BoundaryCoverage) []string {
	var recs []string
	for _, name := range sortedMapKeys(boundary) {
		bc := boundary[name]
		if len(bc.Missing) > 0 {
			show := bc.Missing
			if len(show) > 3 {
				show = show[:3]
			}
			recs = append(recs, fmt.Sprintf("Add test for '%s' with values: %s", name, strings.Join(show, ", ")))
		}
		if bc.CoveragePct < 50 {
			recs = append(recs, fmt.Sprintf("Input '%s' has low coverage (%.1f%%); consider adding more test cases", name, bc.CoveragePct))
		}
	}
	return recs
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
