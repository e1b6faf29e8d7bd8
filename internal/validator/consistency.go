package validator

import (
	"fmt"
	"strings"

	"github.com/AiCoda/skill-spec/internal/logic"
	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Consistency validation.
 *
 * Cross-references sections of a document against each other: the final
 * step against the output contract, edge-case error codes against
 * declared failure modes, rule outcome codes against failure modes,
 * orphan definitions nothing references, and works_with skill references
 * against a registry of known skills.
 *
 * The validator is load-then-freeze over known skills: the set is fixed
 * at construction and never mutated afterward, so concurrent validation
 * runs can share one instance.
 */

// ConsistencyIssue is one cross-reference finding.
type ConsistencyIssue struct {
	Category    string
	Source      string
	Target      string
	Description string
	Severity    types.Severity
}

func (i ConsistencyIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s -> %s: %s",
		strings.ToUpper(string(i.Severity)), i.Category, i.Source, i.Target, i.Description)
}

// ConsistencyResult is the consistency layer's sub-result.
type ConsistencyResult struct {
	Valid   bool
	Issues  []ConsistencyIssue
	Orphans []string
}

func (r *ConsistencyResult) addIssue(category, source, target, description string, severity types.Severity) {
	r.Issues = append(r.Issues, ConsistencyIssue{
		Category:    category,
		Source:      source,
		Target:      target,
		Description: description,
		Severity:    severity,
	})
	if severity == types.SeverityError {
		r.Valid = false
	}
}

// ConsistencyValidator cross-references document sections.
type ConsistencyValidator struct {
	knownSkills map[string]bool
}

// NewConsistencyValidator returns a consistency validator. knownSkills
// may be nil, in which case works_with references are not checked.
func NewConsistencyValidator(knownSkills map[string]bool) *ConsistencyValidator {
	return &ConsistencyValidator{knownSkills: knownSkills}
}

// Validate runs all consistency checks over a document.
func (v *ConsistencyValidator) Validate(doc types.Document) ConsistencyResult {
	result := ConsistencyResult{Valid: true}

	steps := mapsOf(doc["steps"])
	outputContract, _ := doc["output_contract"].(map[string]any)
	failureModes := mapsOf(doc["failure_modes"])
	edgeCases := mapsOf(doc["edge_cases"])
	decisionRules := doc["decision_rules"]
	context, _ := doc["context"].(map[string]any)

	v.checkStepsOutputContract(steps, outputContract, &result)
	v.checkFailureModesEdgeCases(failureModes, edgeCases, &result)
	v.checkDecisionRuleReferences(decisionRules, failureModes, &result)
	v.checkOrphans(doc, &result)
	v.checkContextReferences(context, &result)

	return result
}

// formatKeywords maps a contract format to action keywords that suggest
// the final step actually produces it.
var formatKeywords = map[string][]string{
	"json":     {"json", "serialize", "dict"},
	"text":     {"text", "string", "format"},
	"markdown": {"markdown", "md", "document"},
}

// checkStepsOutputContract verifies the last step defines an output and
// that its action plausibly produces the contract format.
func (v *ConsistencyValidator) checkStepsOutputContract(steps []map[string]any, contract map[string]any, result *ConsistencyResult) {
	if len(steps) == 0 {
		return
	}
	last := steps[len(steps)-1]
	lastIdx := len(steps) - 1

	if out, _ := last["output"].(string); out == "" {
		result.addIssue("MISSING_FINAL_OUTPUT",
			fmt.Sprintf("steps[%d]", lastIdx), "output_contract",
			"Last step has no output defined", types.SeverityWarning)
	}

	format, _ := contract["format"].(string)
	action, _ := last["action"].(string)
	if format == "" || action == "" {
		return
	}
	keywords, ok := formatKeywords[format]
	if !ok {
		return
	}
	lower := strings.ToLower(action)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return
		}
	}
	result.addIssue("FORMAT_MISMATCH",
		fmt.Sprintf("steps[%d].action", lastIdx),
		fmt.Sprintf("output_contract.format (%s)", format),
		fmt.Sprintf("Step action '%s' may not produce %s format", lower, format),
		types.SeverityWarning)
}

// checkFailureModesEdgeCases verifies edge-case error codes exist in
// failure_modes and retryable flags agree between the two sections.
func (v *ConsistencyValidator) checkFailureModesEdgeCases(failureModes, edgeCases []map[string]any, result *ConsistencyResult) {
	failureCodes := stringSet(failureModes, "code")

	referenced := make(map[string]bool)
	for _, ec := range edgeCases {
		if expected, ok := ec["expected"].(map[string]any); ok {
			if code, _ := expected["code"].(string); code != "" {
				referenced[code] = true
			}
			if status, _ := expected["status"].(string); status == "error" {
				if code, _ := expected["error_code"].(string); code != "" {
					referenced[code] = true
				}
			}
		}
		if code, _ := ec["covers_failure"].(string); code != "" {
			referenced[code] = true
		}
	}

	for _, code := range sortedKeys(referenced) {
		if !failureCodes[code] {
			result.addIssue("UNDEFINED_FAILURE_CODE",
				"edge_cases", "failure_modes."+code,
				fmt.Sprintf("Error code '%s' used in edge cases but not defined in failure_modes", code),
				types.SeverityError)
		}
	}

	for _, ec := range edgeCases {
		expected, ok := ec["expected"].(map[string]any)
		if !ok {
			continue
		}
		raw, present := expected["retryable"]
		if !present || raw == nil {
			continue
		}
		retryable, _ := raw.(bool)
		code, _ := expected["code"].(string)
		if code == "" {
			code, _ = ec["covers_failure"].(string)
		}
		if code == "" {
			continue
		}
		for _, fm := range failureModes {
			if fmCode, _ := fm["code"].(string); fmCode != code {
				continue
			}
			if fmRetry, _ := fm["retryable"].(bool); fmRetry != retryable {
				caseName, _ := ec["case"].(string)
				result.addIssue("RETRYABLE_MISMATCH",
					"edge_cases."+caseName, "failure_modes."+code,
					fmt.Sprintf("Retryable flag mismatch for '%s'", code),
					types.SeverityWarning)
			}
			break
		}
	}
}

// checkDecisionRuleReferences verifies rule outcome codes are declared
// failure codes.
func (v *ConsistencyValidator) checkDecisionRuleReferences(decisionRules any, failureModes []map[string]any, result *ConsistencyResult) {
	failureCodes := stringSet(failureModes, "code")

	rules, _ := logic.ExtractRules(decisionRules)
	for _, rule := range rules {
		code, _ := rule.Then["code"].(string)
		if code == "" || failureCodes[code] {
			continue
		}
		result.addIssue("UNDEFINED_RULE_CODE",
			fmt.Sprintf("decision_rules.%s.then.code", rule.ID),
			"failure_modes."+code,
			fmt.Sprintf("Code '%s' not defined in failure_modes", code),
			types.SeverityWarning)
	}
}

// checkOrphans finds step outputs nothing consumes (the final output is
// exempt) and failure modes neither rules nor edge cases reference. An
// orphan failure mode yields exactly one warning plus an orphan entry.
func (v *ConsistencyValidator) checkOrphans(doc types.Document, result *ConsistencyResult) {
	steps := mapsOf(doc["steps"])

	stepOutputs := stringSet(steps, "output")
	basedOn := make(map[string]bool)
	for _, step := range steps {
		for _, ref := range stringsOf(step["based_on"]) {
			basedOn[ref] = true
		}
	}

	finalOutput := ""
	if len(steps) > 0 {
		finalOutput, _ = steps[len(steps)-1]["output"].(string)
	}
	for _, out := range sortedKeys(stepOutputs) {
		if basedOn[out] || out == finalOutput {
			continue
		}
		result.Orphans = append(result.Orphans, "step output: "+out)
	}

	failureCodes := stringSet(mapsOf(doc["failure_modes"]), "code")

	referenced := make(map[string]bool)
	rules, _ := logic.ExtractRules(doc["decision_rules"])
	for _, rule := range rules {
		if code, _ := rule.Then["code"].(string); code != "" {
			referenced[code] = true
		}
	}
	for _, ec := range mapsOf(doc["edge_cases"]) {
		if expected, ok := ec["expected"].(map[string]any); ok {
			if code, _ := expected["code"].(string); code != "" {
				referenced[code] = true
			}
		}
		if code, _ := ec["covers_failure"].(string); code != "" {
			referenced[code] = true
		}
	}

	for _, code := range sortedKeys(failureCodes) {
		if referenced[code] {
			continue
		}
		result.Orphans = append(result.Orphans, "failure_mode: "+code)
		result.addIssue("ORPHAN_FAILURE_MODE",
			"failure_modes."+code, "(unused)",
			fmt.Sprintf("Failure mode '%s' is defined but never referenced", code),
			types.SeverityWarning)
	}
}

// checkContextReferences verifies works_with entries name known skills.
// Skipped entirely when no registry was provided.
func (v *ConsistencyValidator) checkContextReferences(context map[string]any, result *ConsistencyResult) {
	if len(context) == 0 || len(v.knownSkills) == 0 {
		return
	}
	for _, ref := range mapsOf(context["works_with"]) {
		name, _ := ref["skill"].(string)
		if name == "" || v.knownSkills[name] {
			continue
		}
		result.addIssue("UNKNOWN_SKILL_REFERENCE",
			"context.works_with", name,
			fmt.Sprintf("Referenced skill '%s' is not known", name),
			types.SeverityWarning)
	}
}
