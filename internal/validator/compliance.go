package validator

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AiCoda/skill-spec/internal/logic"
	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Policy compliance validation.
 *
 * Policies are obligations of the form "when the condition holds, the
 * required action must be satisfied". A rule whose condition does not
 * hold is vacuously compliant; a rule with no required action never
 * violates. Conditions form a small combinator language (tag checks,
 * schema type checks, keyword heuristics, field lookups, and/or/not);
 * unknown condition types evaluate to satisfied so that documents
 * validated against a newer policy vocabulary degrade to fewer checks
 * instead of false violations.
 */

// PolicyViolation is one unmet policy obligation.
type PolicyViolation struct {
	PolicyID       string
	RuleID         string
	Category       string
	Severity       types.Severity
	Description    string
	FieldPath      string
	RequiredAction string
}

func (v PolicyViolation) String() string {
	loc := ""
	if v.FieldPath != "" {
		loc = fmt.Sprintf("[%s] ", v.FieldPath)
	}
	return fmt.Sprintf("%s[%s] %s/%s: %s",
		loc, strings.ToUpper(string(v.Severity)), v.Category, v.RuleID, v.Description)
}

// ComplianceResult is the compliance layer's sub-result.
type ComplianceResult struct {
	Valid           bool
	Violations      []PolicyViolation
	PoliciesChecked []string
	CategorySummary map[string]map[types.Severity]int
}

func (r *ComplianceResult) addViolation(v PolicyViolation) {
	r.Violations = append(r.Violations, v)

	if r.CategorySummary == nil {
		r.CategorySummary = make(map[string]map[types.Severity]int)
	}
	if _, ok := r.CategorySummary[v.Category]; !ok {
		r.CategorySummary[v.Category] = map[types.Severity]int{
			types.SeverityError:   0,
			types.SeverityWarning: 0,
			types.SeverityInfo:    0,
		}
	}
	r.CategorySummary[v.Category][v.Severity]++

	if v.Severity == types.SeverityError {
		r.Valid = false
	}
}

// TotalErrors counts error-severity violations.
func (r ComplianceResult) TotalErrors() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == types.SeverityError {
			n++
		}
	}
	return n
}

// TotalWarnings counts warning-severity violations.
func (r ComplianceResult) TotalWarnings() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == types.SeverityWarning {
			n++
		}
	}
	return n
}

// PolicyRule is one obligation within a policy.
type PolicyRule struct {
	ID             string
	Category       string
	Severity       types.Severity
	Description    string
	Condition      map[string]any
	RequiredAction map[string]any
}

// Policy is a named, versioned set of policy rules.
type Policy struct {
	ID          string
	Name        string
	Version     string
	Description string
	Extends     string
	Rules       []PolicyRule
}

// PolicyFromYAML decodes a policy document. Top-level keys other than
// "policy" are rule categories; a key like security_rules yields the
// SECURITY category.
func PolicyFromYAML(content []byte) (Policy, error) {
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	meta, _ := data["policy"].(map[string]any)
	policy := Policy{
		ID:      "unknown",
		Name:    "Unknown Policy",
		Version: "1.0.0",
	}
	if id, _ := meta["id"].(string); id != "" {
		policy.ID = id
	}
	if name, _ := meta["name"].(string); name != "" {
		policy.Name = name
	}
	if version, _ := meta["version"].(string); version != "" {
		policy.Version = version
	}
	policy.Description, _ = meta["description"].(string)
	policy.Extends, _ = meta["extends"].(string)

	for _, category := range sortedMapKeys(data) {
		if category == "policy" {
			continue
		}
		for _, raw := range mapsOf(data[category]) {
			rule := PolicyRule{
				ID:       "unknown",
				Category: strings.ToUpper(strings.TrimSuffix(category, "_rules")),
				Severity: types.SeverityWarning,
			}
			if id, _ := raw["id"].(string); id != "" {
				rule.ID = id
			}
			if sev, _ := raw["severity"].(string); sev != "" {
				rule.Severity = types.Severity(sev)
			}
			rule.Description, _ = raw["description"].(string)
			rule.Condition, _ = raw["condition"].(map[string]any)
			rule.RequiredAction, _ = raw["required_action"].(map[string]any)
			policy.Rules = append(policy.Rules, rule)
		}
	}
	return policy, nil
}

// ComplianceValidator checks documents against loaded policies.
type ComplianceValidator struct {
	policies []Policy
}

// NewComplianceValidator returns a compliance validator over the given
// policies.
func NewComplianceValidator(policies ...Policy) *ComplianceValidator {
	return &ComplianceValidator{policies: policies}
}

// AddPolicy appends a policy to the validation set.
func (v *ComplianceValidator) AddPolicy(p Policy) {
	v.policies = append(v.policies, p)
}

// Validate checks the document against every loaded policy.
func (v *ComplianceValidator) Validate(doc types.Document) ComplianceResult {
	result := ComplianceResult{Valid: true}

	for _, policy := range v.policies {
		result.PoliciesChecked = append(result.PoliciesChecked, policy.ID)
		for _, rule := range policy.Rules {
			if !evalCondition(rule.Condition, doc) {
				continue
			}
			if rule.RequiredAction == nil {
				continue
			}
			if actionSatisfied(doc, rule.RequiredAction) {
				continue
			}
			path, _ := rule.RequiredAction["path"].(string)
			result.addViolation(PolicyViolation{
				PolicyID:       policy.ID,
				RuleID:         rule.ID,
				Category:       rule.Category,
				Severity:       rule.Severity,
				Description:    rule.Description,
				FieldPath:      path,
				RequiredAction: formatRequiredAction(rule.RequiredAction),
			})
		}
	}
	return result
}

// evalCondition evaluates a policy condition. An empty condition and an
// unknown condition type are both satisfied.
func evalCondition(condition map[string]any, doc types.Document) bool {
	if len(condition) == 0 {
		return true
	}

	switch condition["type"] {
	case "any_input_has_tag":
		return anyInputHasTag(doc, stringsOf(condition["tags"]))
	case "output_contains_type":
		return outputContainsType(doc, stringsOf(condition["types"]))
	case "uses_external_service":
		return usesExternalService(doc)
	case "handles_data_type":
		return handlesDataType(doc, stringsOf(condition["data_types"]))
	case "has_field":
		path, _ := condition["path"].(string)
		return hasField(doc, path)
	case "field_value_in":
		path, _ := condition["path"].(string)
		values, _ := condition["values"].([]any)
		return fieldValueIn(doc, path, values)
	case "and":
		for _, sub := range mapsOf(condition["conditions"]) {
			if !evalCondition(sub, doc) {
				return false
			}
		}
		return true
	case "or":
		for _, sub := range mapsOf(condition["conditions"]) {
			if evalCondition(sub, doc) {
				return true
			}
		}
		return false
	case "not":
		sub, _ := condition["condition"].(map[string]any)
		return !evalCondition(sub, doc)
	}
	return true
}

func anyInputHasTag(doc types.Document, tags []string) bool {
	for _, input := range mapsOf(doc["inputs"]) {
		inputTags := stringsOf(input["tags"])
		for _, tag := range tags {
			for _, have := range inputTags {
				if have == tag {
					return true
				}
			}
		}
	}
	return false
}

// outputContainsType walks the output schema looking for a type field
// matching any of the given type names, at any nesting depth.
func outputContainsType(doc types.Document, typeNames []string) bool {
	contract, _ := doc["output_contract"].(map[string]any)
	schema := contract["schema"]

	var walk func(s any) bool
	walk = func(s any) bool {
		switch node := s.(type) {
		case map[string]any:
			if t, _ := node["type"].(string); t != "" {
				for _, name := range typeNames {
					if t == name {
						return true
					}
				}
			}
			for _, val := range node {
				if walk(val) {
					return true
				}
			}
		case []any:
			for _, item := range node {
				if walk(item) {
					return true
				}
			}
		}
		return false
	}
	return walk(schema)
}

// usesExternalService is a keyword heuristic over step actions and
// context prerequisites.
func usesExternalService(doc types.Document) bool {
	actionKeywords := []string{"api", "http", "fetch", "request", "external", "remote"}
	for _, step := range mapsOf(doc["steps"]) {
		action, _ := step["action"].(string)
		lower := strings.ToLower(action)
		for _, kw := range actionKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}

	context, _ := doc["context"].(map[string]any)
	prereqKeywords := []string{"api", "credential", "token", "key"}
	for _, prereq := range stringsOf(context["prerequisites"]) {
		lower := strings.ToLower(prereq)
		for _, kw := range prereqKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// handlesDataType matches data types against input tags exactly and
// against input descriptions case-insensitively.
func handlesDataType(doc types.Document, dataTypes []string) bool {
	for _, input := range mapsOf(doc["inputs"]) {
		tags := stringsOf(input["tags"])
		for _, dt := range dataTypes {
			for _, tag := range tags {
				if tag == dt {
					return true
				}
			}
		}
		desc, _ := input["description"].(string)
		lower := strings.ToLower(desc)
		for _, dt := range dataTypes {
			if dt != "" && strings.Contains(lower, strings.ToLower(dt)) {
				return true
			}
		}
	}
	return false
}

// hasField walks a dotted path through nested mappings; the field exists
// when the walk completes and lands on a non-null value.
func hasField(doc types.Document, path string) bool {
	val, ok := lookupPath(doc, path)
	return ok && val != nil
}

func fieldValueIn(doc types.Document, path string, values []any) bool {
	val, ok := lookupPath(doc, path)
	if !ok {
		return false
	}
	for _, allowed := range values {
		if logic.Stringify(val) == logic.Stringify(allowed) {
			return true
		}
	}
	return false
}

func lookupPath(doc types.Document, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = map[string]any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// actionSatisfied checks a required action against the document. Unknown
// action types are treated as satisfied.
func actionSatisfied(doc types.Document, action map[string]any) bool {
	switch action["type"] {
	case "require_field":
		path, _ := action["path"].(string)
		return hasField(doc, path)
	case "require_section":
		section, _ := action["section"].(string)
		return logic.Truthy(doc[section])
	case "require_value_in":
		path, _ := action["path"].(string)
		values, _ := action["values"].([]any)
		return fieldValueIn(doc, path, values)
	case "require_tag":
		tag, _ := action["tag"].(string)
		return anyInputHasTag(doc, []string{tag})
	case "require_edge_case":
		pattern, _ := action["pattern"].(string)
		lower := strings.ToLower(pattern)
		for _, ec := range mapsOf(doc["edge_cases"]) {
			name, _ := ec["case"].(string)
			if strings.Contains(strings.ToLower(name), lower) {
				return true
			}
		}
		return false
	}
	return true
}

func formatRequiredAction(action map[string]any) string {
	switch action["type"] {
	case "require_field":
		return fmt.Sprintf("Add field: %v", action["path"])
	case "require_section":
		return fmt.Sprintf("Add section: %v", action["section"])
	case "require_value_in":
		return fmt.Sprintf("Set %v to one of: %v", action["path"], action["values"])
	case "require_tag":
		return fmt.Sprintf("Add tag: %v", action["tag"])
	case "require_edge_case":
		return fmt.Sprintf("Add edge case matching: %v", action["pattern"])
	}
	return fmt.Sprintf("%v", action)
}
