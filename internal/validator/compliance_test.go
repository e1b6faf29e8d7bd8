package validator

import (
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func piiPolicy() Policy {
	return Policy{
		ID:      "pii-handling",
		Name:    "PII Handling",
		Version: "1.0.0",
		Rules: []PolicyRule{
			{
				ID:          "pii-requires-masking-step",
				Category:    "SECURITY",
				Severity:    types.SeverityError,
				Description: "Documents handling PII must declare a compliance section",
				Condition: map[string]any{
					"type": "any_input_has_tag",
					"tags": []any{"pii"},
				},
				RequiredAction: map[string]any{
					"type":    "require_section",
					"section": "compliance",
				},
			},
		},
	}
}

func TestComplianceValidate_ObligationViolated(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii"}},
		},
	}

	result := NewComplianceValidator(piiPolicy()).Validate(doc)
	if result.Valid {
		t.Fatalf("Valid = true, want false")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("len(Violations) = %d, want 1", len(result.Violations))
	}
	v := result.Violations[0]
	if v.PolicyID != "pii-handling" || v.RuleID != "pii-requires-masking-step" {
		t.Errorf("violation = %+v, want policy/rule ids set", v)
	}
	if v.RequiredAction != "Add section: compliance" {
		t.Errorf("RequiredAction = %q, want human-readable action", v.RequiredAction)
	}
	if result.CategorySummary["SECURITY"][types.SeverityError] != 1 {
		t.Errorf("CategorySummary = %v, want SECURITY error count 1", result.CategorySummary)
	}
}

func TestComplianceValidate_ObligationSatisfied(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii"}},
		},
		"compliance": map[string]any{"masking": "sha256"},
	}

	result := NewComplianceValidator(piiPolicy()).Validate(doc)
	if !result.Valid {
		t.Fatalf("Valid = false, want true; violations: %v", result.Violations)
	}
	if len(result.Violations) != 0 {
		t.Errorf("Violations = %v, want none", result.Violations)
	}
	if len(result.PoliciesChecked) != 1 || result.PoliciesChecked[0] != "pii-handling" {
		t.Errorf("PoliciesChecked = %v, want [pii-handling]", result.PoliciesChecked)
	}
}

func TestComplianceValidate_VacuousCondition(t *testing.T) {
	// Condition does not hold, so the obligation never applies.
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "count", "tags": []any{"numeric"}},
		},
	}

	result := NewComplianceValidator(piiPolicy()).Validate(doc)
	if !result.Valid || len(result.Violations) != 0 {
		t.Errorf("Violations = %v, want none for non-matching condition", result.Violations)
	}
}

func TestEvalCondition_Combinators(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii"}, "description": "user email address"},
		},
		"steps": []any{
			map[string]any{"id": "fetch", "action": "fetch profile from remote API"},
		},
		"output_contract": map[string]any{
			"schema": map[string]any{
				"fields": []any{
					map[string]any{"name": "hash", "type": "credential"},
				},
			},
		},
		"skill": map[string]any{"name": "profile-sync", "risk": "high"},
	}

	tests := []struct {
		name      string
		condition map[string]any
		want      bool
	}{
		{"tag present", map[string]any{"type": "any_input_has_tag", "tags": []any{"pii"}}, true},
		{"tag absent", map[string]any{"type": "any_input_has_tag", "tags": []any{"financial"}}, false},
		{"output type nested", map[string]any{"type": "output_contains_type", "types": []any{"credential"}}, true},
		{"external service keyword", map[string]any{"type": "uses_external_service"}, true},
		{"data type via description", map[string]any{"type": "handles_data_type", "data_types": []any{"EMAIL"}}, true},
		{"has field", map[string]any{"type": "has_field", "path": "skill.name"}, true},
		{"has field misses", map[string]any{"type": "has_field", "path": "skill.absent"}, false},
		{"field value in", map[string]any{"type": "field_value_in", "path": "skill.risk", "values": []any{"high", "critical"}}, true},
		{"field value not in", map[string]any{"type": "field_value_in", "path": "skill.risk", "values": []any{"low"}}, false},
		{
			"and",
			map[string]any{"type": "and", "conditions": []any{
				map[string]any{"type": "has_field", "path": "skill.name"},
				map[string]any{"type": "uses_external_service"},
			}},
			true,
		},
		{
			"or short circuits",
			map[string]any{"type": "or", "conditions": []any{
				map[string]any{"type": "has_field", "path": "skill.absent"},
				map[string]any{"type": "has_field", "path": "skill.name"},
			}},
			true,
		},
		{
			"not",
			map[string]any{"type": "not", "condition": map[string]any{"type": "has_field", "path": "skill.absent"}},
			true,
		},
		{"unknown type degrades to satisfied", map[string]any{"type": "future_check"}, true},
		{"empty condition", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalCondition(tt.condition, doc); got != tt.want {
				t.Errorf("evalCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionSatisfied(t *testing.T) {
	doc := types.Document{
		"skill": map[string]any{"name": "demo", "tier": "gold"},
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii"}},
		},
		"edge_cases": []any{
			map[string]any{"case": "Empty Payload Rejected"},
		},
	}

	tests := []struct {
		name   string
		action map[string]any
		want   bool
	}{
		{"require_field present", map[string]any{"type": "require_field", "path": "skill.name"}, true},
		{"require_field absent", map[string]any{"type": "require_field", "path": "skill.owner"}, false},
		{"require_section present", map[string]any{"type": "require_section", "section": "inputs"}, true},
		{"require_section absent", map[string]any{"type": "require_section", "section": "compliance"}, false},
		{"require_value_in hit", map[string]any{"type": "require_value_in", "path": "skill.tier", "values": []any{"gold"}}, true},
		{"require_tag hit", map[string]any{"type": "require_tag", "tag": "pii"}, true},
		{"require_edge_case case-insensitive", map[string]any{"type": "require_edge_case", "pattern": "empty payload"}, true},
		{"require_edge_case miss", map[string]any{"type": "require_edge_case", "pattern": "overflow"}, false},
		{"unknown action satisfied", map[string]any{"type": "future_action"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := actionSatisfied(doc, tt.action); got != tt.want {
				t.Errorf("actionSatisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicyFromYAML(t *testing.T) {
	content := []byte(`
policy:
  id: data-handling
  name: Data Handling Baseline
  version: 2.1.0
  description: Baseline obligations for data-processing skills.

security_rules:
  - id: external-needs-auth-note
    severity: error
    description: External calls must document credentials
    condition:
      type: uses_external_service
    required_action:
      type: require_field
      path: context.prerequisites

quality_rules:
  - description: rule with defaults
`)

	policy, err := PolicyFromYAML(content)
	if err != nil {
		t.Fatalf("PolicyFromYAML() error = %v, want nil", err)
	}
	if policy.ID != "data-handling" || policy.Version != "2.1.0" {
		t.Errorf("policy = %+v, want id/version from metadata", policy)
	}
	if len(policy.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(policy.Rules))
	}

	// Categories iterate in sorted key order: quality before security.
	if policy.Rules[0].Category != "QUALITY" {
		t.Errorf("Rules[0].Category = %q, want QUALITY", policy.Rules[0].Category)
	}
	if policy.Rules[0].ID != "unknown" || policy.Rules[0].Severity != types.SeverityWarning {
		t.Errorf("Rules[0] = %+v, want defaulted id and warning severity", policy.Rules[0])
	}

	sec := policy.Rules[1]
	if sec.Category != "SECURITY" || sec.Severity != types.SeverityError {
		t.Errorf("Rules[1] = %+v, want SECURITY error rule", sec)
	}
	if sec.Condition["type"] != "uses_external_service" {
		t.Errorf("Condition = %v, want uses_external_service", sec.Condition)
	}
}

func TestPolicyFromYAML_Invalid(t *testing.T) {
	if _, err := PolicyFromYAML([]byte("[unclosed")); err == nil {
		t.Errorf("PolicyFromYAML() error = nil, want decode error")
	}
}

func TestPolicyViolationString(t *testing.T) {
	v := PolicyViolation{
		RuleID: "r1", Category: "SECURITY", Severity: types.SeverityError,
		Description: "missing section", FieldPath: "compliance",
	}
	want := "[compliance] [ERROR] SECURITY/r1: missing section"
	if got := v.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
