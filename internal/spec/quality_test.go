package spec

import (
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func TestValidateQuality_CleanDocument(t *testing.T) {
	doc := types.Document{
		"skill": map[string]any{"name": "demo", "description": "Routes payment records to exactly one queue."},
		"steps": []any{
			map[string]any{"id": "route", "action": "Assign the record to the queue its tier maps to."},
		},
	}

	result := NewPatternValidator().ValidateQuality(doc)
	if !result.Valid {
		t.Fatalf("Valid = false, want true; violations: %v", result.Violations)
	}
	if len(result.Violations) != 0 {
		t.Errorf("Violations = %v, want none", result.Violations)
	}
}

func TestValidateQuality_BuiltinPatterns(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category string
		severity types.Severity
	}{
		{"vague quantifier", "retry several times", "VAGUE_QUANTIFIER", types.SeverityWarning},
		{"hand waving", "handle appropriately on failure", "HAND_WAVING", types.SeverityError},
		{"placeholder", "TBD after design review", "PLACEHOLDER", types.SeverityError},
		{"weak obligation", "you might want to retry", "WEAK_OBLIGATION", types.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := types.Document{
				"skill": map[string]any{"description": tt.text},
			}
			result := NewPatternValidator().ValidateQuality(doc)
			if len(result.Violations) != 1 {
				t.Fatalf("len(Violations) = %d, want 1", len(result.Violations))
			}
			v := result.Violations[0]
			if v.Category != tt.category || v.Severity != tt.severity {
				t.Errorf("violation = %+v, want %s %s", v, tt.category, tt.severity)
			}
			if v.Path != "skill.description" {
				t.Errorf("Path = %q, want skill.description", v.Path)
			}
			if v.Fix == "" {
				t.Errorf("Fix empty, want a suggestion")
			}
		})
	}
}

func TestValidateQuality_ErrorSeverityFailsResult(t *testing.T) {
	doc := types.Document{
		"skill": map[string]any{"description": "TODO write this"},
	}
	result := NewPatternValidator().ValidateQuality(doc)
	if result.Valid {
		t.Errorf("Valid = true, want false for error-severity violation")
	}

	doc["skill"] = map[string]any{"description": "retry several times"}
	result = NewPatternValidator().ValidateQuality(doc)
	if !result.Valid {
		t.Errorf("Valid = false, want true for warnings only")
	}
}

func TestValidateQuality_IdentityFieldsSkipped(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			// "some" in a name field is identity, not prose.
			map[string]any{"name": "some_field", "description": "A well-specified field."},
		},
		"failure_modes": []any{
			map[string]any{"code": "TODO_LATER"},
		},
		"decision_rules": []any{
			map[string]any{"id": "r", "when": "status == 'some'", "then": map[string]any{}},
		},
	}

	result := NewPatternValidator().ValidateQuality(doc)
	if len(result.Violations) != 0 {
		t.Errorf("Violations = %v, want none for identity fields", result.Violations)
	}
}

func TestValidateQuality_PathsAndCounts(t *testing.T) {
	doc := types.Document{
		"steps": []any{
			map[string]any{"id": "a", "action": "do various things as needed"},
		},
	}

	result := NewPatternValidator().ValidateQuality(doc)
	if len(result.Violations) != 2 {
		t.Fatalf("len(Violations) = %d, want 2", len(result.Violations))
	}
	for _, v := range result.Violations {
		if v.Path != "steps[0].action" {
			t.Errorf("Path = %q, want steps[0].action", v.Path)
		}
	}
	if result.CategoryCounts["VAGUE_QUANTIFIER"] != 1 || result.CategoryCounts["HAND_WAVING"] != 1 {
		t.Errorf("CategoryCounts = %v, want one each", result.CategoryCounts)
	}
}

func TestValidateQuality_ExtraPatterns(t *testing.T) {
	extra, err := PatternsFromYAML([]byte(`
patterns:
  - category: MARKETING_SPEAK
    severity: error
    regex: (?i)\b(world-class|best-in-class)\b
    fix: Describe behavior, not quality claims
  - category: DEFAULTED
    regex: lorem ipsum
`))
	if err != nil {
		t.Fatalf("PatternsFromYAML() error = %v, want nil", err)
	}
	if len(extra) != 2 {
		t.Fatalf("len(patterns) = %d, want 2", len(extra))
	}
	if extra[1].Severity != types.SeverityWarning {
		t.Errorf("Severity = %v, want warning default", extra[1].Severity)
	}

	doc := types.Document{
		"skill": map[string]any{"description": "A world-class router."},
	}
	result := NewPatternValidator(extra...).ValidateQuality(doc)
	if result.Valid {
		t.Fatalf("Valid = true, want false")
	}
	if result.Violations[0].Category != "MARKETING_SPEAK" {
		t.Errorf("Category = %q, want MARKETING_SPEAK", result.Violations[0].Category)
	}
}

func TestPatternsFromYAML_InvalidRegex(t *testing.T) {
	_, err := PatternsFromYAML([]byte(`
patterns:
  - category: BROKEN
    regex: "[unclosed"
`))
	if err == nil {
		t.Errorf("PatternsFromYAML() error = nil, want compile error")
	}
}

func TestValidateQuality_DeterministicOrder(t *testing.T) {
	doc := types.Document{
		"zeta":  "some text",
		"alpha": "several things",
	}

	first := NewPatternValidator().ValidateQuality(doc)
	for i := 0; i < 5; i++ {
		again := NewPatternValidator().ValidateQuality(doc)
		if len(again.Violations) != len(first.Violations) {
			t.Fatalf("run %d: violation count differs", i)
		}
		for j := range again.Violations {
			if again.Violations[j] != first.Violations[j] {
				t.Fatalf("run %d: violation order differs at %d", i, j)
			}
		}
	}
	if first.Violations[0].Path != "alpha" {
		t.Errorf("Violations[0].Path = %q, want alpha (sorted key order)", first.Violations[0].Path)
	}
}
