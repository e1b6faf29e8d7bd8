package spec

import (
	"strings"
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func TestValidateStructure_ValidDocument(t *testing.T) {
	doc := types.Document{
		"skill": map[string]any{"name": "demo", "version": "1.2.3"},
		"inputs": []any{
			map[string]any{"name": "amount"},
		},
		"steps": []any{
			map[string]any{"id": "emit", "action": "serialize", "output": "payload"},
		},
	}

	result := NewStructureValidator().ValidateStructure(doc)
	if !result.Valid {
		t.Fatalf("Valid = false, want true; errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 || len(result.Warnings) != 0 {
		t.Errorf("findings = %v / %v, want none", result.Errors, result.Warnings)
	}
}

func TestValidateStructure_EmptyDocument(t *testing.T) {
	result := NewStructureValidator().ValidateStructure(types.Document{})
	if result.Valid {
		t.Fatalf("Valid = true, want false")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "document is empty" {
		t.Errorf("Errors = %v, want [document is empty]", result.Errors)
	}
}

func TestValidateStructure_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     types.Document
		wantErr string
	}{
		{
			"missing skill section",
			types.Document{"inputs": []any{}},
			"missing required section: skill",
		},
		{
			"missing skill name",
			types.Document{"skill": map[string]any{"version": "1.0.0"}},
			"skill.name is required",
		},
		{
			"section not a list",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"}, "steps": "not a list"},
			`section "steps" must be a list`,
		},
		{
			"input without name",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"inputs": []any{map[string]any{"type": "string"}}},
			"inputs[0].name is required",
		},
		{
			"duplicate input names",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"inputs": []any{
					map[string]any{"name": "amount"},
					map[string]any{"name": "amount"},
				}},
			`duplicate input name "amount"`,
		},
		{
			"step without id",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"steps": []any{map[string]any{"action": "do"}}},
			"steps[0].id is required",
		},
		{
			"duplicate step ids",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"steps": []any{
					map[string]any{"id": "emit"},
					map[string]any{"id": "emit"},
				}},
			`duplicate step id "emit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewStructureValidator().ValidateStructure(tt.doc)
			if result.Valid {
				t.Fatalf("Valid = true, want false")
			}
			found := false
			for _, e := range result.Errors {
				if e == tt.wantErr {
					found = true
				}
			}
			if !found {
				t.Errorf("Errors = %v, want %q", result.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidateStructure_Warnings(t *testing.T) {
	tests := []struct {
		name     string
		doc      types.Document
		wantWarn string
	}{
		{
			"missing version",
			types.Document{"skill": map[string]any{"name": "x"}},
			"skill.version is missing",
		},
		{
			"non-semver version",
			types.Document{"skill": map[string]any{"name": "x", "version": "latest"}},
			`skill.version "latest" is not a semantic version`,
		},
		{
			"edge case without name",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"edge_cases": []any{map[string]any{"expected": map[string]any{}}}},
			"edge_cases[0] has no case name",
		},
		{
			"unrecognized decision rules shape",
			types.Document{"skill": map[string]any{"name": "x", "version": "1.0.0"},
				"decision_rules": "free text"},
			"decision_rules has an unrecognized shape; no rules will be evaluated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewStructureValidator().ValidateStructure(tt.doc)
			if !result.Valid {
				t.Fatalf("Valid = false, want true (warnings only); errors: %v", result.Errors)
			}
			found := false
			for _, w := range result.Warnings {
				if w == tt.wantWarn {
					found = true
				}
			}
			if !found {
				t.Errorf("Warnings = %v, want %q", result.Warnings, tt.wantWarn)
			}
		})
	}
}

func TestValidateStructure_SemverVariants(t *testing.T) {
	for _, version := range []string{"1.0.0", "v2.3.4", "1.0.0-beta.1", "1.0.0+build.5"} {
		doc := types.Document{"skill": map[string]any{"name": "x", "version": version}}
		result := NewStructureValidator().ValidateStructure(doc)
		for _, w := range result.Warnings {
			if strings.Contains(w, "semantic version") {
				t.Errorf("version %q flagged as non-semver", version)
			}
		}
	}
}
