package spec

import (
	"fmt"
	"regexp"

	"github.com/AiCoda/skill-spec/internal/types"
	"github.com/AiCoda/skill-spec/internal/validator"
)

/*
 * Structure layer.
 *
 * This is the gating layer: every downstream validator assumes the
 * shapes checked here, so a structural error stops the pipeline. The
 * checks are deliberately shallow (section types, identity fields,
 * duplicates) and leave semantic judgement to the later layers.
 */

var semverRe = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?(\+[a-zA-Z0-9.]+)?$`)

// listSections are top-level sections that must decode as lists when
// present.
var listSections = []string{"inputs", "steps", "failure_modes", "edge_cases"}

// StructureValidator is the structure layer implementation.
type StructureValidator struct{}

// NewStructureValidator returns a structure validator.
func NewStructureValidator() *StructureValidator { return &StructureValidator{} }

// ValidateStructure checks the document's shape.
func (v *StructureValidator) ValidateStructure(doc types.Document) validator.StructuralResult {
	result := validator.StructuralResult{Valid: true}

	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		result.Valid = false
	}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	if len(doc) == 0 {
		fail("document is empty")
		return result
	}

	skill, ok := doc["skill"].(map[string]any)
	if !ok {
		fail("missing required section: skill")
	} else {
		if name, _ := skill["name"].(string); name == "" {
			fail("skill.name is required")
		}
		switch version, _ := skill["version"].(string); {
		case version == "":
			warn("skill.version is missing")
		case !semverRe.MatchString(version):
			warn("skill.version %q is not a semantic version", version)
		}
	}

	for _, section := range listSections {
		raw, present := doc[section]
		if !present || raw == nil {
			continue
		}
		if _, ok := raw.([]any); !ok {
			fail("section %q must be a list", section)
		}
	}

	v.checkInputs(doc, fail, warn)
	v.checkSteps(doc, fail)
	v.checkEdgeCases(doc, warn)
	v.checkDecisionRules(doc, warn)

	return result
}

func (v *StructureValidator) checkInputs(doc types.Document, fail, warn func(string, ...any)) {
	raw, ok := doc["inputs"].([]any)
	if !ok {
		return
	}
	seen := make(map[string]bool)
	for i, entry := range raw {
		input, ok := entry.(map[string]any)
		if !ok {
			fail("inputs[%d] must be a mapping", i)
			continue
		}
		name, _ := input["name"].(string)
		if name == "" {
			fail("inputs[%d].name is required", i)
			continue
		}
		if seen[name] {
			fail("duplicate input name %q", name)
		}
		seen[name] = true
	}
}

func (v *StructureValidator) checkSteps(doc types.Document, fail func(string, ...any)) {
	raw, ok := doc["steps"].([]any)
	if !ok {
		return
	}
	seen := make(map[string]bool)
	for i, entry := range raw {
		step, ok := entry.(map[string]any)
		if !ok {
			fail("steps[%d] must be a mapping", i)
			continue
		}
		id, _ := step["id"].(string)
		if id == "" {
			fail("steps[%d].id is required", i)
			continue
		}
		if seen[id] {
			fail("duplicate step id %q", id)
		}
		seen[id] = true
	}
}

func (v *StructureValidator) checkEdgeCases(doc types.Document, warn func(string, ...any)) {
	raw, ok := doc["edge_cases"].([]any)
	if !ok {
		return
	}
	for i, entry := range raw {
		ec, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := ec["case"].(string); name == "" {
			warn("edge_cases[%d] has no case name", i)
		}
	}
}

// checkDecisionRules accepts the three rule-set shapes; anything else is
// flagged but not fatal, the rule engine treats it as an empty rule set.
func (v *StructureValidator) checkDecisionRules(doc types.Document, warn func(string, ...any)) {
	raw, present := doc["decision_rules"]
	if !present || raw == nil {
		return
	}
	switch raw.(type) {
	case []any, map[string]any:
	default:
		warn("decision_rules has an unrecognized shape; no rules will be evaluated")
	}
}
