package validator

import (
	"reflect"
	"strings"
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func dataTaxonomy() Taxonomy {
	return Taxonomy{
		ID:      "data-classification",
		Name:    "Data Classification",
		Version: "1.0.0",
		Tags: map[string]Tag{
			"pii":       {ID: "pii", Policies: []string{"masking"}},
			"pii:email": {ID: "pii:email", Inherits: []string{"pii"}, Policies: []string{"consent"}},
			"legacy":    {ID: "legacy", Deprecated: true, Replacement: "archived"},
			"archived":  {ID: "archived"},
		},
	}
}

func TestTaxonomyValidate_KnownTags(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii:email"}},
		},
	}

	result := NewTaxonomyValidator(dataTaxonomy()).Validate(doc)
	if !result.Valid {
		t.Fatalf("Valid = false, want true; violations: %v", result.Violations)
	}
	if !result.RecognizedTags["pii:email"] {
		t.Errorf("RecognizedTags = %v, want pii:email recognized", result.RecognizedTags)
	}
	// Policies accumulate through inheritance.
	want := []string{"consent", "masking"}
	if !reflect.DeepEqual(result.TriggeredPolicies["pii:email"], want) {
		t.Errorf("TriggeredPolicies = %v, want %v", result.TriggeredPolicies["pii:email"], want)
	}
}

func TestTaxonomyValidate_UnknownTagSuggestion(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pi"}},
		},
	}

	result := NewTaxonomyValidator(dataTaxonomy()).Validate(doc)
	if len(result.Violations) != 1 {
		t.Fatalf("len(Violations) = %d, want 1", len(result.Violations))
	}
	v := result.Violations[0]
	if v.IssueType != "unknown" || v.Severity != types.SeverityWarning {
		t.Errorf("violation = %+v, want unknown warning", v)
	}
	if !strings.Contains(v.Suggestion, "pii") {
		t.Errorf("Suggestion = %q, want pii suggested", v.Suggestion)
	}
	if v.FieldPath != "inputs[0].tags" {
		t.Errorf("FieldPath = %q, want inputs[0].tags", v.FieldPath)
	}
}

func TestTaxonomyValidate_WildcardNamespace(t *testing.T) {
	// Any pii-namespaced tag is recognized because pii:email exists.
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "phone", "tags": []any{"pii:phone"}},
		},
	}

	result := NewTaxonomyValidator(dataTaxonomy()).Validate(doc)
	if len(result.Violations) != 0 {
		t.Errorf("Violations = %v, want none for namespaced tag", result.Violations)
	}
	if !result.RecognizedTags["pii:phone"] {
		t.Errorf("RecognizedTags = %v, want pii:phone recognized via wildcard", result.RecognizedTags)
	}
}

func TestTaxonomyValidate_DeprecatedTag(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "blob", "tags": []any{"legacy"}},
		},
	}

	result := NewTaxonomyValidator(dataTaxonomy()).Validate(doc)
	if len(result.Violations) != 1 {
		t.Fatalf("len(Violations) = %d, want 1", len(result.Violations))
	}
	v := result.Violations[0]
	if v.IssueType != "deprecated" {
		t.Errorf("IssueType = %q, want deprecated", v.IssueType)
	}
	if v.Suggestion != "Use 'archived' instead" {
		t.Errorf("Suggestion = %q, want replacement named", v.Suggestion)
	}
}

func TestTaxonomyValidate_DepthExceeded(t *testing.T) {
	deep := Taxonomy{
		ID: "deep",
		Tags: map[string]Tag{
			"a": {ID: "a", Inherits: []string{"b"}},
			"b": {ID: "b", Inherits: []string{"c"}},
			"c": {ID: "c", Inherits: []string{"d"}},
			"d": {ID: "d"},
		},
	}
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "x", "tags": []any{"a"}},
		},
	}

	result := NewTaxonomyValidator(deep).Validate(doc)
	found := false
	for _, v := range result.Violations {
		if v.IssueType == "depth_exceeded" {
			found = true
		}
	}
	if !found {
		t.Errorf("Violations = %v, want depth_exceeded (chain 4 > max %d)",
			result.Violations, types.DefaultMaxInheritanceDepth)
	}
}

func TestTaxonomy_ResolveInheritanceCycle(t *testing.T) {
	cyclic := Taxonomy{
		Tags: map[string]Tag{
			"a": {ID: "a", Inherits: []string{"b"}},
			"b": {ID: "b", Inherits: []string{"a"}},
		},
	}

	chain := cyclic.ResolveInheritance("a")
	if !reflect.DeepEqual(chain, []string{"a", "b"}) {
		t.Errorf("chain = %v, want [a b] (cycle terminates, members once)", chain)
	}
}

func TestTaxonomy_ResolveInheritanceUnknownTag(t *testing.T) {
	if chain := dataTaxonomy().ResolveInheritance("missing"); chain != nil {
		t.Errorf("chain = %v, want nil", chain)
	}
}

func TestTaxonomy_PoliciesForTag(t *testing.T) {
	got := dataTaxonomy().PoliciesForTag("pii:email")
	want := []string{"consent", "masking"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PoliciesForTag() = %v, want %v", got, want)
	}
	if got := dataTaxonomy().PoliciesForTag("archived"); got != nil {
		t.Errorf("PoliciesForTag(archived) = %v, want nil", got)
	}
}

func TestTaxonomy_MaxInheritanceDepth(t *testing.T) {
	tx := Taxonomy{Constraints: map[string]any{"max_inheritance_depth": 7}}
	if got := tx.MaxInheritanceDepth(); got != 7 {
		t.Errorf("MaxInheritanceDepth() = %d, want 7", got)
	}
	if got := (Taxonomy{}).MaxInheritanceDepth(); got != types.DefaultMaxInheritanceDepth {
		t.Errorf("MaxInheritanceDepth() = %d, want default %d", got, types.DefaultMaxInheritanceDepth)
	}
}

func TestTaxonomyFromYAML(t *testing.T) {
	content := []byte(`
taxonomy:
  id: data-classification
  name: Data Classification
  version: 1.2.0

constraints:
  max_inheritance_depth: 5

categories:
  sensitivity:
    description: Data sensitivity levels
    tags:
      - id: pii
        description: Personally identifiable information
        policies: [masking]
      - id: pii:email
        inherits: [pii]
      - id: legacy
        deprecated: true
        replacement: archived
`)

	tx, err := TaxonomyFromYAML(content)
	if err != nil {
		t.Fatalf("TaxonomyFromYAML() error = %v, want nil", err)
	}
	if tx.ID != "data-classification" || tx.Version != "1.2.0" {
		t.Errorf("taxonomy = %+v, want id/version from metadata", tx)
	}
	if tx.MaxInheritanceDepth() != 5 {
		t.Errorf("MaxInheritanceDepth() = %d, want 5", tx.MaxInheritanceDepth())
	}

	// Declared tags plus the category name itself.
	for _, id := range []string{"pii", "pii:email", "legacy", "sensitivity"} {
		if _, ok := tx.Tags[id]; !ok {
			t.Errorf("Tags missing %q", id)
		}
	}
	if !tx.Tags["legacy"].Deprecated || tx.Tags["legacy"].Replacement != "archived" {
		t.Errorf("legacy tag = %+v, want deprecated with replacement", tx.Tags["legacy"])
	}

	ids := tx.AllTagIDs()
	if !ids["pii:*"] {
		t.Errorf("AllTagIDs() missing pii:* wildcard")
	}
}

func TestPolicyTriggers(t *testing.T) {
	doc := types.Document{
		"inputs": []any{
			map[string]any{"name": "email", "tags": []any{"pii:email"}},
			map[string]any{"name": "name", "tags": []any{"pii"}},
		},
	}

	triggers := NewTaxonomyValidator(dataTaxonomy()).PolicyTriggers(doc)
	masking := triggers["masking"]
	if len(masking) != 2 {
		t.Fatalf("masking triggers = %v, want 2", masking)
	}
	if masking[0].FieldPath != "inputs[0]" || masking[1].FieldPath != "inputs[1]" {
		t.Errorf("masking = %v, want inputs[0] then inputs[1]", masking)
	}
	if len(triggers["consent"]) != 1 || triggers["consent"][0].Tag != "pii:email" {
		t.Errorf("consent triggers = %v, want single pii:email trigger", triggers["consent"])
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("pii", "pii"); got != 1 {
		t.Errorf("similarity(identical) = %v, want 1", got)
	}
	if got := similarity("", "pii"); got != 0 {
		t.Errorf("similarity(empty) = %v, want 0", got)
	}
	if got := similarity("pii", "zzz"); got != 0 {
		t.Errorf("similarity(disjoint) = %v, want 0", got)
	}
	// One edit over three characters.
	if got := similarity("pii", "pix"); got < 0.6 || got > 0.7 {
		t.Errorf("similarity(pii, pix) = %v, want about 0.667", got)
	}
}

func TestCloseMatches_CapAndOrder(t *testing.T) {
	known := map[string]bool{
		"tag-one": true, "tag-two": true, "tag-ten": true, "tag-six": true, "other": true,
	}
	matches := closeMatches("tag-on", known)
	if len(matches) > types.MaxTagSuggestions {
		t.Fatalf("len(matches) = %d, want at most %d", len(matches), types.MaxTagSuggestions)
	}
	if len(matches) == 0 || matches[0] != "tag-one" {
		t.Errorf("matches = %v, want tag-one first", matches)
	}
}
