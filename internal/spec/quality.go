package spec

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AiCoda/skill-spec/internal/types"
	"github.com/AiCoda/skill-spec/internal/validator"
)

/*
 * Quality layer.
 *
 * Scans the document's prose fields for forbidden patterns: vague
 * quantifiers, hand-waving action words, placeholder markers. Patterns
 * carry a category, a severity and a fix suggestion; the builtin set can
 * be extended from pattern YAML files.
 *
 * The walk visits every string in the document except identity fields
 * (names, ids, codes), which legitimately contain words the prose
 * patterns forbid.
 */

// Pattern is one forbidden-pattern definition.
type Pattern struct {
	Category string
	Severity types.Severity
	Regex    *regexp.Regexp
	Fix      string
}

// defaultPatterns is the builtin forbidden-pattern set.
var defaultPatterns = []Pattern{
	{
		Category: "VAGUE_QUANTIFIER",
		Severity: types.SeverityWarning,
		Regex:    regexp.MustCompile(`(?i)\b(some|several|various|a few|many|etc\.?)\b`),
		Fix:      "Replace with an exact count or an explicit list",
	},
	{
		Category: "HAND_WAVING",
		Severity: types.SeverityError,
		Regex:    regexp.MustCompile(`(?i)\b(handle appropriately|as needed|if necessary|when applicable|do the right thing)\b`),
		Fix:      "Spell out the concrete behavior",
	},
	{
		Category: "PLACEHOLDER",
		Severity: types.SeverityError,
		Regex:    regexp.MustCompile(`(?i)\b(TBD|TODO|FIXME|XXX|to be determined)\b`),
		Fix:      "Resolve the placeholder before validation",
	},
	{
		Category: "WEAK_OBLIGATION",
		Severity: types.SeverityWarning,
		Regex:    regexp.MustCompile(`(?i)\b(should probably|might want to|could possibly|ideally)\b`),
		Fix:      "Use must/must not, or drop the requirement",
	},
}

// identityFields are skipped by the prose scan.
var identityFields = map[string]bool{
	"name":    true,
	"id":      true,
	"code":    true,
	"output":  true,
	"version": true,
	"format":  true,
	"type":    true,
	"tags":    true,
	"when":    true,
}

// PatternValidator is the quality layer implementation.
type PatternValidator struct {
	patterns []Pattern
}

// NewPatternValidator returns a quality validator seeded with the
// builtin pattern set plus any extras.
func NewPatternValidator(extra ...Pattern) *PatternValidator {
	patterns := append([]Pattern(nil), defaultPatterns...)
	patterns = append(patterns, extra...)
	return &PatternValidator{patterns: patterns}
}

// PatternsFromYAML decodes extra patterns from a pattern definition
// document. Each entry needs a category and a regex; severity defaults
// to warning.
func PatternsFromYAML(content []byte) ([]Pattern, error) {
	var data struct {
		Patterns []struct {
			Category string `yaml:"category"`
			Severity string `yaml:"severity"`
			Regex    string `yaml:"regex"`
			Fix      string `yaml:"fix"`
		} `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}

	patterns := make([]Pattern, 0, len(data.Patterns))
	for _, raw := range data.Patterns {
		re, err := regexp.Compile(raw.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", raw.Category, err)
		}
		severity := types.SeverityWarning
		if raw.Severity != "" {
			severity = types.Severity(raw.Severity)
		}
		patterns = append(patterns, Pattern{
			Category: raw.Category,
			Severity: severity,
			Regex:    re,
			Fix:      raw.Fix,
		})
	}
	return patterns, nil
}

// ValidateQuality scans every prose string in the document.
func (v *PatternValidator) ValidateQuality(doc types.Document) validator.QualityResult {
	result := validator.QualityResult{
		Valid:          true,
		CategoryCounts: make(map[string]int),
	}

	v.walk(map[string]any(doc), "", &result)

	if result.TotalErrors() > 0 {
		result.Valid = false
	}
	return result
}

func (v *PatternValidator) walk(obj any, path string, result *validator.QualityResult) {
	switch o := obj.(type) {
	case string:
		v.scan(o, path, result)
	case map[string]any:
		for _, key := range sortedStringKeys(o) {
			if identityFields[key] {
				continue
			}
			v.walk(o[key], joinPath(path, key), result)
		}
	case []any:
		for i, item := range o {
			v.walk(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

func (v *PatternValidator) scan(text, path string, result *validator.QualityResult) {
	for _, pattern := range v.patterns {
		match := pattern.Regex.FindString(text)
		if match == "" {
			continue
		}
		result.Violations = append(result.Violations, validator.QualityViolation{
			Path:     path,
			Category: pattern.Category,
			Severity: pattern.Severity,
			Pattern:  pattern.Regex.String(),
			Matched:  match,
			Fix:      pattern.Fix,
		})
		result.CategoryCounts[pattern.Category]++
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func sortedStringKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
