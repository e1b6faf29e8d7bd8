package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/AiCoda/skill-spec/internal/logic"
	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * String constraint validation.
 *
 * Input definitions of type string may carry a constraints mapping:
 * min_length, max_length, pattern, enum, format. Two distinct checks
 * exist: the constraint DEFINITIONS themselves are validated for
 * well-formedness (negative lengths, unparseable regexes, empty enums),
 * and sample VALUES are validated against well-formed constraints.
 *
 * Formats are a named-pattern registry seeded with the builtin set;
 * custom formats registered at construction shadow builtins of the same
 * name. Patterns match from the start of the value, not anywhere inside
 * it.
 */

// builtinFormats is the predefined format registry.
var builtinFormats = map[string]*regexp.Regexp{
	"email":      regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
	"url":        regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`),
	"uri":        regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^\s]*$`),
	"uuid":       regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
	"date":       regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"datetime":   regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
	"time":       regexp.MustCompile(`^\d{2}:\d{2}:\d{2}`),
	"ipv4":       regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`),
	"ipv6":       regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`),
	"hostname":   regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z]{2,})+$`),
	"semver":     regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?(\+[a-zA-Z0-9.]+)?$`),
	"slug":       regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`),
	"kebab-case": regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`),
	"snake_case": regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`),
	"PascalCase": regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`),
	"camelCase":  regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
	"json-path":  regexp.MustCompile(`^\$(\.[a-zA-Z_][a-zA-Z0-9_]*|\[\d+\])*$`),
	"file-path":  regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`),
}

// ConstraintViolation is one constraint finding.
type ConstraintViolation struct {
	ConstraintType string
	FieldPath      string
	Message        string
	ActualValue    string
	ExpectedValue  string
	Severity       types.Severity
}

// ConstraintResult is the constraint layer's sub-result.
type ConstraintResult struct {
	Valid              bool
	Violations         []ConstraintViolation
	ConstraintsChecked int
}

func (r *ConstraintResult) addViolation(v ConstraintViolation) {
	if v.Severity == "" {
		v.Severity = types.SeverityError
	}
	r.Violations = append(r.Violations, v)
	if v.Severity == types.SeverityError {
		r.Valid = false
	}
}

// ConstraintValidator validates string input constraints against a
// format registry.
type ConstraintValidator struct {
	formats map[string]*regexp.Regexp
}

// NewConstraintValidator returns a constraint validator seeded with the
// builtin formats.
func NewConstraintValidator() *ConstraintValidator {
	formats := make(map[string]*regexp.Regexp, len(builtinFormats))
	for name, re := range builtinFormats {
		formats[name] = re
	}
	return &ConstraintValidator{formats: formats}
}

// RegisterFormat adds a custom format, shadowing a builtin of the same
// name. The pattern is anchored at the start of the value.
func (v *ConstraintValidator) RegisterFormat(name, pattern string) error {
	re, err := regexp.Compile(anchored(pattern))
	if err != nil {
		return fmt.Errorf("format %q: %w", name, err)
	}
	v.formats[name] = re
	return nil
}

// Format returns the pattern registered under name.
func (v *ConstraintValidator) Format(name string) (*regexp.Regexp, error) {
	re, ok := v.formats[name]
	if !ok {
		return nil, fmt.Errorf("format %q: %w", name, types.ErrUnknownFormat)
	}
	return re, nil
}

// Formats lists all registered format names, sorted.
func (v *ConstraintValidator) Formats() []string {
	set := make(map[string]bool, len(v.formats))
	for name := range v.formats {
		set[name] = true
	}
	return sortedKeys(set)
}

// Validate checks the constraint definitions of every input in the
// document.
func (v *ConstraintValidator) Validate(doc types.Document) ConstraintResult {
	result := ConstraintResult{Valid: true}

	for _, input := range mapsOf(doc["inputs"]) {
		sub := v.ValidateInput(input, nil)
		result.Violations = append(result.Violations, sub.Violations...)
		result.ConstraintsChecked += sub.ConstraintsChecked
	}
	for _, violation := range result.Violations {
		if violation.Severity == types.SeverityError {
			result.Valid = false
			break
		}
	}
	return result
}

// ValidateInput checks one input definition's constraints, and when
// sample is non-nil validates the sample value against them. Only
// string-typed inputs carry string constraints.
func (v *ConstraintValidator) ValidateInput(input map[string]any, sample *string) ConstraintResult {
	result := ConstraintResult{Valid: true}

	name, _ := input["name"].(string)
	if name == "" {
		name = "unknown"
	}
	inputType, _ := input["type"].(string)
	if inputType == "" {
		inputType = "string"
	}
	if inputType != "string" {
		return result
	}
	constraints, _ := input["constraints"].(map[string]any)

	fieldPath := "inputs." + name
	v.checkDefinitions(constraints, fieldPath, &result)
	if sample != nil {
		v.checkValue(*sample, constraints, fieldPath, &result)
	}
	return result
}

// checkDefinitions validates that constraint definitions are
// well-formed.
func (v *ConstraintValidator) checkDefinitions(constraints map[string]any, fieldPath string, result *ConstraintResult) {
	minLen, hasMin := lengthConstraint(constraints, "min_length")
	if _, present := constraints["min_length"]; present {
		result.ConstraintsChecked++
		if !hasMin {
			result.addViolation(ConstraintViolation{
				ConstraintType: "min_length",
				FieldPath:      fieldPath + ".constraints.min_length",
				Message:        "min_length must be a non-negative integer",
				ActualValue:    logic.Stringify(constraints["min_length"]),
			})
		}
	}

	maxLen, hasMax := lengthConstraint(constraints, "max_length")
	if _, present := constraints["max_length"]; present {
		result.ConstraintsChecked++
		if !hasMax {
			result.addViolation(ConstraintViolation{
				ConstraintType: "max_length",
				FieldPath:      fieldPath + ".constraints.max_length",
				Message:        "max_length must be a non-negative integer",
				ActualValue:    logic.Stringify(constraints["max_length"]),
			})
		}
	}

	if hasMin && hasMax && minLen > maxLen {
		result.addViolation(ConstraintViolation{
			ConstraintType: "length_range",
			FieldPath:      fieldPath + ".constraints",
			Message:        "min_length cannot be greater than max_length",
			ActualValue:    fmt.Sprintf("min=%d, max=%d", minLen, maxLen),
		})
	}

	if raw, present := constraints["pattern"]; present {
		result.ConstraintsChecked++
		pattern, _ := raw.(string)
		if _, err := regexp.Compile(pattern); err != nil {
			result.addViolation(ConstraintViolation{
				ConstraintType: "pattern",
				FieldPath:      fieldPath + ".constraints.pattern",
				Message:        fmt.Sprintf("Invalid regex pattern: %v", err),
				ActualValue:    pattern,
			})
		}
	}

	if raw, present := constraints["enum"]; present {
		result.ConstraintsChecked++
		values, ok := raw.([]any)
		switch {
		case !ok:
			result.addViolation(ConstraintViolation{
				ConstraintType: "enum",
				FieldPath:      fieldPath + ".constraints.enum",
				Message:        "enum must be a list of values",
				ActualValue:    fmt.Sprintf("%T", raw),
			})
		case len(values) == 0:
			result.addViolation(ConstraintViolation{
				ConstraintType: "enum",
				FieldPath:      fieldPath + ".constraints.enum",
				Message:        "enum must have at least one value",
			})
		}
	}

	if raw, present := constraints["format"]; present {
		result.ConstraintsChecked++
		name, _ := raw.(string)
		if _, ok := v.formats[name]; !ok {
			result.addViolation(ConstraintViolation{
				ConstraintType: "format",
				FieldPath:      fieldPath + ".constraints.format",
				Message:        "Unknown format: " + name,
				ActualValue:    name,
				ExpectedValue:  strings.Join(v.Formats(), ", "),
				Severity:       types.SeverityWarning,
			})
		}
	}
}

// checkValue validates a concrete value against well-formed constraints.
// Constraints already flagged as malformed are skipped here.
func (v *ConstraintValidator) checkValue(value string, constraints map[string]any, fieldPath string, result *ConstraintResult) {
	length := utf8.RuneCountInString(value)

	if minLen, ok := lengthConstraint(constraints, "min_length"); ok && length < minLen {
		result.addViolation(ConstraintViolation{
			ConstraintType: "min_length",
			FieldPath:      fieldPath,
			Message:        fmt.Sprintf("Value too short: %d < %d", length, minLen),
			ActualValue:    fmt.Sprintf("%d", length),
			ExpectedValue:  fmt.Sprintf("%d", minLen),
		})
	}
	if maxLen, ok := lengthConstraint(constraints, "max_length"); ok && length > maxLen {
		result.addViolation(ConstraintViolation{
			ConstraintType: "max_length",
			FieldPath:      fieldPath,
			Message:        fmt.Sprintf("Value too long: %d > %d", length, maxLen),
			ActualValue:    fmt.Sprintf("%d", length),
			ExpectedValue:  fmt.Sprintf("%d", maxLen),
		})
	}

	if pattern, _ := constraints["pattern"].(string); pattern != "" {
		if re, err := regexp.Compile(anchored(pattern)); err == nil && !re.MatchString(value) {
			result.addViolation(ConstraintViolation{
				ConstraintType: "pattern",
				FieldPath:      fieldPath,
				Message:        "Value does not match pattern: " + pattern,
				ActualValue:    value,
				ExpectedValue:  pattern,
			})
		}
	}

	if values, ok := constraints["enum"].([]any); ok {
		found := false
		for _, allowed := range values {
			if logic.Stringify(allowed) == value {
				found = true
				break
			}
		}
		if !found {
			expected := make([]string, len(values))
			for i, val := range values {
				expected[i] = logic.Stringify(val)
			}
			result.addViolation(ConstraintViolation{
				ConstraintType: "enum",
				FieldPath:      fieldPath,
				Message:        "Value not in allowed values",
				ActualValue:    value,
				ExpectedValue:  strings.Join(expected, ", "),
			})
		}
	}

	if name, _ := constraints["format"].(string); name != "" {
		if re, ok := v.formats[name]; ok && !re.MatchString(value) {
			result.addViolation(ConstraintViolation{
				ConstraintType: "format",
				FieldPath:      fieldPath,
				Message:        fmt.Sprintf("Value does not match format '%s'", name),
				ActualValue:    value,
				ExpectedValue:  name,
			})
		}
	}
}

// lengthConstraint reads a length constraint as a non-negative int,
// accepting decoder integer representations.
func lengthConstraint(constraints map[string]any, key string) (int, bool) {
	switch n := constraints[key].(type) {
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	case float64:
		if n == float64(int(n)) {
			return int(n), n >= 0
		}
	}
	return 0, false
}

// anchored forces a pattern to match from the start of the value.
func anchored(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^(?:" + pattern + ")"
}
