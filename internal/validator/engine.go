package validator

import (
	"fmt"
	"strings"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Validation engine.
 *
 * The engine runs the layers in a fixed order: structure, quality,
 * coverage, consistency, constraints, then the optional compliance and
 * taxonomy layers. Structure gates everything: when it fails, no other
 * layer runs, because downstream checks assume a structurally sound
 * document and would only produce noise over a broken one.
 *
 * Every other layer always runs and contributes findings; a failing
 * layer marks the combined result invalid without stopping the run. In
 * strict mode any warning also fails the run, after all layers have
 * reported.
 *
 * Validation never mutates the document, so one engine can validate
 * concurrently from multiple goroutines once constructed.
 */

// StructuralValidator is the structure layer: required sections,
// field types, declaration well-formedness.
type StructuralValidator interface {
	ValidateStructure(doc types.Document) StructuralResult
}

// QualityValidator is the quality layer: forbidden-pattern scanning over
// the document's prose fields.
type QualityValidator interface {
	ValidateQuality(doc types.Document) QualityResult
}

// StructuralResult is the structure layer's sub-result.
type StructuralResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// QualityViolation is one forbidden-pattern finding.
type QualityViolation struct {
	Path     string
	Category string
	Severity types.Severity
	Pattern  string
	Matched  string
	Fix      string
}

// QualityResult is the quality layer's sub-result.
type QualityResult struct {
	Valid          bool
	Violations     []QualityViolation
	CategoryCounts map[string]int
}

// TotalErrors counts error-severity quality violations.
func (r QualityResult) TotalErrors() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == types.SeverityError {
			n++
		}
	}
	return n
}

// TotalWarnings counts warning-severity quality violations.
func (r QualityResult) TotalWarnings() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == types.SeverityWarning {
			n++
		}
	}
	return n
}

// Result combines the sub-results of every layer that ran. A nil
// sub-result means the layer did not run, either because structure
// failed first or because the optional layer was not configured.
type Result struct {
	Valid bool

	Structural  *StructuralResult
	Quality     *QualityResult
	Coverage    *CoverageResult
	Consistency *ConsistencyResult
	Constraints *ConstraintResult
	Compliance  *ComplianceResult
	Taxonomy    *TaxonomyResult

	Errors   []string
	Warnings []string
}

// TotalErrors counts error findings across all layers that ran.
func (r Result) TotalErrors() int {
	count := len(r.Errors)
	if r.Structural != nil {
		count += len(r.Structural.Errors)
	}
	if r.Quality != nil {
		count += r.Quality.TotalErrors()
	}
	if r.Coverage != nil {
		for _, g := range r.Coverage.Gaps {
			if g.Severity == types.SeverityError {
				count++
			}
		}
	}
	if r.Consistency != nil {
		for _, i := range r.Consistency.Issues {
			if i.Severity == types.SeverityError {
				count++
			}
		}
	}
	if r.Constraints != nil {
		for _, v := range r.Constraints.Violations {
			if v.Severity == types.SeverityError {
				count++
			}
		}
	}
	if r.Compliance != nil {
		count += r.Compliance.TotalErrors()
	}
	if r.Taxonomy != nil {
		for _, v := range r.Taxonomy.Violations {
			if v.Severity == types.SeverityError {
				count++
			}
		}
	}
	return count
}

// TotalWarnings counts warning findings across all layers that ran.
func (r Result) TotalWarnings() int {
	count := len(r.Warnings)
	if r.Structural != nil {
		count += len(r.Structural.Warnings)
	}
	if r.Quality != nil {
		count += r.Quality.TotalWarnings()
	}
	if r.Coverage != nil {
		for _, g := range r.Coverage.Gaps {
			if g.Severity == types.SeverityWarning {
				count++
			}
		}
	}
	if r.Consistency != nil {
		for _, i := range r.Consistency.Issues {
			if i.Severity == types.SeverityWarning {
				count++
			}
		}
	}
	if r.Constraints != nil {
		for _, v := range r.Constraints.Violations {
			if v.Severity == types.SeverityWarning {
				count++
			}
		}
	}
	if r.Compliance != nil {
		count += r.Compliance.TotalWarnings()
	}
	if r.Taxonomy != nil {
		for _, v := range r.Taxonomy.Violations {
			if v.Severity == types.SeverityWarning {
				count++
			}
		}
	}
	return count
}

// Summary renders a short human-readable overview.
func (r Result) Summary() string {
	var b strings.Builder

	status := "PASSED"
	if !r.Valid {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Validation %s\n", status)
	fmt.Fprintf(&b, "  Errors: %d\n", r.TotalErrors())
	fmt.Fprintf(&b, "  Warnings: %d", r.TotalWarnings())

	if r.Coverage != nil {
		fmt.Fprintf(&b, "\n  Structural Coverage: %g%%", r.Coverage.Metrics.StructuralScore())
		fmt.Fprintf(&b, "\n  Behavioral Coverage: %g%%", r.Coverage.Metrics.BehavioralScore())
	}
	if r.Compliance != nil {
		policies := strings.Join(r.Compliance.PoliciesChecked, ", ")
		if policies == "" {
			policies = "none"
		}
		fmt.Fprintf(&b, "\n  Policies Checked: %s", policies)
	}
	if r.Taxonomy != nil {
		fmt.Fprintf(&b, "\n  Recognized Tags: %d", len(r.Taxonomy.RecognizedTags))
	}
	return b.String()
}

// Flat converts the result into a plain nested mapping for JSON or YAML
// output. Layers that did not run appear as null.
func (r Result) Flat() map[string]any {
	layers := map[string]any{
		"structure":   nil,
		"quality":     nil,
		"coverage":    nil,
		"consistency": nil,
		"constraints": nil,
		"compliance":  nil,
		"taxonomy":    nil,
	}

	if r.Structural != nil {
		layers["structure"] = map[string]any{
			"valid":    r.Structural.Valid,
			"errors":   r.Structural.Errors,
			"warnings": r.Structural.Warnings,
		}
	}
	if r.Quality != nil {
		violations := make([]map[string]any, 0, len(r.Quality.Violations))
		for _, v := range r.Quality.Violations {
			violations = append(violations, map[string]any{
				"path":     v.Path,
				"category": v.Category,
				"severity": string(v.Severity),
				"pattern":  v.Pattern,
				"matched":  v.Matched,
				"fix":      v.Fix,
			})
		}
		layers["quality"] = map[string]any{
			"valid":           r.Quality.Valid,
			"violations":      violations,
			"category_counts": r.Quality.CategoryCounts,
		}
	}
	if r.Coverage != nil {
		gaps := make([]map[string]any, 0, len(r.Coverage.Gaps))
		for _, g := range r.Coverage.Gaps {
			gaps = append(gaps, map[string]any{
				"type":        g.GapType,
				"category":    g.Category,
				"item":        g.Item,
				"description": g.Description,
				"severity":    string(g.Severity),
			})
		}
		layers["coverage"] = map[string]any{
			"valid": r.Coverage.Valid,
			"gaps":  gaps,
			"metrics": map[string]any{
				"structural_score": r.Coverage.Metrics.StructuralScore(),
				"behavioral_score": r.Coverage.Metrics.BehavioralScore(),
			},
		}
	}
	if r.Consistency != nil {
		issues := make([]map[string]any, 0, len(r.Consistency.Issues))
		for _, i := range r.Consistency.Issues {
			issues = append(issues, map[string]any{
				"category":    i.Category,
				"source":      i.Source,
				"target":      i.Target,
				"description": i.Description,
				"severity":    string(i.Severity),
			})
		}
		layers["consistency"] = map[string]any{
			"valid":   r.Consistency.Valid,
			"issues":  issues,
			"orphans": r.Consistency.Orphans,
		}
	}
	if r.Constraints != nil {
		violations := make([]map[string]any, 0, len(r.Constraints.Violations))
		for _, v := range r.Constraints.Violations {
			violations = append(violations, map[string]any{
				"constraint_type": v.ConstraintType,
				"field_path":      v.FieldPath,
				"message":         v.Message,
				"actual_value":    v.ActualValue,
				"expected_value":  v.ExpectedValue,
				"severity":        string(v.Severity),
			})
		}
		layers["constraints"] = map[string]any{
			"valid":               r.Constraints.Valid,
			"violations":          violations,
			"constraints_checked": r.Constraints.ConstraintsChecked,
		}
	}
	if r.Compliance != nil {
		violations := make([]map[string]any, 0, len(r.Compliance.Violations))
		for _, v := range r.Compliance.Violations {
			violations = append(violations, map[string]any{
				"policy_id":       v.PolicyID,
				"rule_id":         v.RuleID,
				"category":        v.Category,
				"severity":        string(v.Severity),
				"description":     v.Description,
				"field_path":      v.FieldPath,
				"required_action": v.RequiredAction,
			})
		}
		summary := make(map[string]map[string]int, len(r.Compliance.CategorySummary))
		for category, counts := range r.Compliance.CategorySummary {
			summary[category] = map[string]int{}
			for sev, n := range counts {
				summary[category][string(sev)] = n
			}
		}
		layers["compliance"] = map[string]any{
			"valid":            r.Compliance.Valid,
			"policies_checked": r.Compliance.PoliciesChecked,
			"violations":       violations,
			"category_summary": summary,
		}
	}
	if r.Taxonomy != nil {
		violations := make([]map[string]any, 0, len(r.Taxonomy.Violations))
		for _, v := range r.Taxonomy.Violations {
			violations = append(violations, map[string]any{
				"tag":        v.Tag,
				"field_path": v.FieldPath,
				"issue_type": v.IssueType,
				"message":    v.Message,
				"suggestion": v.Suggestion,
				"severity":   string(v.Severity),
			})
		}
		layers["taxonomy"] = map[string]any{
			"valid":              r.Taxonomy.Valid,
			"recognized_tags":    sortedKeys(r.Taxonomy.RecognizedTags),
			"violations":         violations,
			"triggered_policies": r.Taxonomy.TriggeredPolicies,
		}
	}

	return map[string]any{
		"valid":          r.Valid,
		"total_errors":   r.TotalErrors(),
		"total_warnings": r.TotalWarnings(),
		"errors":         r.Errors,
		"warnings":       r.Warnings,
		"layers":         layers,
	}
}

// Engine runs all validation layers over documents.
type Engine struct {
	structural  StructuralValidator
	quality     QualityValidator
	coverage    *CoverageValidator
	consistency *ConsistencyValidator
	constraints *ConstraintValidator
	compliance  *ComplianceValidator
	taxonomy    *TaxonomyValidator
}

// Option configures an Engine.
type Option func(*Engine)

// WithStructural sets the structure layer implementation.
func WithStructural(v StructuralValidator) Option {
	return func(e *Engine) { e.structural = v }
}

// WithQuality sets the quality layer implementation.
func WithQuality(v QualityValidator) Option {
	return func(e *Engine) { e.quality = v }
}

// WithKnownSkills enables works_with reference checking against the
// given skill names.
func WithKnownSkills(known map[string]bool) Option {
	return func(e *Engine) { e.consistency = NewConsistencyValidator(known) }
}

// WithPolicies enables the compliance layer over the given policies.
func WithPolicies(policies ...Policy) Option {
	return func(e *Engine) { e.compliance = NewComplianceValidator(policies...) }
}

// WithTaxonomies enables the taxonomy layer over the given taxonomies.
func WithTaxonomies(taxonomies ...Taxonomy) Option {
	return func(e *Engine) { e.taxonomy = NewTaxonomyValidator(taxonomies...) }
}

// WithConstraintValidator replaces the default constraint validator,
// for callers that register custom formats.
func WithConstraintValidator(v *ConstraintValidator) Option {
	return func(e *Engine) { e.constraints = v }
}

// WithMaxCombinations caps the coverage layer's generated input space.
// Non-positive values keep the default cap.
func WithMaxCombinations(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.coverage.maxCombinations = max
		}
	}
}

// NewEngine builds an engine. The coverage, consistency and constraints
// layers are always on; compliance and taxonomy only run when
// configured.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		coverage:    NewCoverageValidator(),
		consistency: NewConsistencyValidator(nil),
		constraints: NewConstraintValidator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs every configured layer over the document. In strict
// mode any warning fails the run.
func (e *Engine) Validate(doc types.Document, strict bool) Result {
	result := Result{Valid: true}

	if e.structural != nil {
		structural := e.structural.ValidateStructure(doc)
		result.Structural = &structural
		if !structural.Valid {
			result.Valid = false
			return result
		}
	}

	if e.quality != nil {
		quality := e.quality.ValidateQuality(doc)
		result.Quality = &quality
		if !quality.Valid {
			result.Valid = false
		}
	}

	coverage := e.coverage.Validate(doc)
	result.Coverage = &coverage
	if !coverage.Valid {
		result.Valid = false
	}

	consistency := e.consistency.Validate(doc)
	result.Consistency = &consistency
	if !consistency.Valid {
		result.Valid = false
	}

	constraints := e.constraints.Validate(doc)
	result.Constraints = &constraints
	if !constraints.Valid {
		result.Valid = false
	}

	if e.compliance != nil {
		compliance := e.compliance.Validate(doc)
		result.Compliance = &compliance
		if !compliance.Valid {
			result.Valid = false
		}
	}

	if e.taxonomy != nil {
		taxonomy := e.taxonomy.Validate(doc)
		result.Taxonomy = &taxonomy
		if !taxonomy.Valid {
			result.Valid = false
		}
	}

	if strict && result.TotalWarnings() > 0 {
		result.Valid = false
	}

	return result
}

// QuickValidate runs only the structure layer. Without a structural
// validator configured it reports true.
func (e *Engine) QuickValidate(doc types.Document) bool {
	if e.structural == nil {
		return true
	}
	return e.structural.ValidateStructure(doc).Valid
}
