// Package report renders validation results for humans and machines.
package report

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/AiCoda/skill-spec/internal/types"
	"github.com/AiCoda/skill-spec/internal/validator"
)

// ReportVersion identifies the report payload format for consumers.
const ReportVersion = "validation-report/1.0"

// findingsLimit caps per-section finding lists in rendered reports.
const findingsLimit = 10

// Metadata is the audit trail attached to every report.
type Metadata struct {
	GeneratedAt  string `json:"report_generated_at"`
	DurationMs   int64  `json:"duration_ms"`
	SpecChecksum string `json:"spec_checksum,omitempty"`
}

// Report packages one validation run for rendering.
type Report struct {
	Version   string
	SkillName string
	SkillVer  string
	Result    validator.Result
	Metadata  Metadata
}

// New builds a report from a validation result. specPath, when set,
// contributes a content checksum to the audit metadata.
func New(skillName, skillVersion string, result validator.Result, duration time.Duration, specPath string) Report {
	meta := Metadata{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		DurationMs:  duration.Milliseconds(),
	}
	if specPath != "" {
		if content, err := os.ReadFile(specPath); err == nil {
			meta.SpecChecksum = fmt.Sprintf("%x", sha256.Sum256(content))
		}
	}
	return Report{
		Version:   ReportVersion,
		SkillName: skillName,
		SkillVer:  skillVersion,
		Result:    result,
		Metadata:  meta,
	}
}

// Render produces the report in the requested format: text, json or
// markdown.
func (r Report) Render(format string) (string, error) {
	switch format {
	case "text":
		return r.Text(), nil
	case "json":
		return r.JSON()
	case "markdown":
		return r.Markdown(), nil
	}
	return "", fmt.Errorf("unknown report format %q: %w", format, types.ErrUnknownFormat)
}

// Text renders the engine summary plus per-layer findings.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString(r.Result.Summary())

	writeFindings(&b, "Errors", r.Result.Errors)
	if r.Result.Structural != nil {
		writeFindings(&b, "Structure errors", r.Result.Structural.Errors)
		writeFindings(&b, "Structure warnings", r.Result.Structural.Warnings)
	}
	if r.Result.Quality != nil {
		var lines []string
		for _, v := range r.Result.Quality.Violations {
			lines = append(lines, fmt.Sprintf("[%s] %s at %s: %q", v.Severity, v.Category, v.Path, v.Matched))
		}
		writeFindings(&b, "Quality violations", lines)
	}
	if r.Result.Coverage != nil {
		var lines []string
		for _, g := range r.Result.Coverage.Gaps {
			lines = append(lines, g.String())
		}
		writeFindings(&b, "Coverage gaps", lines)
	}
	if r.Result.Consistency != nil {
		var lines []string
		for _, i := range r.Result.Consistency.Issues {
			lines = append(lines, i.String())
		}
		writeFindings(&b, "Consistency issues", lines)
		writeFindings(&b, "Orphans", r.Result.Consistency.Orphans)
	}
	if r.Result.Constraints != nil {
		var lines []string
		for _, v := range r.Result.Constraints.Violations {
			lines = append(lines, fmt.Sprintf("[%s] %s at %s: %s", v.Severity, v.ConstraintType, v.FieldPath, v.Message))
		}
		writeFindings(&b, "Constraint violations", lines)
	}
	if r.Result.Compliance != nil {
		var lines []string
		for _, v := range r.Result.Compliance.Violations {
			lines = append(lines, v.String())
		}
		writeFindings(&b, "Policy violations", lines)
	}
	if r.Result.Taxonomy != nil {
		var lines []string
		for _, v := range r.Result.Taxonomy.Violations {
			line := fmt.Sprintf("[%s] %s: %s", v.Severity, v.IssueType, v.Message)
			if v.Suggestion != "" {
				line += " (" + v.Suggestion + ")"
			}
			lines = append(lines, line)
		}
		writeFindings(&b, "Tag violations", lines)
	}

	return b.String()
}

// JSON renders the machine-consumable payload.
func (r Report) JSON() (string, error) {
	payload := map[string]any{
		"report_version": r.Version,
		"skill": map[string]string{
			"name":    r.SkillName,
			"version": r.SkillVer,
		},
		"validation":     r.Result.Flat(),
		"audit_metadata": r.Metadata,
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(out), nil
}

// Markdown renders a document suitable for review comments and audit
// attachments.
func (r Report) Markdown() string {
	var b strings.Builder

	status := "PASSED"
	if !r.Result.Valid {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "# Validation Report: %s\n\n", orUnknown(r.SkillName))
	fmt.Fprintf(&b, "**Status:** %s\n", status)
	fmt.Fprintf(&b, "**Errors:** %d\n", r.Result.TotalErrors())
	fmt.Fprintf(&b, "**Warnings:** %d\n\n", r.Result.TotalWarnings())

	if r.Result.Quality != nil && len(r.Result.Quality.CategoryCounts) > 0 {
		b.WriteString("## Quality Analysis\n\n")
		b.WriteString("| Category | Count |\n|----------|-------|\n")
		for _, category := range sortedCountKeys(r.Result.Quality.CategoryCounts) {
			fmt.Fprintf(&b, "| %s | %d |\n", category, r.Result.Quality.CategoryCounts[category])
		}
		b.WriteString("\n")
	}

	if r.Result.Coverage != nil {
		b.WriteString("## Coverage Analysis\n\n")
		fmt.Fprintf(&b, "- **Structural Coverage:** %g%%\n", r.Result.Coverage.Metrics.StructuralScore())
		fmt.Fprintf(&b, "- **Behavioral Coverage:** %g%%\n\n", r.Result.Coverage.Metrics.BehavioralScore())
		if len(r.Result.Coverage.Gaps) > 0 {
			b.WriteString("### Coverage Gaps\n\n")
			for i, g := range r.Result.Coverage.Gaps {
				if i >= findingsLimit {
					break
				}
				fmt.Fprintf(&b, "- [%s] %s: %s\n", g.Severity, g.Category, g.Description)
			}
			b.WriteString("\n")
		}
	}

	if r.Result.Consistency != nil && (len(r.Result.Consistency.Issues) > 0 || len(r.Result.Consistency.Orphans) > 0) {
		b.WriteString("## Consistency Analysis\n\n")
		for i, issue := range r.Result.Consistency.Issues {
			if i >= findingsLimit {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", issue.Severity, issue.Category, issue.Description)
		}
		for i, orphan := range r.Result.Consistency.Orphans {
			if i >= findingsLimit {
				break
			}
			fmt.Fprintf(&b, "- orphan: %s\n", orphan)
		}
		b.WriteString("\n")
	}

	if r.Result.Compliance != nil {
		b.WriteString("## Compliance Analysis\n\n")
		policies := strings.Join(r.Result.Compliance.PoliciesChecked, ", ")
		if policies == "" {
			policies = "none"
		}
		fmt.Fprintf(&b, "- **Policies Checked:** %s\n", policies)
		fmt.Fprintf(&b, "- **Violations:** %d\n\n", len(r.Result.Compliance.Violations))
		for i, v := range r.Result.Compliance.Violations {
			if i >= findingsLimit {
				break
			}
			fmt.Fprintf(&b, "- **[%s] %s:** %s\n", v.Severity, v.RuleID, v.Description)
			if v.RequiredAction != "" {
				fmt.Fprintf(&b, "  - Required: %s\n", v.RequiredAction)
			}
		}
		b.WriteString("\n")
	}

	if r.Result.Taxonomy != nil && len(r.Result.Taxonomy.Violations) > 0 {
		b.WriteString("## Taxonomy Analysis\n\n")
		for i, v := range r.Result.Taxonomy.Violations {
			if i >= findingsLimit {
				break
			}
			fmt.Fprintf(&b, "- [%s] `%s`: %s\n", v.Severity, v.Tag, v.Message)
			if v.Suggestion != "" {
				fmt.Fprintf(&b, "  - Suggestion: %s\n", v.Suggestion)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Audit Metadata\n\n")
	fmt.Fprintf(&b, "- **Generated At:** %s\n", r.Metadata.GeneratedAt)
	fmt.Fprintf(&b, "- **Duration:** %dms\n", r.Metadata.DurationMs)
	if r.Metadata.SpecChecksum != "" {
		fmt.Fprintf(&b, "- **Spec Checksum:** %s\n", r.Metadata.SpecChecksum)
	}

	return b.String()
}

func writeFindings(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n\n%s:", title)
	for i, line := range lines {
		if i >= findingsLimit {
			fmt.Fprintf(b, "\n  ... and %d more", len(lines)-findingsLimit)
			break
		}
		fmt.Fprintf(b, "\n  - %s", line)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
