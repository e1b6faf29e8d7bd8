// Package registry persists known skills and validation run history.
//
// The registry backs two features: works_with reference checking (the
// consistency layer validates against the set of registered skill
// names) and the run diary, an append-only record of validation runs
// used for audit trails and quality tracking.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AiCoda/skill-spec/internal/core/db"
	"github.com/AiCoda/skill-spec/internal/types"
	"github.com/AiCoda/skill-spec/internal/validator"
)

// Skill is one registered skill.
type Skill struct {
	Name         string  `db:"name"`
	Version      string  `db:"version"`
	Owner        *string `db:"owner"`
	RegisteredAt string  `db:"registered_at"`
}

// Run is one recorded validation run.
type Run struct {
	RunID           string  `db:"run_id"`
	SkillName       string  `db:"skill_name"`
	Valid           bool    `db:"valid"`
	Strict          bool    `db:"strict"`
	TotalErrors     int     `db:"total_errors"`
	TotalWarnings   int     `db:"total_warnings"`
	StructuralScore float64 `db:"structural_score"`
	BehavioralScore float64 `db:"behavioral_score"`
	DurationMs      int64   `db:"duration_ms"`
	Report          string  `db:"report"`
	CreatedAt       string  `db:"created_at"`
}

// Registry provides skill and run persistence over a migrated database.
type Registry struct {
	queries *db.Queries
}

// New runs migrations and prepares the registry's named queries.
func New(database *sqlx.DB) (*Registry, error) {
	if err := db.MigrateUp(database); err != nil {
		return nil, fmt.Errorf("migrate registry: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		return nil, fmt.Errorf("load registry queries: %w", err)
	}
	return &Registry{queries: queries}, nil
}

// RegisterSkill records a skill. owner may be empty.
func (r *Registry) RegisterSkill(name, version, owner string) error {
	if name == "" {
		return fmt.Errorf("register skill: name is required")
	}
	var ownerVal *string
	if owner != "" {
		ownerVal = &owner
	}
	_, err := r.queries.Exec("insert-skill", name, version, ownerVal, timestamp())
	if err != nil {
		return fmt.Errorf("register skill %q: %w", name, err)
	}
	return nil
}

// Skill returns one registered skill by name.
func (r *Registry) Skill(name string) (Skill, error) {
	var skill Skill
	if err := r.queries.Get("get-skill", &skill, name); err != nil {
		return Skill{}, fmt.Errorf("get skill %q: %w", name, err)
	}
	return skill, nil
}

// Skills lists all registered skills.
func (r *Registry) Skills() ([]Skill, error) {
	var skills []Skill
	if err := r.queries.Select("list-skills", &skills); err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// KnownSkills returns registered skill names as a set, in the shape the
// consistency layer consumes.
func (r *Registry) KnownSkills() (map[string]bool, error) {
	skills, err := r.Skills()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(skills))
	for _, s := range skills {
		known[s.Name] = true
	}
	return known, nil
}

// RecordRun appends a validation run to the diary and returns the
// stored row. The full flattened result is kept as the report payload.
func (r *Registry) RecordRun(skillName string, result validator.Result, strict bool, duration time.Duration) (Run, error) {
	report, err := json.Marshal(result.Flat())
	if err != nil {
		return Run{}, fmt.Errorf("encode run report: %w", err)
	}

	run := Run{
		RunID:         string(types.NewRunID()),
		SkillName:     skillName,
		Valid:         result.Valid,
		Strict:        strict,
		TotalErrors:   result.TotalErrors(),
		TotalWarnings: result.TotalWarnings(),
		DurationMs:    duration.Milliseconds(),
		Report:        string(report),
		CreatedAt:     timestamp(),
	}
	if result.Coverage != nil {
		run.StructuralScore = result.Coverage.Metrics.StructuralScore()
		run.BehavioralScore = result.Coverage.Metrics.BehavioralScore()
	}

	_, err = r.queries.Exec("insert-run",
		run.RunID, run.SkillName, run.Valid, run.Strict,
		run.TotalErrors, run.TotalWarnings,
		run.StructuralScore, run.BehavioralScore,
		run.DurationMs, run.Report, run.CreatedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run for %q: %w", skillName, err)
	}
	return run, nil
}

// Run returns one recorded run by id.
func (r *Registry) Run(id types.RunID) (Run, error) {
	var run Run
	if err := r.queries.Get("get-run", &run, string(id)); err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// RunsForSkill lists a skill's most recent runs, newest first.
func (r *Registry) RunsForSkill(skillName string, limit int) ([]Run, error) {
	var runs []Run
	if err := r.queries.Select("list-runs-for-skill", &runs, skillName, limit); err != nil {
		return nil, fmt.Errorf("list runs for %q: %w", skillName, err)
	}
	return runs, nil
}

// RecentRuns lists the most recent runs across all skills.
func (r *Registry) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	if err := r.queries.Select("list-recent-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs older than the cutoff and reports how many were
// removed.
func (r *Registry) Prune(before time.Time) (int64, error) {
	res, err := r.queries.Exec("prune-runs-before", before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Summary holds aggregate run statistics for one skill.
type Summary struct {
	SkillName     string
	TotalRuns     int
	PassedRuns    int
	SuccessRate   float64
	AvgDurationMs float64
	LastRunAt     string
}

// SkillSummary aggregates the diary for one skill.
func (r *Registry) SkillSummary(skillName string, limit int) (Summary, error) {
	runs, err := r.RunsForSkill(skillName, limit)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{SkillName: skillName, TotalRuns: len(runs)}
	if len(runs) == 0 {
		return summary, nil
	}

	var totalDuration int64
	for _, run := range runs {
		if run.Valid {
			summary.PassedRuns++
		}
		totalDuration += run.DurationMs
	}
	summary.SuccessRate = float64(summary.PassedRuns) / float64(len(runs)) * 100
	summary.AvgDurationMs = float64(totalDuration) / float64(len(runs))
	summary.LastRunAt = runs[0].CreatedAt

	return summary, nil
}

// timestamp formats now as UTC RFC3339, the stored timestamp form for
// both backends.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
