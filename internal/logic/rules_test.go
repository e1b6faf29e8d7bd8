package logic

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func approvalRules() []types.Rule {
	return []types.Rule{
		{ID: "high_value", When: "amount > 1000", Then: map[string]any{"action": "review"}},
		{ID: "trusted", When: "tier == 'gold'", Then: map[string]any{"action": "approve"}},
		{ID: "fallback", When: true, Then: map[string]any{"action": "queue"}, IsDefault: true},
	}
}

func TestEvaluateRules_FirstMatch(t *testing.T) {
	record := types.Record{"amount": 5000, "tier": "gold"}

	matches, err := EvaluateRules(approvalRules(), record, types.MatchFirst, types.ResolveFirstWins)
	if err != nil {
		t.Fatalf("EvaluateRules() error = %v, want nil", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if matches[0].RuleID != "high_value" {
		t.Errorf("RuleID = %q, want high_value", matches[0].RuleID)
	}
}

func TestEvaluateRules_FirstMatchFallsThrough(t *testing.T) {
	record := types.Record{"amount": 50, "tier": "bronze"}

	matches, err := EvaluateRules(approvalRules(), record, types.MatchFirst, types.ResolveFirstWins)
	if err != nil {
		t.Fatalf("EvaluateRules() error = %v, want nil", err)
	}
	if len(matches) != 1 || matches[0].RuleID != "fallback" {
		t.Errorf("matches = %v, want single fallback match", matches)
	}
}

func TestEvaluateRules_Priority(t *testing.T) {
	rules := []types.Rule{
		{ID: "low", When: "flag == true", Then: map[string]any{"route": "a"}, Priority: 1},
		{ID: "high", When: "flag == true", Then: map[string]any{"route": "b"}, Priority: 10},
	}
	record := types.Record{"flag": true}

	matches, err := EvaluateRules(rules, record, types.MatchPriority, types.ResolveFirstWins)
	if err != nil {
		t.Fatalf("EvaluateRules() error = %v, want nil", err)
	}
	if len(matches) != 1 || matches[0].RuleID != "high" {
		t.Errorf("matches = %v, want single high-priority match", matches)
	}
}

func TestEvaluateRules_PriorityTieKeepsDeclarationOrder(t *testing.T) {
	rules := []types.Rule{
		{ID: "first", When: "flag == true", Then: map[string]any{"route": "a"}, Priority: 5},
		{ID: "second", When: "flag == true", Then: map[string]any{"route": "b"}, Priority: 5},
	}
	record := types.Record{"flag": true}

	for i := 0; i < 10; i++ {
		matches, err := EvaluateRules(rules, record, types.MatchPriority, types.ResolveFirstWins)
		if err != nil {
			t.Fatalf("EvaluateRules() error = %v, want nil", err)
		}
		if matches[0].RuleID != "first" {
			t.Fatalf("run %d: RuleID = %q, want first", i, matches[0].RuleID)
		}
	}
}

func TestEvaluateRules_AllMatch(t *testing.T) {
	rules := []types.Rule{
		{ID: "a", When: "x > 0", Then: map[string]any{"out": 1}},
		{ID: "b", When: "x > 10", Then: map[string]any{"out": 1}},
		{ID: "c", When: "x > 100", Then: map[string]any{"out": 1}},
	}
	record := types.Record{"x": 50}

	matches, err := EvaluateRules(rules, record, types.MatchAll, types.ResolveError)
	if err != nil {
		t.Fatalf("EvaluateRules() error = %v, want nil (identical payloads are not conflicts)", err)
	}
	if len(matches) != 2 {
		t.Errorf("len(matches) = %d, want 2", len(matches))
	}
}

func TestEvaluateRules_ConflictResolution(t *testing.T) {
	rules := []types.Rule{
		{ID: "a", When: "x > 0", Then: map[string]any{"out": "yes"}},
		{ID: "b", When: "x > 0", Then: map[string]any{"out": "no"}},
	}
	record := types.Record{"x": 1}

	t.Run("error", func(t *testing.T) {
		_, err := EvaluateRules(rules, record, types.MatchAll, types.ResolveError)
		if !errors.Is(err, types.ErrRuleConflict) {
			t.Fatalf("error = %v, want %v", err, types.ErrRuleConflict)
		}
		var ce *ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %T, want *ConflictError", err)
		}
		if !reflect.DeepEqual(ce.RuleIDs, []string{"a", "b"}) {
			t.Errorf("RuleIDs = %v, want [a b]", ce.RuleIDs)
		}
	})

	t.Run("warn", func(t *testing.T) {
		matches, err := EvaluateRules(rules, record, types.MatchAll, types.ResolveWarn)
		if err != nil {
			t.Fatalf("EvaluateRules() error = %v, want nil", err)
		}
		if len(matches[0].Warnings) != 1 {
			t.Fatalf("len(Warnings) = %d, want 1", len(matches[0].Warnings))
		}
	})

	t.Run("first_wins", func(t *testing.T) {
		matches, err := EvaluateRules(rules, record, types.MatchAll, types.ResolveFirstWins)
		if err != nil {
			t.Fatalf("EvaluateRules() error = %v, want nil", err)
		}
		if len(matches[0].Warnings) != 0 {
			t.Errorf("Warnings = %v, want none", matches[0].Warnings)
		}
		if matches[0].RuleID != "a" {
			t.Errorf("RuleID = %q, want a", matches[0].RuleID)
		}
	})
}

func TestEvaluateRules_ParseErrorNamesRule(t *testing.T) {
	rules := []types.Rule{
		{ID: "broken", When: "(x == 1", Then: map[string]any{}},
	}
	_, err := EvaluateRules(rules, types.Record{}, types.MatchFirst, types.ResolveFirstWins)
	if !errors.Is(err, types.ErrSyntax) {
		t.Fatalf("error = %v, want %v", err, types.ErrSyntax)
	}
	if got := err.Error(); !strings.Contains(got, "broken") {
		t.Errorf("error = %q, want rule id in message", got)
	}
}

func TestEvaluateRules_NoMatchIsNotAnError(t *testing.T) {
	rules := []types.Rule{
		{ID: "only", When: "x > 100", Then: map[string]any{}},
	}
	matches, err := EvaluateRules(rules, types.Record{"x": 1}, types.MatchFirst, types.ResolveFirstWins)
	if err != nil {
		t.Fatalf("EvaluateRules() error = %v, want nil", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}
}

func TestFindApplicable(t *testing.T) {
	cfg := types.DefaultRuleSetConfig()

	result, err := FindApplicable(approvalRules(), types.Record{"amount": 2000}, cfg)
	if err != nil {
		t.Fatalf("FindApplicable() error = %v, want nil", err)
	}
	if result["action"] != "review" {
		t.Errorf("action = %v, want review", result["action"])
	}

	result, err = FindApplicable(nil, types.Record{}, cfg)
	if err != nil {
		t.Fatalf("FindApplicable() error = %v, want nil", err)
	}
	if result != nil {
		t.Errorf("result = %v, want nil for empty rule set", result)
	}
}
