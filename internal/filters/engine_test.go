package filters

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
)

func testEngine() *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewEngine(logger)
}

func makeCandidate(title, group, resolution string) *models.Candidate {
	return &models.Candidate{
		Title:      title,
		Group:      group,
		Resolution: resolution,
	}
}

func makeRule(id uint64, showID uint64, field models.FilterField, op models.FilterOp, pattern string, action models.FilterAction, priority int) models.FilterRule {
	return models.FilterRule{
		ID:       id,
		ShowID:   showID,
		Name:     pattern,
		Field:    field,
		Op:       op,
		Pattern:  pattern,
		Action:   action,
		Priority: priority,
		Enabled:  true,
	}
}

func TestEvaluateNoRulesRejects(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}
	cand := makeCandidate("[SubsPlease] Frieren - 05 (1080p).mkv", "SubsPlease", "1080p")

	decision := engine.Evaluate(cand, show, nil)
	if decision.Accept {
		t.Fatal("expected reject when no rules exist")
	}
	if decision.Reason != "no matching rule" {
		t.Errorf("unexpected reason: %q", decision.Reason)
	}
}

func TestEvaluateDefaultRules(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}

	// Mirrors the seeded defaults
	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldTitle, models.OpContains, "batch", models.ActionReject, 100),
		makeRule(2, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
	}

	tests := []struct {
		name   string
		cand   *models.Candidate
		accept bool
	}{
		{"1080p accepted", makeCandidate("[SubsPlease] Frieren - 05 (1080p).mkv", "SubsPlease", "1080p"), true},
		{"720p below show minimum", makeCandidate("[SubsPlease] Frieren - 05 (720p).mkv", "SubsPlease", "720p"), false},
		{"batch rejected before resolution", makeCandidate("[Judas] Frieren Batch (1080p)", "Judas", "1080p"), false},
		{"no resolution rejected", makeCandidate("[SubsPlease] Frieren - 05.mkv", "SubsPlease", ""), false},
		{"2160p above minimum accepted", makeCandidate("[Anon] Frieren - 05 (2160p).mkv", "Anon", "2160p"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Evaluate(tt.cand, show, rules)
			if decision.Accept != tt.accept {
				t.Errorf("Accept = %v, want %v (reason %q)", decision.Accept, tt.accept, decision.Reason)
			}
		})
	}
}

func TestEvaluatePriorityOrder(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "720p"}
	cand := makeCandidate("[Erai-raws] Frieren - 05 (1080p).mkv", "Erai-raws", "1080p")

	// Higher-priority reject beats lower-priority accept
	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
		makeRule(2, 0, models.FieldGroup, models.OpEquals, "Erai-raws", models.ActionReject, 50),
	}

	decision := engine.Evaluate(cand, show, rules)
	if decision.Accept {
		t.Fatal("expected higher-priority reject rule to win")
	}
	if decision.RuleID != 2 {
		t.Errorf("expected rule 2 to decide, got %d", decision.RuleID)
	}
}

func TestEvaluateShowScopedBeatsGlobalOnTie(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 7, Quality: "1080p"}
	cand := makeCandidate("[Erai-raws] Frieren - 05 (1080p).mkv", "Erai-raws", "1080p")

	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldGroup, models.OpEquals, "Erai-raws", models.ActionReject, 20),
		makeRule(2, 7, models.FieldGroup, models.OpEquals, "Erai-raws", models.ActionAccept, 20),
	}

	decision := engine.Evaluate(cand, show, rules)
	if !decision.Accept {
		t.Fatalf("expected show-scoped rule to win the tie, got reject: %q", decision.Reason)
	}
	if decision.RuleID != 2 {
		t.Errorf("expected rule 2 to decide, got %d", decision.RuleID)
	}
}

func TestEvaluateOtherShowRuleIgnored(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}
	cand := makeCandidate("[SubsPlease] Frieren - 05 (1080p).mkv", "SubsPlease", "1080p")

	rules := []models.FilterRule{
		makeRule(1, 99, models.FieldGroup, models.OpEquals, "SubsPlease", models.ActionReject, 100),
		makeRule(2, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
	}

	decision := engine.Evaluate(cand, show, rules)
	if !decision.Accept {
		t.Errorf("rule scoped to another show must not apply, got: %q", decision.Reason)
	}
}

func TestEvaluateRegexOp(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}

	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldTitle, models.OpMatches, `\bHEVC\b`, models.ActionReject, 50),
		makeRule(2, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
	}

	hevc := makeCandidate("[Anon] Frieren - 05 (1080p HEVC).mkv", "Anon", "1080p")
	if decision := engine.Evaluate(hevc, show, rules); decision.Accept {
		t.Error("expected HEVC release rejected by regex rule")
	}

	plain := makeCandidate("[Anon] Frieren - 05 (1080p).mkv", "Anon", "1080p")
	if decision := engine.Evaluate(plain, show, rules); !decision.Accept {
		t.Errorf("expected non-HEVC release accepted, got: %q", decision.Reason)
	}
}

func TestEvaluateInvalidRegexSkipsRule(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}
	cand := makeCandidate("[SubsPlease] Frieren - 05 (1080p).mkv", "SubsPlease", "1080p")

	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldTitle, models.OpMatches, `([`, models.ActionReject, 100),
		makeRule(2, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
	}

	decision := engine.Evaluate(cand, show, rules)
	if !decision.Accept {
		t.Errorf("invalid regex rule must be skipped, got: %q", decision.Reason)
	}
}

func TestEvaluateDisabledRuleSkipped(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "1080p"}
	cand := makeCandidate("[Judas] Frieren Batch (1080p)", "Judas", "1080p")

	reject := makeRule(1, 0, models.FieldTitle, models.OpContains, "batch", models.ActionReject, 100)
	reject.Enabled = false
	rules := []models.FilterRule{
		reject,
		makeRule(2, 0, models.FieldResolution, models.OpAtLeast, "", models.ActionAccept, 10),
	}

	decision := engine.Evaluate(cand, show, rules)
	if !decision.Accept {
		t.Errorf("disabled rule must be skipped, got: %q", decision.Reason)
	}
}

func TestEvaluateAtLeastExplicitPattern(t *testing.T) {
	engine := testEngine()
	show := &models.Show{ID: 1, Quality: "480p"}

	rules := []models.FilterRule{
		makeRule(1, 0, models.FieldResolution, models.OpAtLeast, "720p", models.ActionAccept, 10),
	}

	if decision := engine.Evaluate(makeCandidate("x", "g", "720p"), show, rules); !decision.Accept {
		t.Error("720p should satisfy an explicit 720p floor")
	}
	if decision := engine.Evaluate(makeCandidate("x", "g", "480p"), show, rules); decision.Accept {
		t.Error("480p should not satisfy an explicit 720p floor")
	}
}
