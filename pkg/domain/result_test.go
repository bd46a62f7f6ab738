package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if w := result.Warnings(); len(w) != 1 || w[0].Rule != "warn" {
		t.Fatalf("unexpected warnings %+v", w)
	}
	var rv RuleViolationError
	if err := fmt.Errorf("commit: %w", RuleViolationError{Result: result}); !errors.As(err, &rv) || len(rv.Result.Violations) != 2 {
		t.Fatalf("expected wrapped rule violation, got %v", err)
	}
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

type staticRule struct {
	name string
	err  error
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	if r.err != nil {
		return Result{}, r.err
	}
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type emptyView struct{ TransactionView }

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "first"})
	engine.Register(staticRule{name: "second"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "first" {
		t.Fatalf("expected violations in registration order, got %+v", res.Violations)
	}
	rules := engine.Rules()
	rules[0] = nil
	if engine.Rules()[0] == nil {
		t.Fatalf("Rules must return a copy")
	}

	engine.Register(staticRule{name: "broken", err: errors.New("boom")})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
}

func TestTouchedMissions(t *testing.T) {
	changes := []Change{
		{Entity: EntityMission, Action: ActionCreate, After: Mission{Base: Base{ID: "m1"}}},
		{Entity: EntityTarget, Action: ActionCreate, After: Target{Base: Base{ID: "t1"}, MissionID: "m1"}},
		{Entity: EntityTarget, Action: ActionUpdate, After: Target{Base: Base{ID: "t2"}, MissionID: "m2"}},
		{Entity: EntityMission, Action: ActionDelete, Before: Mission{Base: Base{ID: "m3"}}},
		{Entity: EntitySpyCat, Action: ActionCreate, After: SpyCat{Base: Base{ID: "c1"}}},
	}
	got := TouchedMissions(changes)
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Fatalf("unexpected touched missions %v", got)
	}
	if id := changes[3].EntityID(); id != "m3" {
		t.Fatalf("expected delete change to report before id, got %q", id)
	}
	if id := (Change{}).EntityID(); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
