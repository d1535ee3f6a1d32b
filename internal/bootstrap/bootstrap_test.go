package bootstrap

import (
	"context"
	"testing"

	platformerrors "aristo-server-go/internal/platform/errors"
)

func TestInitGraphDependenciesAreOrdered(t *testing.T) {
	completed := make(map[string]struct{})
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				t.Errorf("step %s depends on %s which runs later or never", step.ID, dep)
			}
		}
		completed[step.ID] = struct{}{}
	}
}

func TestExecuteInitStepsRejectsUnsatisfiedDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "b",
			Title:     "needs a",
			DependsOn: []string{"a"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap-kind error, got %v", err)
	}
}

func TestExecuteInitStepsWrapsStepFailures(t *testing.T) {
	boom := func(context.Context, *appState) error {
		return context.DeadlineExceeded
	}
	steps := []initStep{
		{ID: "fails", Title: "always fails", Kind: platformerrors.KindConfig, Execute: boom},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config-kind error, got %v", err)
	}
}
