package release

import (
	"errors"
	"testing"
)

func TestNewPlan(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())

	order := []string{"a", "b", "c"}
	plan, err := NewPlan(order, p)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	if len(plan.Steps) != len(order) {
		t.Fatalf("expected %d steps, got %d", len(order), len(plan.Steps))
	}
	for i, name := range order {
		step := plan.Steps[i]
		if step.Package != name {
			t.Errorf("step %d: expected %s, got %s", i, name, step.Package)
		}
		m, _ := p.Get(name)
		if step.ManifestPath != m.Path {
			t.Errorf("step %d: expected manifest %s, got %s", i, m.Path, step.ManifestPath)
		}
		if step.Version != "1.0.0" {
			t.Errorf("step %d: expected version 1.0.0, got %s", i, step.Version)
		}
	}
}

func TestNewPlan_UnknownPackage(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())

	plan, err := NewPlan([]string{"a", "nope", "c"}, p)
	if !errors.Is(err, ErrUnknownPackage) {
		t.Errorf("expected ErrUnknownPackage, got %v", err)
	}
	if plan != nil {
		t.Error("expected no partial plan on failure")
	}
}

func TestNewPlan_DuplicatePackage(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())

	plan, err := NewPlan([]string{"a", "b", "a"}, p)
	if !errors.Is(err, ErrDuplicatePackage) {
		t.Errorf("expected ErrDuplicatePackage, got %v", err)
	}
	if plan != nil {
		t.Error("expected no partial plan on failure")
	}
}
