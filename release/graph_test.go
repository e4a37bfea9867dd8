package release

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/release-train/project"
)

// testProject builds a project on disk from package name to manifest content.
func testProject(t *testing.T, manifests map[string]string) (*project.Project, string) {
	t.Helper()
	root := t.TempDir()
	for pkg, content := range manifests {
		dir := filepath.Join(root, pkg)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, project.ManifestFilename), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := project.Discover(root)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	return p, root
}

// scenarioManifests is the reference project: a with no dependencies, b
// depending on a, c depending on b and on an external library.
func scenarioManifests() map[string]string {
	return map[string]string{
		"a": "name: a\nversion: 1.0.0\n",
		"b": "name: b\nversion: 1.0.0\ndependencies:\n  a: 1.0.0\n",
		"c": "name: c\nversion: 1.0.0\ndependencies:\n  b: 1.0.0\n  external-lib: 2.3\n",
	}
}

func TestTopoOrder(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())
	g, err := NewGraph(p)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	order := g.TopoOrder()
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %d packages, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestTopoOrder_Deterministic(t *testing.T) {
	// Diamond: app depends on left and right, both depend on base. The tie
	// between left and right is broken by name.
	p, _ := testProject(t, map[string]string{
		"app":   "name: app\nversion: 1.0.0\ndependencies:\n  left: 1.0.0\n  right: 1.0.0\n",
		"left":  "name: left\nversion: 1.0.0\ndependencies:\n  base: 1.0.0\n",
		"right": "name: right\nversion: 1.0.0\ndependencies:\n  base: 1.0.0\n",
		"base":  "name: base\nversion: 1.0.0\n",
	})
	g, err := NewGraph(p)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	want := []string{"base", "left", "right", "app"}
	for run := 0; run < 5; run++ {
		order := g.TopoOrder()
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("run %d: expected order %v, got %v", run, want, order)
			}
		}
	}
}

func TestNewGraph_ExternalDepsIgnored(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())
	g, err := NewGraph(p)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	deps := g.Dependencies("c")
	if len(deps) != 1 || deps[0] != "b" {
		t.Errorf("expected c to depend only on b, got %v", deps)
	}
}

func TestNewGraph_Cycle(t *testing.T) {
	p, _ := testProject(t, map[string]string{
		"a": "name: a\nversion: 1.0.0\ndependencies:\n  b: 1.0.0\n",
		"b": "name: b\nversion: 1.0.0\ndependencies:\n  a: 1.0.0\n",
	})
	_, err := NewGraph(p)
	if !errors.Is(err, ErrDependencyCycle) {
		t.Errorf("expected ErrDependencyCycle, got %v", err)
	}
}

func TestVerifyOrder(t *testing.T) {
	p, _ := testProject(t, scenarioManifests())
	g, err := NewGraph(p)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	if err := g.VerifyOrder([]string{"a", "b", "c"}); err != nil {
		t.Errorf("valid order rejected: %v", err)
	}
	if err := g.VerifyOrder([]string{"b", "a", "c"}); !errors.Is(err, ErrOrderViolation) {
		t.Errorf("expected ErrOrderViolation for b before a, got %v", err)
	}
	if err := g.VerifyOrder([]string{"b", "c"}); !errors.Is(err, ErrOrderViolation) {
		t.Errorf("expected ErrOrderViolation for missing dependency, got %v", err)
	}
	// A prefix of a valid order is itself valid.
	if err := g.VerifyOrder([]string{"a", "b"}); err != nil {
		t.Errorf("partial order rejected: %v", err)
	}
}
