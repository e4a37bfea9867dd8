// Package release plans and drives the publication of a synchronized project:
// it derives a dependency-respecting publish order from the manifests, turns
// it into a publish plan, and runs the plan through external collaborator
// commands, halting on the first failure.
package release

import (
	"fmt"
	"sort"

	"github.com/etnz/release-train/project"
)

// Graph is the in-project dependency graph of a Project: one node per
// package, one edge per dependency entry naming another project package.
// External dependencies never contribute edges.
//
// A Graph is validated acyclic on construction and immutable afterwards.
type Graph struct {
	nodes []string            // sorted package names
	deps  map[string][]string // in-project dependencies per package, sorted
}

// NewGraph builds the dependency graph of the project and rejects it if it
// contains a cycle.
func NewGraph(p *project.Project) (*Graph, error) {
	names := p.Names()

	g := &Graph{
		nodes: make([]string, 0, len(p.Packages)),
		deps:  make(map[string][]string, len(p.Packages)),
	}
	for _, m := range p.Packages {
		g.nodes = append(g.nodes, m.Name)
		var deps []string
		for dep := range m.Dependencies {
			if names[dep] && dep != m.Name {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		g.deps[m.Name] = deps
	}
	sort.Strings(g.nodes)

	if len(g.TopoOrder()) != len(g.nodes) {
		return nil, fmt.Errorf("involving package %q: %w", g.cycleMember(), ErrDependencyCycle)
	}
	return g, nil
}

// Dependencies returns the in-project dependencies of the named package.
func (g *Graph) Dependencies(name string) []string {
	out := make([]string, len(g.deps[name]))
	copy(out, g.deps[name])
	return out
}

// TopoOrder returns a deterministic topological ordering of the package
// names: every package appears after all its in-project dependencies, and
// ties are broken by name ascending.
func (g *Graph) TopoOrder() []string {
	indeg := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.deps[n])
		for _, d := range g.deps[n] {
			dependents[d] = append(dependents[d], n)
		}
	}

	var ready []string
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		// Smallest ready name first keeps the order stable across runs.
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, dep := range dependents[n] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Strings(ready)
	}
	return order
}

// cycleMember returns the smallest-named package left unprocessed by the
// topological sort, which necessarily sits on or behind a cycle.
func (g *Graph) cycleMember() string {
	processed := make(map[string]bool)
	for _, n := range g.TopoOrder() {
		processed[n] = true
	}
	for _, n := range g.nodes {
		if !processed[n] {
			return n
		}
	}
	return ""
}

// VerifyOrder checks an explicit publish order against the graph: every
// listed package must appear after all its in-project dependencies, and those
// dependencies must be listed too. The order is not required to cover the
// whole project.
func (g *Graph) VerifyOrder(order []string) error {
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	for i, name := range order {
		for _, dep := range g.deps[name] {
			at, listed := position[dep]
			if !listed {
				return fmt.Errorf("package %q depends on %q which is missing from the order: %w", name, dep, ErrOrderViolation)
			}
			if at > i {
				return fmt.Errorf("package %q is listed before its dependency %q: %w", name, dep, ErrOrderViolation)
			}
		}
	}
	return nil
}
