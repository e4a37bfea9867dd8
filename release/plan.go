package release

import (
	"fmt"

	"github.com/etnz/release-train/project"
)

// Step is one publish instruction of a Plan.
type Step struct {
	// Package is the name of the package to publish.
	Package string
	// Version is the package's version at planning time.
	Version string
	// ManifestPath is the location of the package's manifest, which the
	// external publish tool resolves to a publishable artifact.
	ManifestPath string
	// ArtifactPath is the built artifact location, set only when the run is
	// configured with an artifact directory.
	ArtifactPath string
}

// Plan is an ordered sequence of publish instructions, one per entry of the
// publish order that produced it.
type Plan struct {
	Steps []Step
}

// NewPlan turns a publish order into a Plan. Every name must refer to
// exactly one package of the project and no name may repeat; both conditions
// are checked before any step is produced, so a failed call yields no
// partial plan. The steps preserve the given order exactly.
func NewPlan(order []string, p *project.Project) (*Plan, error) {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := p.Get(name); !ok {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownPackage)
		}
		if seen[name] {
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicatePackage)
		}
		seen[name] = true
	}

	plan := &Plan{Steps: make([]Step, 0, len(order))}
	for _, name := range order {
		m, _ := p.Get(name)
		plan.Steps = append(plan.Steps, Step{
			Package:      m.Name,
			Version:      m.Version,
			ManifestPath: m.Path,
		})
	}
	return plan, nil
}
