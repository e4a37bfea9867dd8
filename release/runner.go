package release

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/etnz/release-train/artifact"
	"github.com/etnz/release-train/project"
)

// Collaborators are the external commands a release run drives. Each one is
// injectable so the run logic can be exercised without spawning processes.
// A nil field skips that step.
type Collaborators struct {
	// Check runs the consistency/build verification after synchronization.
	Check func() error
	// Publish publishes one planned step. Steps are published strictly in
	// plan order and a failure halts the remaining steps.
	Publish func(Step) error
	// Commit records the synchronized manifests in version control.
	Commit func(message string) error
	// Push publishes the version-control state to its remote.
	Push func() error
}

// Runner drives one release run: synchronize, check, commit, plan, verify
// artifacts, publish. Every failure is fatal to the run; manifests already
// synchronized are left as written (see project.RestoreBackups).
type Runner struct {
	Project *project.Project
	// Target is the version every package is synchronized to.
	Target string
	// Order is the explicit publish order. When empty the order is derived
	// from the dependency graph; when set it is verified against it.
	Order []string
	// Dist is the directory holding built artifacts. When set, every
	// planned artifact is verified against its manifest before any publish.
	Dist string

	Collaborators Collaborators
	Listener      Listener
}

// Run executes the release run and returns the plan it published.
func (r *Runner) Run() (*Plan, error) {
	l := r.Listener
	if l == nil {
		l = func(fmt.Stringer) {}
	}

	ops, err := r.Project.Synchronize(r.Target)
	if err != nil {
		return nil, fmt.Errorf("synchronizing to %s: %w", r.Target, err)
	}
	for _, op := range ops {
		l(EventManifestSync{Path: op.Path, OldDigest: op.OldDigest, NewDigest: op.NewDigest, Changed: op.Changed()})
	}

	if r.Collaborators.Check != nil {
		if err := r.Collaborators.Check(); err != nil {
			return nil, fmt.Errorf("consistency check: %v: %w", err, ErrCollaborator)
		}
		l(EventCheckSuccess{})
	}

	if r.Collaborators.Commit != nil {
		if err := r.Collaborators.Commit(fmt.Sprintf("release %s", r.Target)); err != nil {
			return nil, fmt.Errorf("commit: %v: %w", err, ErrCollaborator)
		}
		l(EventVersionControlSuccess{Action: "commit"})
	}
	if r.Collaborators.Push != nil {
		if err := r.Collaborators.Push(); err != nil {
			return nil, fmt.Errorf("push: %v: %w", err, ErrCollaborator)
		}
		l(EventVersionControlSuccess{Action: "push"})
	}

	plan, err := r.Plan()
	if err != nil {
		return nil, err
	}

	for i := range plan.Steps {
		step := &plan.Steps[i]
		if r.Dist != "" {
			path := filepath.Join(r.Dist, artifact.Filename(step.Package, step.Version))
			if err := artifact.Verify(path, step.Package, step.Version); err != nil {
				return nil, fmt.Errorf("verifying artifact for %s: %w", step.Package, err)
			}
			step.ArtifactPath = path
			l(EventArtifactVerified{Package: step.Package, Path: path})
		}
	}

	for _, step := range plan.Steps {
		if r.Collaborators.Publish != nil {
			if err := r.Collaborators.Publish(step); err != nil {
				return nil, fmt.Errorf("publishing %s: %v: %w", step.Package, err, ErrCollaborator)
			}
		}
		l(EventPublishSuccess{Package: step.Package, Version: step.Version, Manifest: step.ManifestPath, Artifact: step.ArtifactPath})
	}

	return plan, nil
}

// Plan computes the publish plan without side effects: the order is derived
// from the dependency graph when no explicit order is configured, and
// verified against it otherwise.
func (r *Runner) Plan() (*Plan, error) {
	graph, err := NewGraph(r.Project)
	if err != nil {
		return nil, err
	}

	order := r.Order
	if len(order) == 0 {
		order = graph.TopoOrder()
	}
	plan, err := NewPlan(order, r.Project)
	if err != nil {
		return nil, err
	}
	if len(r.Order) > 0 {
		if err := graph.VerifyOrder(r.Order); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// CommandSet holds the collaborator command lines from configuration.
// Publish arguments may use the placeholders {package}, {version},
// {manifest} and {artifact}; commit arguments may use {message}.
type CommandSet struct {
	Check   []string
	Publish []string
	Commit  []string
	Push    []string
}

// ExecCollaborators builds Collaborators that run the configured commands
// with os/exec, inheriting stdout and stderr. Empty command lines yield nil
// collaborators, skipping the step.
func ExecCollaborators(c CommandSet) Collaborators {
	run := func(args []string) error {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	var collab Collaborators
	if len(c.Check) > 0 {
		collab.Check = func() error { return run(c.Check) }
	}
	if len(c.Publish) > 0 {
		collab.Publish = func(s Step) error {
			return run(expand(c.Publish, map[string]string{
				"{package}":  s.Package,
				"{version}":  s.Version,
				"{manifest}": s.ManifestPath,
				"{artifact}": s.ArtifactPath,
			}))
		}
	}
	if len(c.Commit) > 0 {
		collab.Commit = func(message string) error {
			return run(expand(c.Commit, map[string]string{"{message}": message}))
		}
	}
	if len(c.Push) > 0 {
		collab.Push = func() error { return run(c.Push) }
	}
	return collab
}

// PrintCollaborators builds Collaborators that write the expanded commands to
// w instead of executing them, for dry runs.
func PrintCollaborators(w io.Writer, c CommandSet) Collaborators {
	print := func(args []string) error {
		_, err := fmt.Fprintln(w, strings.Join(args, " "))
		return err
	}

	var collab Collaborators
	if len(c.Check) > 0 {
		collab.Check = func() error { return print(c.Check) }
	}
	if len(c.Publish) > 0 {
		collab.Publish = func(s Step) error {
			return print(expand(c.Publish, map[string]string{
				"{package}":  s.Package,
				"{version}":  s.Version,
				"{manifest}": s.ManifestPath,
				"{artifact}": s.ArtifactPath,
			}))
		}
	}
	if len(c.Commit) > 0 {
		collab.Commit = func(message string) error {
			return print(expand(c.Commit, map[string]string{"{message}": message}))
		}
	}
	if len(c.Push) > 0 {
		collab.Push = func() error { return print(c.Push) }
	}
	return collab
}

func expand(args []string, vars map[string]string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		for placeholder, value := range vars {
			a = strings.ReplaceAll(a, placeholder, value)
		}
		out[i] = a
	}
	return out
}
