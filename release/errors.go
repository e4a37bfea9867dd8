package release

import "errors"

// Errors reported while planning or running a release. They are wrapped with
// the offending package or command identity and can be tested with errors.Is.
var (
	// ErrUnknownPackage reports a publish-order entry naming no package of
	// the project.
	ErrUnknownPackage = errors.New("unknown package")

	// ErrDuplicatePackage reports a package named more than once in the
	// publish order.
	ErrDuplicatePackage = errors.New("duplicate package")

	// ErrDependencyCycle reports that the in-project dependency graph is
	// not acyclic, so no publish order can exist.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrOrderViolation reports an explicit publish order that contradicts
	// the dependency graph declared in the manifests.
	ErrOrderViolation = errors.New("publish order violates dependency graph")

	// ErrCollaborator reports a failed external command (consistency check,
	// publish, or version control).
	ErrCollaborator = errors.New("collaborator command failed")
)
