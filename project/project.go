// Package project models a multi-package project released as one unit: it
// discovers package manifests under a project root, and synchronizes every
// manifest's version and intra-project dependency constraints to a single
// target version.
package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// ManifestFilename is the fixed name of a package manifest file.
const ManifestFilename = "package.yaml"

// Project is the set of all packages being released together.
type Project struct {
	// Packages holds the project's manifests, sorted by package name.
	Packages []*Manifest

	byName map[string]*Manifest
}

// Discover walks root and loads every package manifest found, at any depth.
// Two packages declaring the same name is an error.
func Discover(root string) (*Project, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == ManifestFilename {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %v: %w", root, err, ErrManifestNotFound)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s found under %s: %w", ManifestFilename, root, ErrManifestNotFound)
	}
	sort.Strings(paths)

	return load(paths)
}

// New builds a Project from explicit manifest paths.
func New(paths []string) (*Project, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifest paths given: %w", ErrManifestNotFound)
	}
	return load(paths)
}

func load(paths []string) (*Project, error) {
	p := &Project{byName: make(map[string]*Manifest, len(paths))}
	for _, path := range paths {
		m, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, exists := p.byName[m.Name]; exists {
			return nil, fmt.Errorf("package %q declared in both %s and %s: %w", m.Name, prev.Path, m.Path, ErrManifestMalformed)
		}
		p.byName[m.Name] = m
		p.Packages = append(p.Packages, m)
	}
	sort.Slice(p.Packages, func(i, j int) bool { return p.Packages[i].Name < p.Packages[j].Name })
	return p, nil
}

// Get returns the manifest of the named package.
func (p *Project) Get(name string) (*Manifest, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// Names returns the set of package names belonging to the project.
// Dependency rewriting uses it for exact-name membership tests.
func (p *Project) Names() map[string]bool {
	names := make(map[string]bool, len(p.Packages))
	for _, m := range p.Packages {
		names[m.Name] = true
	}
	return names
}
