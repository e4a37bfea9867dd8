package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// BackupSuffix is appended to a manifest path to form its backup file.
const BackupSuffix = ".bak"

// FileOperation describes the outcome of one manifest write during
// synchronization.
type FileOperation struct {
	// Path is the manifest file location.
	Path string
	// OldDigest is the SHA256 of the content before synchronization.
	OldDigest string
	// NewDigest is the SHA256 of the content after synchronization.
	// Equal to OldDigest when the manifest was already synchronized.
	NewDigest string
}

// Changed reports whether the file content was rewritten.
func (op FileOperation) Changed() bool { return op.OldDigest != op.NewDigest }

type stagedWrite struct {
	manifest *Manifest
	content  []byte
}

// Synchronize rewrites every manifest so that its declared version, and every
// dependency constraint naming another package of the project, require the
// target version. External dependency constraints are never touched.
//
// The rewrite is staged: all new contents are computed and validated in
// memory first, and only then committed file by file (backup, then
// write-and-rename), so a malformed manifest aborts the run before any file
// is mutated. Committing an already-synchronized manifest is a no-op.
func (p *Project) Synchronize(target string) ([]FileOperation, error) {
	if target == "" {
		return nil, fmt.Errorf("target version must not be empty")
	}

	names := p.Names()

	// Stage phase: compute every rewrite before touching any file.
	staged := make([]stagedWrite, 0, len(p.Packages))
	for _, m := range p.Packages {
		content, err := m.rewrite(names, target)
		if err != nil {
			return nil, err
		}
		if err := verifyStaged(m, content, names, target); err != nil {
			return nil, err
		}
		staged = append(staged, stagedWrite{manifest: m, content: content})
	}

	// Commit phase.
	ops := make([]FileOperation, 0, len(staged))
	for _, s := range staged {
		m := s.manifest
		op := FileOperation{
			Path:      m.Path,
			OldDigest: digest(m.content),
			NewDigest: digest(s.content),
		}
		ops = append(ops, op)
		if !op.Changed() {
			continue
		}
		if err := commit(m.Path, m.content, s.content); err != nil {
			return ops, err
		}
		m.content = s.content
		m.Version = target
		for dep := range m.Dependencies {
			if names[dep] && dep != m.Name {
				m.Dependencies[dep] = target
			}
		}
	}
	return ops, nil
}

// verifyStaged re-parses staged content and checks the rewrite reached every
// declaration it was meant to. A declaration the line scan cannot see, such
// as a dependency in a flow mapping, parses cleanly but keeps its old
// constraint, which would silently break the synchronization invariant.
func verifyStaged(m *Manifest, content []byte, names map[string]bool, target string) error {
	parsed, err := Parse(m.Path, content)
	if err != nil {
		return err
	}
	if parsed.Version != target {
		return fmt.Errorf("%s: version declaration not rewritable: %w", m.Path, ErrManifestMalformed)
	}
	for dep, constraint := range parsed.Dependencies {
		if names[dep] && dep != m.Name && constraint != target {
			return fmt.Errorf("%s: dependency %q declaration not rewritable: %w", m.Path, dep, ErrManifestMalformed)
		}
	}
	return nil
}

// commit retains a backup of the original content, then replaces the manifest
// atomically with a write-and-rename.
func commit(path string, original, content []byte) error {
	if err := os.WriteFile(path+BackupSuffix, original, 0644); err != nil {
		return fmt.Errorf("writing backup for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// RestoreBackups walks root and moves every manifest backup left by a
// previous synchronization back over its manifest. It returns the restored
// manifest paths. Restoration is an explicit operator action: a failed run
// never restores automatically, since the already-synchronized manifests may
// match packages that were already published.
func RestoreBackups(root string) ([]string, error) {
	var restored []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ManifestFilename+BackupSuffix {
			return nil
		}
		target := path[:len(path)-len(BackupSuffix)]
		if err := os.Rename(path, target); err != nil {
			return fmt.Errorf("restoring %s: %w", target, err)
		}
		restored = append(restored, target)
		return nil
	})
	if err != nil {
		return restored, err
	}
	sort.Strings(restored)
	return restored, nil
}

func digest(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
