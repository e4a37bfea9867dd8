// Package artifact reads and writes registry artifacts. An artifact is an AR
// archive named {package}_{version}.pkg whose first member is a copy of the
// package manifest taken at build time, so a built artifact can be checked
// against the manifests without unpacking its payload.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/blakesmith/ar"
	"github.com/etnz/release-train/project"
)

// ManifestMember is the archive member holding the manifest copy.
const ManifestMember = "manifest.yaml"

// Filename returns the canonical artifact filename for a package.
// Format: {name}_{version}.pkg
func Filename(name, version string) string {
	return fmt.Sprintf("%s_%s.pkg", name, version)
}

// Pack builds the artifact for a manifest into dir and returns its path.
// The manifest member is written first so readers can stop at the first
// member in the common case.
func Pack(m *project.Manifest, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		return "", fmt.Errorf("writing ar global header: %w", err)
	}

	content := m.Content()
	header := &ar.Header{
		Name:    ManifestMember,
		Size:    int64(len(content)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := w.WriteHeader(header); err != nil {
		return "", fmt.Errorf("writing %s header: %w", ManifestMember, err)
	}
	if _, err := w.Write(content); err != nil {
		return "", fmt.Errorf("writing %s: %w", ManifestMember, err)
	}

	path := filepath.Join(dir, Filename(m.Name, m.Version))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest extracts and parses the manifest member of the artifact at
// the given path.
func ReadManifest(path string) (*project.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := ar.NewReader(f)
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if header.Name != ManifestMember {
			continue
		}
		content := make([]byte, header.Size)
		if _, err := io.ReadFull(r, content); err != nil {
			return nil, fmt.Errorf("reading %s from %s: %w", ManifestMember, path, err)
		}
		return project.Parse(path, content)
	}
	return nil, fmt.Errorf("%s: no %s member found", path, ManifestMember)
}

// Verify checks that the artifact at path embeds a manifest declaring the
// given package name and version. It catches stale builds before any publish
// is attempted.
func Verify(path, name, version string) error {
	m, err := ReadManifest(path)
	if err != nil {
		return err
	}
	if m.Name != name {
		return fmt.Errorf("%s: embedded manifest declares package %q, want %q", path, m.Name, name)
	}
	if m.Version != version {
		return fmt.Errorf("%s: embedded manifest declares version %q, want %q", path, m.Version, version)
	}
	return nil
}
