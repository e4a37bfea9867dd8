package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/etnz/release-train/project"
)

func testManifest(t *testing.T, content string) *project.Manifest {
	t.Helper()
	m, err := project.Parse("package.yaml", []byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return m
}

func TestPackAndReadManifest(t *testing.T) {
	m := testManifest(t, "name: geometry\nversion: 2.0.0\ndependencies:\n  algebra: 2.0.0\n")
	dir := t.TempDir()

	path, err := Pack(m, dir)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if filepath.Base(path) != "geometry_2.0.0.pkg" {
		t.Errorf("unexpected artifact name: %s", path)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if got.Name != "geometry" || got.Version != "2.0.0" {
		t.Errorf("embedded manifest mismatch: %s %s", got.Name, got.Version)
	}
	if got.Dependencies["algebra"] != "2.0.0" {
		t.Errorf("embedded dependencies mismatch: %v", got.Dependencies)
	}
}

func TestVerify(t *testing.T) {
	m := testManifest(t, "name: geometry\nversion: 2.0.0\n")
	dir := t.TempDir()
	path, err := Pack(m, dir)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	if err := Verify(path, "geometry", "2.0.0"); err != nil {
		t.Errorf("Verify failed on matching artifact: %v", err)
	}
	if err := Verify(path, "algebra", "2.0.0"); err == nil || !strings.Contains(err.Error(), "algebra") {
		t.Errorf("expected name mismatch error, got %v", err)
	}
	if err := Verify(path, "geometry", "3.0.0"); err == nil || !strings.Contains(err.Error(), "3.0.0") {
		t.Errorf("expected version mismatch error, got %v", err)
	}
}

func TestVerify_StaleBuild(t *testing.T) {
	// An artifact built before synchronization carries the old version in its
	// filename and its embedded manifest.
	m := testManifest(t, "name: geometry\nversion: 1.0.0\n")
	dir := t.TempDir()
	path, err := Pack(m, dir)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Even renamed to the expected filename, the embedded manifest gives the
	// stale build away.
	renamed := filepath.Join(dir, Filename("geometry", "2.0.0"))
	if err := os.Rename(path, renamed); err != nil {
		t.Fatal(err)
	}
	if err := Verify(renamed, "geometry", "2.0.0"); err == nil {
		t.Error("expected stale artifact to be rejected")
	}
}

func TestReadManifest_NoManifestMember(t *testing.T) {
	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		t.Fatal(err)
	}
	payload := []byte("binary payload")
	header := &ar.Header{Name: "payload.bin", Size: int64(len(payload)), Mode: 0644, ModTime: time.Now()}
	if err := w.WriteHeader(header); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "geometry_1.0.0.pkg")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadManifest(path); err == nil || !strings.Contains(err.Error(), ManifestMember) {
		t.Errorf("expected missing member error, got %v", err)
	}
}

func TestReadManifest_NotFound(t *testing.T) {
	if _, err := ReadManifest(filepath.Join(t.TempDir(), "missing.pkg")); err == nil {
		t.Error("expected error for missing artifact")
	}
}
