package release

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

// SummaryFilename is the release summary written after a successful run.
const SummaryFilename = "RELEASE"

// SignedSummaryFilename is the clearsigned variant of the summary.
const SignedSummaryFilename = "RELEASE.asc"

// Summary describes a completed release: the target version and the files
// each plan step published (the artifact when one was verified, the manifest
// otherwise).
type Summary struct {
	Target string
	Date   time.Time
	Steps  []Step
}

// Generate renders the summary as a field/value text block listing the
// SHA256, size and name of every published file.
func (s *Summary) Generate() ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Target-Version: %s\n", s.Target)

	date := s.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	fmt.Fprintf(&b, "Date: %s\n", date.Format(time.RFC1123Z))

	names := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		names = append(names, step.Package)
	}
	fmt.Fprintf(&b, "Packages: %s\n", strings.Join(names, " "))

	fmt.Fprintf(&b, "SHA256:\n")
	for _, step := range s.Steps {
		file := step.ManifestPath
		if step.ArtifactPath != "" {
			file = step.ArtifactPath
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", step.Package, err)
		}
		h := sha256.Sum256(content)
		fmt.Fprintf(&b, " %x %d %s\n", h, len(content), filepath.Base(file))
	}
	return b.Bytes(), nil
}

// WriteTo writes the summary into dir, clearsigning it with the provided
// ASCII-armored PGP private key when one is given. Each written file is
// reported to the listener. It returns the paths written.
func (s *Summary) WriteTo(dir, gpgKey string, l Listener) ([]string, error) {
	if l == nil {
		l = func(fmt.Stringer) {}
	}

	content, err := s.Generate()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, SummaryFilename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, err
	}
	written := []string{path}
	l(EventSummaryWrite{Path: path})

	if gpgKey != "" {
		signed, err := signBytes(content, gpgKey)
		if err != nil {
			return written, fmt.Errorf("signing summary: %w", err)
		}
		signedPath := filepath.Join(dir, SignedSummaryFilename)
		if err := os.WriteFile(signedPath, signed, 0644); err != nil {
			return written, err
		}
		written = append(written, signedPath)
		l(EventSummaryWrite{Path: signedPath, Signed: true})
	}
	return written, nil
}

// signBytes signs the provided input bytes using the provided ASCII-armored
// PGP private key. It returns the signed message in clearsigned format.
func signBytes(input []byte, key string) ([]byte, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(key))
	if err != nil {
		return nil, err
	}
	var signer *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			signer = e
			break
		}
	}
	if signer == nil {
		return nil, fmt.Errorf("no private key found")
	}

	var out bytes.Buffer
	w, err := clearsign.Encode(&out, signer.PrivateKey, nil)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(input); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
