package project

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Manifest represents one package manifest loaded from disk.
// It keeps the raw file content so that rewrites can preserve formatting
// and comments of untouched lines.
type Manifest struct {
	// Name is the package identifier, unique within the project.
	Name string
	// Version is the package's declared version, treated as an opaque string.
	Version string
	// Dependencies maps dependency names to their version constraints,
	// for both in-project and external dependencies.
	Dependencies map[string]string
	// Path is the manifest file location.
	Path string

	content []byte
}

// Load reads and parses the package manifest at the given path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrManifestNotFound)
	}
	m, err := Parse(path, content)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Parse parses manifest content. The path is used for error reporting and
// recorded on the returned Manifest.
func Parse(path string, content []byte) (*Manifest, error) {
	// Internal DTO for YAML deserialization.
	type yamlManifest struct {
		Name         string            `yaml:"name"`
		Version      string            `yaml:"version"`
		Description  string            `yaml:"description"`
		Homepage     string            `yaml:"homepage"`
		License      string            `yaml:"license"`
		Dependencies map[string]string `yaml:"dependencies"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	var dto yamlManifest
	if err := dec.Decode(&dto); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrManifestMalformed)
	}
	if dto.Name == "" {
		return nil, fmt.Errorf("%s: missing 'name' field: %w", path, ErrManifestMalformed)
	}
	if dto.Version == "" {
		return nil, fmt.Errorf("%s: missing 'version' field: %w", path, ErrManifestMalformed)
	}

	return &Manifest{
		Name:         dto.Name,
		Version:      dto.Version,
		Dependencies: dto.Dependencies,
		Path:         path,
		content:      content,
	}, nil
}

// Content returns the manifest file content as last read or committed.
func (m *Manifest) Content() []byte {
	out := make([]byte, len(m.content))
	copy(out, m.content)
	return out
}

// rewrite returns the manifest content with the version declaration and every
// in-project dependency constraint set to target. The file is edited line by
// line: only the value portion of matching lines changes, all other bytes are
// preserved, including comments and the quoting style of the rewritten value.
func (m *Manifest) rewrite(projectNames map[string]bool, target string) ([]byte, error) {
	lines := strings.Split(string(m.content), "\n")

	versionLines := 0
	inDeps := false
	for i, line := range lines {
		indent, key, ok := splitKey(line)
		if !ok {
			continue
		}
		if indent == 0 {
			inDeps = key == "dependencies"
			if key == "version" {
				versionLines++
				lines[i] = setValue(line, target)
			}
			continue
		}
		// Indented mapping entry: only dependency entries are candidates,
		// and only those naming another package of the same project.
		if inDeps && projectNames[key] && key != m.Name {
			lines[i] = setValue(line, target)
		}
	}

	switch {
	case versionLines == 0:
		return nil, fmt.Errorf("%s: no version declaration: %w", m.Path, ErrManifestMalformed)
	case versionLines > 1:
		return nil, fmt.Errorf("%s: ambiguous version declaration (%d found): %w", m.Path, versionLines, ErrManifestMalformed)
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// splitKey extracts the mapping key of a "key: value" line.
// Blank lines, comments and sequence items report ok=false.
func splitKey(line string) (indent int, key string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	indent = len(line) - len(trimmed)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "- ") {
		return 0, "", false
	}
	idx := keyColon(line)
	if idx < 0 {
		return 0, "", false
	}
	key = strings.TrimSpace(line[:idx])
	if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
		key = key[1 : len(key)-1]
	}
	if key == "" {
		return 0, "", false
	}
	return indent, key, true
}

// keyColon returns the index of the colon separating the key from the value,
// skipping over a quoted key that may itself contain a colon.
func keyColon(line string) int {
	trimmed := strings.TrimLeft(line, " ")
	offset := len(line) - len(trimmed)
	if trimmed != "" && (trimmed[0] == '"' || trimmed[0] == '\'') {
		if end := strings.IndexByte(trimmed[1:], trimmed[0]); end >= 0 {
			if rel := strings.IndexByte(trimmed[end+2:], ':'); rel >= 0 {
				return offset + end + 2 + rel
			}
			return -1
		}
	}
	return strings.IndexByte(line, ':')
}

// setValue replaces the scalar value of a "key: value" line, keeping the
// indentation, the key, the value's quoting style and any trailing comment.
func setValue(line, value string) string {
	idx := keyColon(line)
	prefix := line[:idx+1]
	rest := line[idx+1:]

	i := 0
	for i < len(rest) && rest[i] == ' ' {
		i++
	}
	spacing := rest[:i]
	if spacing == "" {
		spacing = " "
	}
	body := rest[i:]

	var comment string
	if strings.HasPrefix(body, "#") {
		// No value at all, just a trailing comment.
		return prefix + spacing + value + " " + body
	}
	if len(body) > 0 && (body[0] == '"' || body[0] == '\'') {
		quote := body[0]
		if end := strings.IndexByte(body[1:], quote); end >= 0 {
			comment = body[end+2:]
		}
		return prefix + spacing + string(quote) + value + string(quote) + comment
	}
	if j := strings.IndexByte(body, '#'); j > 0 && body[j-1] == ' ' {
		k := j
		for k > 0 && body[k-1] == ' ' {
			k--
		}
		comment = body[k:]
	}
	return prefix + spacing + value + comment
}
