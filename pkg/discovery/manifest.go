package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// ManifestFile is the host project manifest name.
const ManifestFile = "package.json"

// Manifest is the part of a host package.json used for discovery.
// Dependency maps keep the order in which the file declares them.
type Manifest struct {
	Name            string  `json:"name"`
	Version         string  `json:"version"`
	Dependencies    DepList `json:"dependencies"`
	DevDependencies DepList `json:"devDependencies"`
}

// Dep is one declared dependency and its version range.
type Dep struct {
	Name  string
	Range string
}

// DepList is a dependency object decoded in file order.
type DepList []Dep

// UnmarshalJSON decodes a JSON object while keeping key order.
func (d *DepList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dependencies: expected object, got %v", tok)
	}

	var out DepList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("dependencies: %s: %w", key, err)
		}
		out = append(out, Dep{Name: key, Range: value})
	}
	*d = out
	return nil
}

// Declared returns every declared range keyed by package name.
// A devDependency never overrides a runtime dependency of the same name.
func (m *Manifest) Declared() map[string]string {
	out := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for _, list := range []DepList{m.DevDependencies, m.Dependencies} {
		for _, d := range list {
			out[d.Name] = d.Range
		}
	}
	return out
}

// HasDependency reports whether name is a runtime dependency.
func (m *Manifest) HasDependency(name string) bool {
	for _, d := range m.Dependencies {
		if d.Name == name {
			return true
		}
	}
	return false
}

// ReadManifest parses rootDir/package.json.
// A missing file is reported as [errors.ErrCodeFileNotFound].
func ReadManifest(rootDir string) (*Manifest, error) {
	path := filepath.Join(rootDir, ManifestFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.FileNotFound(path)
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "parse %s", path)
	}
	return &m, nil
}

// Components returns the prefixed dependencies of the manifest, runtime
// dependencies first, each in declaration order.
func (m *Manifest) Components(prefix string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, list := range []DepList{m.Dependencies, m.DevDependencies} {
		for _, d := range list {
			if strings.HasPrefix(d.Name, prefix) && !seen[d.Name] {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
		}
	}
	return names
}

// FindComponents reads the manifest in rootDir and returns a fresh [Item] for
// every vf-core component it declares.
func FindComponents(rootDir string) ([]Item, *Manifest, error) {
	m, err := ReadManifest(rootDir)
	if err != nil {
		return nil, nil, err
	}

	names := m.Components(Prefix)
	if len(names) == 0 {
		return nil, nil, errors.New(errors.ErrCodeNoComponentsFound,
			"no %s dependencies found in %s", strings.TrimSuffix(Prefix, "/"), filepath.Join(rootDir, ManifestFile))
	}

	items := make([]Item, len(names))
	for i, name := range names {
		items[i] = NewItem(name)
	}
	return items, m, nil
}
