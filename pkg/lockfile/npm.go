package lockfile

import (
	"encoding/json"
	"strings"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

type npmLock struct {
	LockfileVersion int                 `json:"lockfileVersion"`
	Dependencies    map[string]npmEntry `json:"dependencies"`
	Packages        map[string]npmEntry `json:"packages"`
}

// npmEntry covers both layouts: v1 nests whole entries under
// "dependencies" and lists ranges under "requires"; v2+ lists ranges under
// "dependencies".
type npmEntry struct {
	Version      string            `json:"version"`
	Resolved     string            `json:"resolved"`
	Integrity    string            `json:"integrity"`
	Requires     map[string]string `json:"requires"`
	Dependencies json.RawMessage   `json:"dependencies"`
}

func (e npmEntry) entry() Entry {
	out := Entry{
		Version:      e.Version,
		Resolved:     e.Resolved,
		Integrity:    e.Integrity,
		Dependencies: e.Requires,
	}
	var ranges map[string]string
	if len(e.Dependencies) > 0 && json.Unmarshal(e.Dependencies, &ranges) == nil {
		out.Dependencies = ranges
	}
	return out
}

const nodeModules = "node_modules/"

func parseNpm(data []byte) (Map, error) {
	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "parse %s", NpmLockFile)
	}

	if len(lock.Dependencies) > 0 {
		m := make(Map, len(lock.Dependencies))
		for name, e := range lock.Dependencies {
			m[name] = e.entry()
		}
		return m, nil
	}

	// lockfileVersion 3 drops "dependencies"; top-level installs live under
	// "node_modules/<name>" and nested ones under ".../node_modules/<name>".
	m := make(Map, len(lock.Packages))
	for path, e := range lock.Packages {
		if !strings.HasPrefix(path, nodeModules) {
			continue
		}
		name := strings.TrimPrefix(path, nodeModules)
		if strings.Contains(name, "/"+nodeModules) {
			continue
		}
		m[name] = e.entry()
	}
	return m, nil
}
