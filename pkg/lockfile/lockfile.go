// Package lockfile resolves installed package versions from a host project's
// dependency lock file.
//
// Three formats are understood:
//   - npm package-lock.json (lockfileVersion 1 "dependencies", 2/3 "packages")
//   - yarn v1 yarn.lock (custom text format with "name@range" keys)
//   - yarn berry yarn.lock (YAML with "name@npm:range" keys)
//
// All of them are normalized into a [Map] keyed by plain package name.
package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// Lock file names, in lookup order.
const (
	NpmLockFile  = "package-lock.json"
	YarnLockFile = "yarn.lock"
)

// Entry is one resolved package.
type Entry struct {
	Version      string            `json:"version"`
	Resolved     string            `json:"resolved,omitempty"`
	Integrity    string            `json:"integrity,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Map holds resolved packages keyed by plain package name.
type Map map[string]Entry

// Version returns the installed version of name.
func (m Map) Version(name string) (string, bool) {
	e, ok := m[name]
	if !ok || e.Version == "" {
		return "", false
	}
	return e.Version, true
}

// Filter returns the entries whose name starts with prefix.
func (m Map) Filter(prefix string) Map {
	out := make(Map)
	for name, e := range m {
		if strings.HasPrefix(name, prefix) {
			out[name] = e
		}
	}
	return out
}

// Parse reads the lock file in rootDir. declared holds the version ranges
// from the host manifest and is used to pick between duplicate yarn entries.
//
// package-lock.json is tried first, then yarn.lock. If neither exists the
// error has code [errors.ErrCodeFileNotFound]; any other read error is
// returned unchanged.
func Parse(rootDir string, declared map[string]string) (Map, error) {
	npmPath := filepath.Join(rootDir, NpmLockFile)
	data, err := os.ReadFile(npmPath)
	if err == nil {
		return parseNpm(data)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	yarnPath := filepath.Join(rootDir, YarnLockFile)
	data, err = os.ReadFile(yarnPath)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"no lock file found in %s (tried %s, %s)", rootDir, NpmLockFile, YarnLockFile)
	}
	if err != nil {
		return nil, err
	}
	if isBerry(data) {
		return parseBerry(data, declared)
	}
	return parseYarn(data, declared)
}

// Cache stores parsed lock maps keyed by project directory.
type Cache interface {
	LockObject(rootDir string) (Map, bool)
	SetLockObject(rootDir string, m Map)
}

// Resolver parses lock files at most once per project directory. It is
// safe for concurrent use; concurrent callers wait for a single parse.
type Resolver struct {
	Cache  Cache
	Force  bool
	Logger *log.Logger

	mu     sync.Mutex
	parsed map[string]bool
}

// Resolve returns the lock map of rootDir restricted to names starting with
// prefix, reading it from the cache unless Force is set.
func (r *Resolver) Resolve(rootDir string, declared map[string]string, prefix string) (Map, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// With Force set, parse once per Resolver and serve later calls from
	// the refreshed cache.
	if !r.Force || r.parsed[rootDir] {
		if m, ok := r.Cache.LockObject(rootDir); ok {
			logger.Debug("lock object from cache", "dir", rootDir)
			return m, nil
		}
	}

	m, err := Parse(rootDir, declared)
	if err != nil {
		return nil, err
	}
	m = m.Filter(prefix)
	r.Cache.SetLockObject(rootDir, m)
	if r.Force {
		if r.parsed == nil {
			r.parsed = make(map[string]bool)
		}
		r.parsed[rootDir] = true
	}
	logger.Debug("parsed lock file", "dir", rootDir, "entries", len(m))
	return m, nil
}
