// Package cache implements the on-disk store for parsed lock files and
// upstream component artifacts.
//
// The whole store lives in a single JSON document:
//
//	{
//	  "lockObjects": {"<projectDir>": {"<package>": {"version": "..."}}},
//	  "components":  {"<package>": {"packageDescriptor": {...}, "config": {...}, "changelog": "..."}}
//	}
//
// A [Store] is loaded once per run, mutated in memory by concurrently running
// pipeline items, and written back with a single [Store.Flush] after every
// item has settled. A missing key means "not fetched yet"; failed fetches are
// never stored.
package cache

import (
	"encoding/json"
	"maps"
	"os"
	"sync"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/lockfile"
)

// Component holds the cached upstream artifacts of one component.
type Component struct {
	PackageDescriptor *discovery.PackageDescriptor `json:"packageDescriptor,omitempty"`
	Config            *discovery.ComponentConfig   `json:"config,omitempty"`
	Changelog         *string                      `json:"changelog,omitempty"`
}

// Data is the persisted document.
type Data struct {
	Components  map[string]Component    `json:"components"`
	LockObjects map[string]lockfile.Map `json:"lockObjects"`
}

// Empty returns a document with no entries.
func Empty() Data {
	return Data{
		Components:  make(map[string]Component),
		LockObjects: make(map[string]lockfile.Map),
	}
}

// Store is the in-memory view of the cache file. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	data Data
}

// NewStore creates an empty store that flushes to path.
func NewStore(path string) *Store {
	return &Store{path: path, data: Empty()}
}

// Open loads the cache file at path.
func Open(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.FileNotFound(path)
	}
	if err != nil {
		return nil, err
	}

	data := Empty()
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "parse cache %s", path)
	}
	if data.Components == nil {
		data.Components = make(map[string]Component)
	}
	if data.LockObjects == nil {
		data.LockObjects = make(map[string]lockfile.Map)
	}
	return &Store{path: path, data: data}, nil
}

// Path returns the file the store flushes to.
func (s *Store) Path() string { return s.path }

// LockObject returns the lock map cached for a project directory.
func (s *Store) LockObject(rootDir string) (lockfile.Map, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data.LockObjects[rootDir]
	return m, ok
}

// SetLockObject caches the lock map of a project directory.
func (s *Store) SetLockObject(rootDir string, m lockfile.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LockObjects[rootDir] = m
}

// Component returns the cached artifacts of a component.
func (s *Store) Component(name string) (Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.Components[name]
	return c, ok
}

// UpdateComponent applies fn to the cached artifacts of a component,
// creating the entry if needed.
func (s *Store) UpdateComponent(name string, fn func(*Component)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.data.Components[name]
	fn(&c)
	s.data.Components[name] = c
}

// Snapshot returns a copy of the document.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Data{
		Components:  maps.Clone(s.data.Components),
		LockObjects: maps.Clone(s.data.LockObjects),
	}
}

// Flush writes the document to disk.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WriteJSON(s.path, s.data)
}
