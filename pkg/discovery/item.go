// Package discovery defines the record produced for every component found in
// a host project and the manifest scan that creates those records.
//
// An [Item] starts with only its name set. Each pipeline stage returns a copy
// with exactly one more field populated; nil means the stage has not run (or
// was disabled), which lets renderers tell "no dependents" apart from
// "dependents not computed".
package discovery

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Prefix is the npm scope that marks a dependency as a vf-core component.
const Prefix = "@visual-framework/"

// PackageDescriptor is the subset of an upstream package.json the pipeline uses.
type PackageDescriptor struct {
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// ComponentConfig is the title/label/status triple of a component config file.
type ComponentConfig struct {
	Title  string `json:"title" yaml:"title"`
	Label  string `json:"label" yaml:"label"`
	Status string `json:"status" yaml:"status"`
}

// ChangelogEntry lists the changes published for one version.
type ChangelogEntry struct {
	Version string   `json:"version"`
	Changes []string `json:"changes"`
}

// Item is one row of the discovery report.
type Item struct {
	Name              string             `json:"name"`
	NameWithoutPrefix string             `json:"nameWithoutPrefix"`
	Version           *string            `json:"version,omitempty"`
	PackageDescriptor *PackageDescriptor `json:"packageDescriptor,omitempty"`
	Config            *ComponentConfig   `json:"config,omitempty"`
	Changelog         []ChangelogEntry   `json:"changelog"`
	Dependents        []string           `json:"dependents"`
}

// NewItem creates an item for the scoped package name.
func NewItem(name string) Item {
	return Item{Name: name, NameWithoutPrefix: WithoutPrefix(name)}
}

// WithoutPrefix strips the component scope from name.
func WithoutPrefix(name string) string {
	return strings.TrimPrefix(name, Prefix)
}

// InstalledVersion returns the resolved installed version or "".
func (i Item) InstalledVersion() string {
	if i.Version == nil {
		return ""
	}
	return *i.Version
}

// LatestVersion returns the upstream version or "".
func (i Item) LatestVersion() string {
	if i.PackageDescriptor == nil {
		return ""
	}
	return i.PackageDescriptor.Version
}

// Outdated reports whether the installed version is behind upstream.
// Versions that are not valid semver are compared as plain strings.
func (i Item) Outdated() bool {
	installed, latest := i.InstalledVersion(), i.LatestVersion()
	if installed == "" || latest == "" {
		return false
	}
	iv, err1 := semver.NewVersion(installed)
	lv, err2 := semver.NewVersion(latest)
	if err1 != nil || err2 != nil {
		return installed != latest
	}
	return iv.LessThan(lv)
}
