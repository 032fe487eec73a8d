// Package dependents finds the files of a host project that appear to use a
// component.
//
// The candidate files depend on the project type:
//
//	html     **/*.{html,njk}
//	angular  **/*.{html,ts}
//	react    **/*.{jsx,tsx}
//
// Each candidate is paired with a matcher chosen by file extension. Every
// matcher is a plain substring search for the unprefixed component name,
// so "vf-box" also matches "vf-box-extended".
package dependents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// ProjectType selects the candidate file set.
type ProjectType string

const (
	Auto    ProjectType = "auto"
	HTML    ProjectType = "html"
	Angular ProjectType = "angular"
	React   ProjectType = "react"
)

// AngularMarker is the file whose presence marks an Angular workspace.
const AngularMarker = "angular.json"

// ProjectTypes lists the accepted values, auto first.
var ProjectTypes = []ProjectType{Auto, HTML, Angular, React}

var globs = map[ProjectType]string{
	HTML:    "**/*.{html,njk}",
	Angular: "**/*.{html,ts}",
	React:   "**/*.{jsx,tsx}",
}

// ParseProjectType validates s. The empty string means [Auto].
func ParseProjectType(s string) (ProjectType, error) {
	if s == "" {
		return Auto, nil
	}
	for _, pt := range ProjectTypes {
		if string(pt) == strings.ToLower(s) {
			return pt, nil
		}
	}
	names := make([]string, len(ProjectTypes))
	for i, pt := range ProjectTypes {
		names[i] = string(pt)
	}
	return "", errors.New(errors.ErrCodeInvalidProjectType,
		"project type '%s' not recognised, choose one of: %s", s, strings.Join(names, ", "))
}

// Detect probes rootDir: an angular.json makes it Angular, a runtime
// dependency on react makes it React, anything else is HTML.
func Detect(rootDir string) (ProjectType, error) {
	if _, err := os.Stat(filepath.Join(rootDir, AngularMarker)); err == nil {
		return Angular, nil
	}

	m, err := discovery.ReadManifest(rootDir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeApp, err, "could not open %s to detect project type", discovery.ManifestFile)
	}
	if m.HasDependency("react") {
		return React, nil
	}
	return HTML, nil
}

// Resolve turns [Auto] into a concrete type and passes the others through.
func Resolve(rootDir string, pt ProjectType) (ProjectType, error) {
	if pt == "" || pt == Auto {
		return Detect(rootDir)
	}
	if _, ok := globs[pt]; !ok {
		return ParseProjectType(string(pt))
	}
	return pt, nil
}
