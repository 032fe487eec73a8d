// Package changelog extracts the cumulative set of changes between an
// installed and a latest component version from a CHANGELOG.md.
//
// A section starts at a markdown heading whose first word is a semantic
// version, with or without a "v" prefix or link brackets:
//
//	### 1.2.0
//	## [1.2.0](https://...) (2021-03-04)
//	### v1.2.0
//
// Lines starting with "*" or "-" inside a section are its changes. A heading
// without a parseable version nested deeper than the section heading, such
// as "### Bug Fixes" under "## 1.2.0", belongs to the section. One at the
// same or a shallower level ends it, and the bullets under it are dropped.
package changelog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
)

var heading = regexp.MustCompile(`^#{1,6}\s+\[?v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?)\]?`)

type section struct {
	level   int
	version *semver.Version
	entry   discovery.ChangelogEntry
}

// Parse returns every well-formed section of text, in document order.
func Parse(text string) []discovery.ChangelogEntry {
	sections := parse(text)
	out := make([]discovery.ChangelogEntry, len(sections))
	for i, s := range sections {
		out[i] = s.entry
	}
	return out
}

func parse(text string) []section {
	var (
		sections []section
		current  *section
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")

		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			raw, v, ok := versionHeading(line)
			switch {
			case ok:
				sections = append(sections, section{
					level:   level,
					version: v,
					entry:   discovery.ChangelogEntry{Version: raw, Changes: []string{}},
				})
				current = &sections[len(sections)-1]
			case current != nil && level <= current.level:
				current = nil
			}
			continue
		}

		if current == nil {
			continue
		}
		if change, ok := bullet(line); ok {
			current.entry.Changes = append(current.entry.Changes, change)
		}
	}
	return sections
}

func versionHeading(line string) (string, *semver.Version, bool) {
	m := heading.FindStringSubmatch(line)
	if m == nil {
		return "", nil, false
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return "", nil, false
	}
	return m[1], v, true
}

func bullet(line string) (string, bool) {
	for _, marker := range []string{"*", "-"} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// Extract returns the sections of text newer than installed and not newer
// than latest, newest first.
//
// When installed equals latest the result is empty and text is not read.
// When installed is not a semantic version (a branch name, say) every
// section up to latest is returned. An unparseable latest sets no upper
// bound.
func Extract(text, installed, latest string) []discovery.ChangelogEntry {
	if installed == latest {
		return []discovery.ChangelogEntry{}
	}

	lower, _ := semver.NewVersion(installed)
	upper, _ := semver.NewVersion(latest)

	sections := parse(text)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].version.GreaterThan(sections[j].version)
	})

	out := []discovery.ChangelogEntry{}
	for _, s := range sections {
		if lower != nil && !s.version.GreaterThan(lower) {
			continue
		}
		if upper != nil && s.version.GreaterThan(upper) {
			continue
		}
		out = append(out, s.entry)
	}
	return out
}
