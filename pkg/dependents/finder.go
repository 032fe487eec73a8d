package dependents

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// DefaultContentCacheSize bounds the number of file contents kept in memory.
const DefaultContentCacheSize = 512

// Matcher reports whether contents reference the component name.
type Matcher func(name, contents string) bool

// Contains is the substring matcher used for every supported extension.
func Contains(name, contents string) bool {
	return name != "" && strings.Contains(contents, name)
}

var matchers = map[string]Matcher{
	"html": Contains,
	"njk":  Contains,
	"ts":   Contains,
	"jsx":  Contains,
	"tsx":  Contains,
}

// PotentialDependent is a candidate file and the matcher for its extension.
type PotentialDependent struct {
	// FilePath is the absolute path read by the finder.
	FilePath string
	// RelPath is FilePath relative to the project root, slash separated.
	RelPath string
	Matcher Matcher
}

// PotentialDependents lists the candidate files of rootDir for pt, which
// may be [Auto]. Paths matching any ignore pattern (relative to rootDir or
// absolute) are skipped, as is everything under node_modules.
func PotentialDependents(rootDir string, pt ProjectType, ignore []string) ([]PotentialDependent, error) {
	pt, err := Resolve(rootDir, pt)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	for _, p := range ignore {
		if _, err := doublestar.Match(p, ""); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid ignore pattern %q", p)
		}
	}

	paths, err := doublestar.Glob(filepath.Join(root, filepath.FromSlash(globs[pt])))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeApp, err, "list %s files in %s", pt, root)
	}
	slices.Sort(paths)

	var out []PotentialDependent
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		if ignored(rel, filepath.ToSlash(path), ignore) {
			continue
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		matcher, ok := matchers[ext]
		if !ok {
			return nil, errors.New(errors.ErrCodeApp, "matcher not found for extension %s", ext)
		}
		out = append(out, PotentialDependent{FilePath: path, RelPath: rel, Matcher: matcher})
	}
	return out, nil
}

func ignored(rel, abs string, patterns []string) bool {
	if slices.Contains(strings.Split(rel, "/"), "node_modules") {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, abs); ok {
			return true
		}
	}
	return false
}

// Finder matches components against the potential dependents of a run.
// File contents are cached across components. It is safe for concurrent use.
type Finder struct {
	contents *lru.Cache[string, string]
	logger   *log.Logger
}

// NewFinder creates a finder keeping up to size file contents in memory.
func NewFinder(size int, logger *log.Logger) (*Finder, error) {
	if size <= 0 {
		size = DefaultContentCacheSize
	}
	if logger == nil {
		logger = log.Default()
	}
	contents, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Finder{contents: contents, logger: logger}, nil
}

// Dependents returns the sorted, de-duplicated root-relative paths of the
// candidates whose contents match name (the unprefixed component name).
// The result is never nil.
func (f *Finder) Dependents(name string, candidates []PotentialDependent) ([]string, error) {
	out := []string{}
	for _, pd := range candidates {
		contents, err := f.read(pd.FilePath)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeApp, err, "%s - could not read %s", name, pd.RelPath)
		}
		if pd.Matcher(name, contents) {
			out = append(out, pd.RelPath)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	f.logger.Debug("dependents matched", "component", name, "candidates", len(candidates), "matches", len(out))
	return out, nil
}

func (f *Finder) read(path string) (string, error) {
	if s, ok := f.contents.Get(path); ok {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s := string(data)
	f.contents.Add(path, s)
	return s, nil
}
