package pipeline

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vfdiscovery/pkg/changelog"
	"github.com/matzehuels/vfdiscovery/pkg/dependents"
	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/lockfile"
)

// Stage names.
const (
	StageExactVersion      = "exact-version"
	StagePackageDescriptor = "package-descriptor"
	StageConfig            = "config"
	StageChangelog         = "changelog"
	StageDependents        = "dependents"
)

// StageNames lists every stage in pipeline order.
var StageNames = []string{
	StageExactVersion,
	StagePackageDescriptor,
	StageConfig,
	StageChangelog,
	StageDependents,
}

// LockResolver resolves installed versions from the host project.
type LockResolver interface {
	Resolve(rootDir string, declared map[string]string, prefix string) (lockfile.Map, error)
}

// Source serves upstream component artifacts by unprefixed name.
type Source interface {
	PackageDescriptor(ctx context.Context, name string) (*discovery.PackageDescriptor, error)
	Config(ctx context.Context, name string) (*discovery.ComponentConfig, error)
	Changelog(ctx context.Context, name string) (string, error)
}

// DependentsFinder matches a component against candidate files.
type DependentsFinder interface {
	Dependents(name string, candidates []dependents.PotentialDependent) ([]string, error)
}

// RunContext is shared, read-only state handed to every stage.
type RunContext struct {
	RootDir string
	// Declared maps manifest dependency names to their declared ranges.
	Declared            map[string]string
	Locks               LockResolver
	Source              Source
	Finder              DependentsFinder
	PotentialDependents []dependents.PotentialDependent
	Logger              *log.Logger
}

func (rc *RunContext) logger() *log.Logger {
	if rc.Logger == nil {
		return log.Default()
	}
	return rc.Logger
}

// Selection picks the stages of a run.
type Selection struct {
	// OnlyOutdated keeps only what is needed to tell whether a component
	// is outdated: config, changelog and dependents are skipped.
	OnlyOutdated bool
	// Disabled names stages to skip.
	Disabled []string
}

// ValidateStageNames reports the first unknown stage name.
func ValidateStageNames(names []string) error {
	for _, n := range names {
		if !slices.Contains(StageNames, n) {
			return errors.New(errors.ErrCodeInvalidInput,
				"unknown stage %q, choose from: %s", n, strings.Join(StageNames, ", "))
		}
	}
	return nil
}

// DefaultStages returns the standard stages with Enabled set from sel.
func DefaultStages(sel Selection) []Stage {
	enabled := func(name string) bool {
		if slices.Contains(sel.Disabled, name) {
			return false
		}
		if sel.OnlyOutdated {
			switch name {
			case StageConfig, StageChangelog, StageDependents:
				return false
			}
		}
		return true
	}

	return []Stage{
		{Name: StageExactVersion, Run: ExactVersion, Enabled: enabled(StageExactVersion)},
		{Name: StagePackageDescriptor, Run: PackageDescriptor, Enabled: enabled(StagePackageDescriptor)},
		{Name: StageConfig, Run: Config, Enabled: enabled(StageConfig)},
		{
			Name:     StageChangelog,
			Run:      Changelog,
			Enabled:  enabled(StageChangelog),
			Requires: []string{StageExactVersion, StagePackageDescriptor},
		},
		{Name: StageDependents, Run: Dependents, Enabled: enabled(StageDependents)},
	}
}

func requireName(item discovery.Item, what string) error {
	if item.Name == "" || item.NameWithoutPrefix == "" {
		return errors.New(errors.ErrCodeApp, "package name not defined, hence could not get %s", what)
	}
	return nil
}

// ExactVersion sets Version from the host project's lock file.
func ExactVersion(_ context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error) {
	if err := requireName(item, "exact version"); err != nil {
		return item, err
	}
	rc.logger().Debug("retrieving exact version", "component", item.NameWithoutPrefix)

	m, err := rc.Locks.Resolve(rc.RootDir, rc.Declared, discovery.Prefix)
	if err != nil {
		return item, err
	}
	v, ok := m.Version(item.Name)
	if !ok {
		return item, errors.New(errors.ErrCodeApp, "%s - could not retrieve exact version", item.NameWithoutPrefix)
	}
	item.Version = &v
	return item, nil
}

// PackageDescriptor sets the upstream package.json.
func PackageDescriptor(ctx context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error) {
	if err := requireName(item, "package.json"); err != nil {
		return item, err
	}
	rc.logger().Debug("retrieving latest package information", "component", item.NameWithoutPrefix)

	pd, err := rc.Source.PackageDescriptor(ctx, item.NameWithoutPrefix)
	if err != nil {
		return item, err
	}
	item.PackageDescriptor = pd
	return item, nil
}

// Config sets the upstream component config.
func Config(ctx context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error) {
	if err := requireName(item, "component config"); err != nil {
		return item, err
	}
	rc.logger().Debug("retrieving component configuration", "component", item.NameWithoutPrefix)

	cfg, err := rc.Source.Config(ctx, item.NameWithoutPrefix)
	if err != nil {
		return item, err
	}
	item.Config = cfg
	return item, nil
}

// Changelog sets the changes published since the installed version. When
// the installed version is the latest one the changelog is not fetched.
func Changelog(ctx context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error) {
	if item.Version == nil || item.PackageDescriptor == nil || item.NameWithoutPrefix == "" {
		return item, errors.New(errors.ErrCodeApp, "information not complete to get changelog")
	}

	installed, latest := item.InstalledVersion(), item.LatestVersion()
	if installed == latest {
		item.Changelog = []discovery.ChangelogEntry{}
		return item, nil
	}
	rc.logger().Debug("retrieving changelog", "component", item.NameWithoutPrefix,
		"installed", installed, "latest", latest)

	text, err := rc.Source.Changelog(ctx, item.NameWithoutPrefix)
	if err != nil {
		return item, err
	}
	item.Changelog = changelog.Extract(text, installed, latest)
	return item, nil
}

// Dependents sets the project files that reference the component.
func Dependents(_ context.Context, item discovery.Item, rc *RunContext) (discovery.Item, error) {
	if err := requireName(item, "dependents"); err != nil {
		return item, err
	}
	rc.logger().Debug("getting dependents", "component", item.NameWithoutPrefix)

	deps, err := rc.Finder.Dependents(item.NameWithoutPrefix, rc.PotentialDependents)
	if err != nil {
		return item, err
	}
	item.Dependents = deps
	return item, nil
}
