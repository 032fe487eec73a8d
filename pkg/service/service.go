// Package service composes one discovery run.
//
// A run prepares the application directory, invalidates cached upstream
// data when it has expired, pins the upstream release tag, discovers the
// components of the host project and pushes them through the enrichment
// pipeline. The cache is written back once, after every item has settled.
package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vfdiscovery/pkg/appconfig"
	"github.com/matzehuels/vfdiscovery/pkg/cache"
	"github.com/matzehuels/vfdiscovery/pkg/dependents"
	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/integrations/github"
	"github.com/matzehuels/vfdiscovery/pkg/lockfile"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/upstream"
)

// TagResolver looks up the latest upstream release.
type TagResolver interface {
	LatestReleaseTag(ctx context.Context, owner, repo string) (string, error)
}

// Options configures one run.
type Options struct {
	RootDir string
	// Force recreates the application directory and refetches everything.
	Force       bool
	Profile     bool
	Selection   pipeline.Selection
	ProjectType dependents.ProjectType
	Ignore      []string

	// Owner and Repo locate the upstream repository. Empty values select
	// visual-framework/vf-core.
	Owner string
	Repo  string

	Hooks observability.Hooks
}

// Report is the outcome of a run.
type Report struct {
	RunID      string
	RootDir    string
	ReleaseTag string
	Stages     []string
	Profile    bool
	Started    time.Time
	Duration   time.Duration
	Results    []pipeline.Result
}

// Service runs discovery against a host project.
type Service struct {
	config  *appconfig.Service
	tags    TagResolver
	fetcher upstream.Fetcher
	logger  *log.Logger
	now     func() time.Time
}

// New creates a service.
func New(config *appconfig.Service, tags TagResolver, fetcher upstream.Fetcher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		config:  config,
		tags:    tags,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one discovery run.
//
// Errors from setup, tag resolution, the cache load or the component scan
// abort the run before any item is processed. Item failures are carried in
// the report. A run-level pipeline error is returned together with the
// partial report and leaves the cache file untouched.
func (s *Service) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Owner == "" {
		opts.Owner = github.DefaultOwner
	}
	if opts.Repo == "" {
		opts.Repo = github.DefaultRepo
	}
	root, err := projectRoot(opts.RootDir)
	if err != nil {
		return nil, err
	}
	opts.RootDir = root
	hooks := opts.Hooks.WithDefaults()

	report := &Report{
		RunID:   uuid.NewString(),
		RootDir: opts.RootDir,
		Profile: opts.Profile,
		Started: s.now(),
	}
	logger := s.logger.With("run", report.RunID)
	logger.Debug("starting run", "dir", opts.RootDir, "force", opts.Force)

	if err := s.prepare(ctx, opts, logger); err != nil {
		return nil, err
	}
	report.ReleaseTag = s.config.ReleaseTag()

	store, err := cache.Open(s.config.Paths().CacheFile)
	if err != nil {
		return nil, err
	}

	items, manifest, err := discovery.FindComponents(opts.RootDir)
	if err != nil {
		return nil, err
	}
	logger.Info("components found", "count", len(items), "tag", report.ReleaseTag)

	p := pipeline.New(pipeline.Options{
		Profile: opts.Profile,
		Hooks:   hooks.Pipeline,
		Logger:  logger,
	}, pipeline.DefaultStages(opts.Selection)...)
	report.Stages = p.Stages()

	rc := &pipeline.RunContext{
		RootDir:  opts.RootDir,
		Declared: manifest.Declared(),
		Locks:    &lockfile.Resolver{Cache: store, Force: opts.Force, Logger: logger},
		Source: upstream.NewRemote(s.fetcher, store, s.config.ReleaseTag, upstream.Options{
			Force:  opts.Force,
			Hooks:  hooks.Cache,
			Logger: logger,
		}),
		Logger: logger,
	}

	if p.Has(pipeline.StageDependents) {
		finder, err := dependents.NewFinder(dependents.DefaultContentCacheSize, logger)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create dependents finder")
		}
		pds, err := dependents.PotentialDependents(opts.RootDir, opts.ProjectType, opts.Ignore)
		if err != nil {
			return nil, err
		}
		logger.Debug("potential dependents", "count", len(pds))
		rc.Finder = finder
		rc.PotentialDependents = pds
	}

	results, runErr := p.Run(ctx, items, rc)
	report.Results = results
	report.Duration = s.now().Sub(report.Started)
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return report, runErr
	}

	if err := store.Flush(); err != nil {
		return report, errors.Wrap(errors.ErrCodeApp, err, "write cache %s", store.Path())
	}
	logger.Debug("run complete", "summary", pipeline.Summary(results), "duration", report.Duration)
	return report, nil
}

// prepare sets up the application directory, invalidates expired cache
// data and makes sure a release tag is pinned.
func (s *Service) prepare(ctx context.Context, opts Options, logger *log.Logger) error {
	if err := s.config.Setup(opts.Force); err != nil {
		return err
	}
	if err := s.config.Load(); err != nil {
		return err
	}

	now := s.now()
	if opts.Force || s.config.ShouldInvalidate(now) {
		logger.Info("invalidating cached components")
		if err := s.config.DeleteCachedComponents(); err != nil {
			return err
		}
		if err := s.refreshTag(ctx, opts, logger); err != nil {
			return err
		}
		if err := s.config.MarkInvalidated(now); err != nil {
			return err
		}
	}

	if s.config.ReleaseTag() == "" {
		return s.refreshTag(ctx, opts, logger)
	}
	return nil
}

func (s *Service) refreshTag(ctx context.Context, opts Options, logger *log.Logger) error {
	tag, err := s.tags.LatestReleaseTag(ctx, opts.Owner, opts.Repo)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "resolve latest release of %s/%s", opts.Owner, opts.Repo)
	}
	logger.Debug("pinned release tag", "tag", tag)
	return s.config.SetReleaseTag(tag)
}

// projectRoot returns dir as an absolute path with symlinks resolved. Lock
// objects are cached under this path. An empty dir is the working directory.
func projectRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeApp, err, "resolve project directory %s", dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
