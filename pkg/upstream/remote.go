// Package upstream retrieves component artifacts from the vf-core
// repository: the package descriptor, the component config, and the
// changelog.
//
// Every lookup goes through the run cache first. With Force set the cache
// is bypassed and overwritten; otherwise a cached value is returned as is
// and a miss populates the cache. A failed fetch never touches the cache.
//
// All fetches are pinned to the release tag recorded in the app config; an
// unset tag is reported as MISSING_CONFIGURATION.
package upstream

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vfdiscovery/pkg/cache"
	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
)

// Resource names as laid out in the vf-core tree.
const (
	PackageJSON  = "package.json"
	ChangelogMD  = "CHANGELOG.md"
	tagConfigKey = "upstreamReleaseTag"
)

// Cache keys reported to the cache hooks.
const (
	keyPackageDescriptor = "packageDescriptor"
	keyConfig            = "config"
	keyChangelog         = "changelog"
)

// ComponentCache is the part of the run cache the remote source uses.
type ComponentCache interface {
	Component(name string) (cache.Component, bool)
	UpdateComponent(name string, fn func(*cache.Component))
}

// Options configures a [Remote].
type Options struct {
	// Force bypasses cached values and overwrites them with fresh fetches.
	Force  bool
	Hooks  observability.CacheHooks
	Logger *log.Logger
}

// Remote is the component source used by the pipeline stages.
type Remote struct {
	fetcher Fetcher
	cache   ComponentCache
	tag     func() string
	force   bool
	hooks   observability.CacheHooks
	logger  *log.Logger
}

// NewRemote creates a remote source. tag is consulted on every fetch so
// that a tag resolved after construction is picked up.
func NewRemote(fetcher Fetcher, c ComponentCache, tag func() string, opts Options) *Remote {
	if opts.Hooks == nil {
		opts.Hooks = observability.NoopCacheHooks{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Remote{
		fetcher: fetcher,
		cache:   c,
		tag:     tag,
		force:   opts.Force,
		hooks:   opts.Hooks,
		logger:  opts.Logger,
	}
}

// PackageDescriptor returns the upstream package.json of the component.
// name is the component name without the scope prefix.
func (r *Remote) PackageDescriptor(ctx context.Context, name string) (*discovery.PackageDescriptor, error) {
	return cached(ctx, r, name, keyPackageDescriptor,
		func(c cache.Component) (*discovery.PackageDescriptor, bool) {
			return c.PackageDescriptor, c.PackageDescriptor != nil
		},
		func(c *cache.Component, v *discovery.PackageDescriptor) { c.PackageDescriptor = v },
		func(ctx context.Context, tag string) (*discovery.PackageDescriptor, error) {
			data, err := r.fetcher.Fetch(ctx, tag, name, PackageJSON)
			if err != nil {
				return nil, err
			}
			var pd discovery.PackageDescriptor
			if err := json.Unmarshal(data, &pd); err != nil {
				return nil, errors.Wrap(errors.ErrCodeApp, err, "%s - invalid %s", name, PackageJSON)
			}
			return &pd, nil
		})
}

// Config returns the component config, read from <name>.config.yml or, when
// that is absent, from <name>.config.js.
func (r *Remote) Config(ctx context.Context, name string) (*discovery.ComponentConfig, error) {
	return cached(ctx, r, name, keyConfig,
		func(c cache.Component) (*discovery.ComponentConfig, bool) {
			return c.Config, c.Config != nil
		},
		func(c *cache.Component, v *discovery.ComponentConfig) { c.Config = v },
		func(ctx context.Context, tag string) (*discovery.ComponentConfig, error) {
			yml := name + ".config.yml"
			data, err := r.fetcher.Fetch(ctx, tag, name, yml)
			if err == nil {
				return parseYAMLConfig(data)
			}
			if !errors.Is(err, errors.ErrCodeFetchFailure) {
				return nil, err
			}
			r.logger.Debug("yaml configuration not found", "component", name)

			js := name + ".config.js"
			data, err = r.fetcher.Fetch(ctx, tag, name, js)
			if err != nil {
				if errors.Is(err, errors.ErrCodeFetchFailure) {
					return nil, fetchFailure(name, yml+" or "+js, err)
				}
				return nil, err
			}
			return parseJSConfig(data)
		})
}

// Changelog returns the raw CHANGELOG.md of the component.
func (r *Remote) Changelog(ctx context.Context, name string) (string, error) {
	return cached(ctx, r, name, keyChangelog,
		func(c cache.Component) (string, bool) {
			if c.Changelog == nil {
				return "", false
			}
			return *c.Changelog, true
		},
		func(c *cache.Component, v string) { c.Changelog = &v },
		func(ctx context.Context, tag string) (string, error) {
			data, err := r.fetcher.Fetch(ctx, tag, name, ChangelogMD)
			return string(data), err
		})
}

// cached implements the lookup policy shared by every artifact: unless
// forced, a cached value wins; otherwise fetch at the current tag and store
// the result on success.
func cached[T any](
	ctx context.Context,
	r *Remote,
	name, key string,
	get func(cache.Component) (T, bool),
	set func(*cache.Component, T),
	fetch func(ctx context.Context, tag string) (T, error),
) (T, error) {
	var zero T

	if !r.force {
		if c, ok := r.cache.Component(name); ok {
			if v, ok := get(c); ok {
				r.hooks.OnCacheHit(ctx, key)
				r.logger.Debug("cache hit", "component", name, "artifact", key)
				return v, nil
			}
		}
		r.hooks.OnCacheMiss(ctx, key)
	}

	tag := r.tag()
	if tag == "" {
		return zero, errors.MissingConfiguration(tagConfigKey)
	}

	r.logger.Debug("fetching from upstream", "component", name, "artifact", key, "tag", tag)
	v, err := fetch(ctx, tag)
	if err != nil {
		return zero, err
	}

	r.cache.UpdateComponent(name, func(c *cache.Component) { set(c, v) })
	r.hooks.OnCacheSet(ctx, key, 1)
	return v, nil
}
