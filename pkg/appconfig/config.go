// Package appconfig manages the application directory and the small
// persisted configuration record that drives cache invalidation.
//
// Layout:
//
//	~/.vf-core-service-discovery/
//	├── config.json        {"cacheExpiry": "12h", "lastInvalidation": null, "upstreamReleaseTag": null}
//	└── cache/cache.json   see package cache
//
// The directory can be relocated with the VF_DISCOVERY_HOME environment
// variable.
package appconfig

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName     = ".vf-core-service-discovery"
	configFileName = "config.json"
	cacheDirName   = "cache"
	cacheFileName  = "cache.json"

	// HomeEnv overrides the application directory.
	HomeEnv = "VF_DISCOVERY_HOME"

	// DefaultCacheExpiry is the expiry applied to a fresh configuration.
	DefaultCacheExpiry = "12h"
)

// AppConfig is the persisted configuration record.
type AppConfig struct {
	CacheExpiry        string     `json:"cacheExpiry"`
	LastInvalidation   *time.Time `json:"lastInvalidation"`
	UpstreamReleaseTag *string    `json:"upstreamReleaseTag"`
}

// Default returns the configuration written on first run.
func Default() AppConfig {
	return AppConfig{CacheExpiry: DefaultCacheExpiry}
}

// ReleaseTag returns the resolved upstream release tag or "".
func (c AppConfig) ReleaseTag() string {
	if c.UpstreamReleaseTag == nil {
		return ""
	}
	return *c.UpstreamReleaseTag
}

// Key names a configuration field.
type Key string

// Configuration keys, as written in config.json.
const (
	KeyCacheExpiry        Key = "cacheExpiry"
	KeyLastInvalidation   Key = "lastInvalidation"
	KeyUpstreamReleaseTag Key = "upstreamReleaseTag"
)

// Keys lists every valid key.
var Keys = []Key{KeyCacheExpiry, KeyLastInvalidation, KeyUpstreamReleaseTag}

// Paths locates the files of the application directory.
type Paths struct {
	AppDir     string
	ConfigFile string
	CacheDir   string
	CacheFile  string
}

// NewPaths returns the layout rooted at appDir.
func NewPaths(appDir string) Paths {
	cacheDir := filepath.Join(appDir, cacheDirName)
	return Paths{
		AppDir:     appDir,
		ConfigFile: filepath.Join(appDir, configFileName),
		CacheDir:   cacheDir,
		CacheFile:  filepath.Join(cacheDir, cacheFileName),
	}
}

// DefaultPaths returns the layout under VF_DISCOVERY_HOME or the user's home.
func DefaultPaths() (Paths, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return NewPaths(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}
	return NewPaths(filepath.Join(home, appDirName)), nil
}
