package appconfig

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vfdiscovery/pkg/cache"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// Service owns the application directory and the in-memory configuration.
// It is safe for concurrent use.
type Service struct {
	paths  Paths
	logger *log.Logger

	mu     sync.RWMutex
	config AppConfig
}

// NewService creates a service for the given layout. Call [Service.Setup]
// and [Service.Load] before reading the configuration.
func NewService(paths Paths, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{paths: paths, logger: logger, config: Default()}
}

// Paths returns the application directory layout.
func (s *Service) Paths() Paths { return s.paths }

// Setup makes sure the application directory, the config file and the cache
// file exist, creating defaults for the missing ones. It is idempotent.
// With force set the whole application directory is removed first.
func (s *Service) Setup(force bool) error {
	if force {
		s.logger.Debug("removing application directory", "dir", s.paths.AppDir)
		if err := os.RemoveAll(s.paths.AppDir); err != nil {
			return errors.Wrap(errors.ErrCodeApp, err, "remove %s", s.paths.AppDir)
		}
	}

	if err := os.MkdirAll(s.paths.AppDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "create %s", s.paths.AppDir)
	}

	if !exists(s.paths.ConfigFile) {
		s.logger.Debug("creating default configuration", "file", s.paths.ConfigFile)
		if err := cache.WriteJSON(s.paths.ConfigFile, Default()); err != nil {
			return errors.Wrap(errors.ErrCodeApp, err, "write %s", s.paths.ConfigFile)
		}
	}

	if !exists(s.paths.CacheFile) {
		s.logger.Debug("creating cache", "file", s.paths.CacheFile)
		if err := cache.WriteEmpty(s.paths.CacheFile); err != nil {
			return errors.Wrap(errors.ErrCodeApp, err, "write %s", s.paths.CacheFile)
		}
	}
	return nil
}

// Load reads the configuration file. A missing file is reported as
// [errors.ErrCodeFileNotFound]; run [Service.Setup] first.
func (s *Service) Load() error {
	raw, err := os.ReadFile(s.paths.ConfigFile)
	if os.IsNotExist(err) {
		return errors.FileNotFound(s.paths.ConfigFile)
	}
	if err != nil {
		return err
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "parse %s", s.paths.ConfigFile)
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// ReleaseTag returns the resolved upstream release tag or "".
func (s *Service) ReleaseTag() string {
	return s.Config().ReleaseTag()
}

// Reset restores and persists the default configuration.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = Default()
	return s.persistLocked()
}

// Get returns the string form of a configuration value.
func (s *Service) Get(key Key) (string, error) {
	cfg := s.Config()
	switch key {
	case KeyCacheExpiry:
		return cfg.CacheExpiry, nil
	case KeyLastInvalidation:
		if cfg.LastInvalidation == nil {
			return "null", nil
		}
		return cfg.LastInvalidation.Format(time.RFC3339), nil
	case KeyUpstreamReleaseTag:
		if cfg.UpstreamReleaseTag == nil {
			return "null", nil
		}
		return *cfg.UpstreamReleaseTag, nil
	}
	return "", invalidKey(key)
}

// Update sets one configuration value from its string form. With persist
// set, the whole configuration is written to disk before Update returns.
//
// lastInvalidation takes an RFC 3339 timestamp; lastInvalidation and
// upstreamReleaseTag accept "null" to clear the value.
func (s *Service) Update(key Key, value string, persist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.config
	switch key {
	case KeyCacheExpiry:
		if !ValidRelative(value) {
			return errors.New(errors.ErrCodeInvalidInput,
				"invalid cache expiry %q: expected tokens such as \"12h\" or \"1D 6h\"", value)
		}
		next.CacheExpiry = value
	case KeyLastInvalidation:
		if value == "null" || value == "" {
			next.LastInvalidation = nil
			break
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid timestamp %q", value)
		}
		next.LastInvalidation = &t
	case KeyUpstreamReleaseTag:
		if value == "null" || value == "" {
			next.UpstreamReleaseTag = nil
			break
		}
		if err := errors.ValidateRef(value); err != nil {
			return err
		}
		next.UpstreamReleaseTag = &value
	default:
		return invalidKey(key)
	}

	s.config = next
	if !persist {
		return nil
	}
	return s.persistLocked()
}

// SetReleaseTag records the upstream release tag and persists it.
func (s *Service) SetReleaseTag(tag string) error {
	return s.Update(KeyUpstreamReleaseTag, tag, true)
}

// MarkInvalidated records t as the last invalidation and persists it.
func (s *Service) MarkInvalidated(t time.Time) error {
	return s.Update(KeyLastInvalidation, t.UTC().Format(time.RFC3339), true)
}

// ShouldInvalidate reports whether cached data must be discarded: always
// when no invalidation was recorded, otherwise once now is past the last
// invalidation plus the configured expiry.
func (s *Service) ShouldInvalidate(now time.Time) bool {
	cfg := s.Config()
	if cfg.LastInvalidation == nil {
		return true
	}
	return now.After(AddRelative(*cfg.LastInvalidation, cfg.CacheExpiry))
}

// DeleteCachedComponents removes the cache directory and recreates an
// empty cache file.
func (s *Service) DeleteCachedComponents() error {
	s.logger.Debug("deleting cached components", "dir", s.paths.CacheDir)
	if err := os.RemoveAll(s.paths.CacheDir); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "remove %s", s.paths.CacheDir)
	}
	if err := cache.WriteEmpty(s.paths.CacheFile); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "write %s", s.paths.CacheFile)
	}
	return nil
}

func (s *Service) persistLocked() error {
	if err := cache.WriteJSON(s.paths.ConfigFile, s.config); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "write %s", s.paths.ConfigFile)
	}
	return nil
}

func invalidKey(key Key) error {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = string(k)
	}
	return errors.New(errors.ErrCodeInvalidInput,
		"the key '%s' is not valid, choose one of: %s", key, strings.Join(names, ", "))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
