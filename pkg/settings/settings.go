// Package settings loads per-project defaults for the run command.
//
// A host project may carry a .vfdiscovery.toml next to its package.json:
//
//	project_type = "html"
//	ignore       = ["dist/**", "**/vendor/**"]
//	reporters    = ["cli", "html"]
//	disable      = ["dependents"]
//	source       = "git"
//	profile      = false
//	upstream     = "visual-framework/vf-core"
//
// Command-line flags override every value. A .env file in the same
// directory is loaded into the environment without overriding variables
// that are already set.
package settings

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/vfdiscovery/pkg/dependents"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/integrations/github"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/report"
)

const (
	// FileName is the project settings file.
	FileName = ".vfdiscovery.toml"
	// EnvFile is loaded into the environment before a run.
	EnvFile = ".env"
	// TokenEnv authenticates GitHub API requests.
	TokenEnv = "GITHUB_TOKEN"
)

// Upstream sources.
const (
	SourceHTTP = "http"
	SourceGit  = "git"
)

// Sources lists the valid source values.
var Sources = []string{SourceHTTP, SourceGit}

// Settings holds the project defaults of the run command.
type Settings struct {
	ProjectType  string   `toml:"project_type"`
	Ignore       []string `toml:"ignore"`
	Reporters    []string `toml:"reporters"`
	Disable      []string `toml:"disable"`
	Source       string   `toml:"source"`
	Profile      bool     `toml:"profile"`
	OnlyOutdated bool     `toml:"only_outdated"`
	Upstream     string   `toml:"upstream"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		ProjectType: string(dependents.Auto),
		Reporters:   []string{report.CLI},
		Source:      SourceHTTP,
		Upstream:    github.DefaultOwner + "/" + github.DefaultRepo,
	}
}

// Load reads rootDir/.vfdiscovery.toml over the defaults. A missing file
// yields the defaults; unknown keys are rejected.
func Load(rootDir string) (Settings, error) {
	s := Default()
	path := filepath.Join(rootDir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return s, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return s, errors.New(errors.ErrCodeInvalidInput, "%s: unknown settings: %s", path, strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return s, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid settings in %s", path)
	}
	return s, nil
}

// Validate checks every value against the accepted choices.
func (s Settings) Validate() error {
	if _, err := dependents.ParseProjectType(s.ProjectType); err != nil {
		return err
	}
	if err := report.Validate(s.Reporters); err != nil {
		return err
	}
	if err := pipeline.ValidateStageNames(s.Disable); err != nil {
		return err
	}
	if !slices.Contains(Sources, s.Source) {
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown source %q, choose from: %s", s.Source, strings.Join(Sources, ", "))
	}
	if _, _, err := github.ParseRepoRef(s.Upstream); err != nil {
		return err
	}
	return nil
}

// Repo splits Upstream into owner and repository.
func (s Settings) Repo() (owner, repo string, err error) {
	return github.ParseRepoRef(s.Upstream)
}

// LoadEnv loads rootDir/.env if it exists.
func LoadEnv(rootDir string) error {
	path := filepath.Join(rootDir, EnvFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "load %s", path)
	}
	return nil
}

// Token returns the GitHub token from the environment.
func Token() string {
	return strings.TrimSpace(os.Getenv(TokenEnv))
}
