package cli

import (
	"path/filepath"

	"github.com/charmbracelet/log"
	"go.uber.org/dig"

	"github.com/matzehuels/vfdiscovery/pkg/appconfig"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/integrations"
	"github.com/matzehuels/vfdiscovery/pkg/integrations/github"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
	"github.com/matzehuels/vfdiscovery/pkg/service"
	"github.com/matzehuels/vfdiscovery/pkg/settings"
	"github.com/matzehuels/vfdiscovery/pkg/upstream"
)

// gitMirrorDir is the checkout directory of the git source, under the app dir.
const gitMirrorDir = "mirror"

// sourceConfig selects the upstream backend of a run.
type sourceConfig struct {
	Source string
	Owner  string
	Repo   string
	Token  string
}

// newContainer registers every provider of a run.
func newContainer(logger *log.Logger, src sourceConfig) (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		func() *log.Logger { return logger },
		func() sourceConfig { return src },
		appconfig.DefaultPaths,
		appconfig.NewService,
		func(l *log.Logger) observability.HTTPHooks { return observability.NewLogHTTPHooks(l) },
		func(c sourceConfig, hooks observability.HTTPHooks) *github.Client {
			return github.NewClient(c.Token, hooks)
		},
		func(gh *github.Client) service.TagResolver { return gh },
		newFetcher,
		service.New,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "register provider")
		}
	}
	return container, nil
}

// newFetcher builds the upstream fetcher named by the source setting.
func newFetcher(c sourceConfig, paths appconfig.Paths, hooks observability.HTTPHooks, logger *log.Logger) (upstream.Fetcher, error) {
	switch c.Source {
	case settings.SourceGit:
		url := "https://github.com/" + c.Owner + "/" + c.Repo + ".git"
		return upstream.NewGitFetcher(url, filepath.Join(paths.AppDir, gitMirrorDir), logger), nil
	case settings.SourceHTTP, "":
		client := integrations.NewClient(nil, hooks)
		return upstream.NewHTTPFetcher(client, github.RawBaseURL(c.Owner, c.Repo)), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown source %q", c.Source)
	}
}

// resolve builds a T from the container.
func resolve[T any](container *dig.Container) (T, error) {
	var out T
	if err := container.Invoke(func(v T) { out = v }); err != nil {
		cause := dig.RootCause(err)
		if errors.GetCode(cause) != "" {
			return out, cause
		}
		return out, errors.Wrap(errors.ErrCodeInternal, cause, "build %T", out)
	}
	return out, nil
}
