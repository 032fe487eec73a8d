package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vfdiscovery/pkg/buildinfo"
	"github.com/matzehuels/vfdiscovery/pkg/dependents"
	"github.com/matzehuels/vfdiscovery/pkg/observability"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/report"
	"github.com/matzehuels/vfdiscovery/pkg/service"
	"github.com/matzehuels/vfdiscovery/pkg/settings"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	force        bool
	profile      bool
	onlyOutdated bool
	noProgress   bool
	reporters    []string
	disable      []string
	ignore       []string
	projectType  string
	source       string
	upstream     string
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Run service discovery on a project",
		Long: `Run service discovery on the project in dir (default: the current directory).

Every @visual-framework dependency of package.json is resolved to its installed
version and compared with the latest vf-core release. Project defaults can be
kept in .vfdiscovery.toml; flags override them.`,
		Example: `  vfdiscovery run
  vfdiscovery run ./site --only-outdated
  vfdiscovery run -r cli -r html --ignore 'dist/**'
  vfdiscovery run --disable dependents --profile`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return c.runDiscovery(cmd.Context(), dir, opts, cmd.Flags().Changed)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.force, "force", "f", false, "bypass and rebuild the cache")
	f.BoolVarP(&opts.profile, "profile", "p", false, "report stage timings per component")
	f.BoolVarP(&opts.onlyOutdated, "only-outdated", "o", false, "only check which components are outdated")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable the live progress view")
	f.StringSliceVarP(&opts.reporters, "reporters", "r", nil, "reporters to use: "+strings.Join(report.Names(), ", "))
	f.StringSliceVar(&opts.disable, "disable", nil, "stages to skip: "+strings.Join(pipeline.StageNames, ", "))
	f.StringArrayVar(&opts.ignore, "ignore", nil, "glob of files excluded from the dependents search (repeatable)")
	f.StringVar(&opts.projectType, "project-type", "", "project type: auto, html, angular, react")
	f.StringVar(&opts.source, "source", "", "upstream source: "+strings.Join(settings.Sources, ", "))
	f.StringVar(&opts.upstream, "upstream", "", "upstream repository as owner/repo")

	return cmd
}

// applyFlags overrides s with every flag set on the command line.
func applyFlags(s settings.Settings, opts runOptions, changed func(string) bool) settings.Settings {
	if changed("profile") {
		s.Profile = opts.profile
	}
	if changed("only-outdated") {
		s.OnlyOutdated = opts.onlyOutdated
	}
	if changed("reporters") {
		s.Reporters = opts.reporters
	}
	if changed("disable") {
		s.Disable = opts.disable
	}
	if changed("ignore") {
		s.Ignore = append(s.Ignore, opts.ignore...)
	}
	if changed("project-type") {
		s.ProjectType = opts.projectType
	}
	if changed("source") {
		s.Source = opts.source
	}
	if changed("upstream") {
		s.Upstream = opts.upstream
	}
	return s
}

func (c *CLI) runDiscovery(ctx context.Context, dir string, opts runOptions, changed func(string) bool) error {
	logger := loggerFromContext(ctx)

	if err := settings.LoadEnv(dir); err != nil {
		return err
	}
	s, err := settings.Load(dir)
	if err != nil {
		return err
	}
	s = applyFlags(s, opts, changed)
	if err := s.Validate(); err != nil {
		return err
	}

	pt, _ := dependents.ParseProjectType(s.ProjectType)
	owner, repo, _ := s.Repo()

	container, err := newContainer(logger, sourceConfig{
		Source: s.Source,
		Owner:  owner,
		Repo:   repo,
		Token:  settings.Token(),
	})
	if err != nil {
		return err
	}
	svc, err := resolve[*service.Service](container)
	if err != nil {
		return err
	}

	printHeading(c.stderr, buildinfo.Version)
	prog := newProgress(logger)
	stats := &observability.CacheStats{}

	rep, err := c.execute(ctx, svc, service.Options{
		RootDir: dir,
		Force:   opts.force,
		Profile: s.Profile,
		Selection: pipeline.Selection{
			OnlyOutdated: s.OnlyOutdated,
			Disabled:     s.Disable,
		},
		ProjectType: pt,
		Ignore:      s.Ignore,
		Owner:       owner,
		Repo:        repo,
		Hooks:       observability.Hooks{Cache: stats},
	}, c.interactive(opts))
	if err != nil {
		return err
	}
	logger.Debug("cache usage", "hits", stats.Hits(), "misses", stats.Misses(), "writes", stats.Sets())
	prog.done(fmt.Sprintf("Discovered %s", pipeline.Summary(rep.Results)))

	files, err := report.Run(s.Reporters, rep, report.Options{
		OnlyOutdated: s.OnlyOutdated,
		Out:          c.stdout,
	})
	for _, path := range files {
		printFile(c.stdout, path)
	}
	if err != nil {
		return err
	}

	if failed := len(pipeline.Failures(rep.Results)); failed > 0 {
		printWarning(c.stdout, "%d component(s) could not be fully processed", failed)
		printNextStep(c.stdout, "See details with", appName+" run -v")
	}
	return nil
}

// interactive reports whether the live progress view can be shown.
func (c *CLI) interactive(opts runOptions) bool {
	if opts.noProgress {
		return false
	}
	f, ok := c.stderr.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// execute runs the service, rendering live progress when interactive.
func (c *CLI) execute(ctx context.Context, svc *service.Service, opts service.Options, interactive bool) (*service.Report, error) {
	if !interactive {
		return svc.Run(ctx, opts)
	}

	p := newProgressProgram(ctx, c.stderr)
	opts.Hooks.Pipeline = progressHooks{p: p}

	release := c.holdLogs()
	defer release()

	type outcome struct {
		rep *service.Report
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := svc.Run(ctx, opts)
		done <- outcome{rep, err}
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		c.Logger.Debug("progress view stopped", "error", err)
	}
	out := <-done
	return out.rep, out.err
}
