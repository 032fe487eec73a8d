// Package report renders the outcome of a discovery run.
//
// Three reporters are registered:
//
//   - cli: a table per component on the terminal, or a single line per
//     outdated component when only outdated components are requested
//   - json: the full results written to vf-core-service-discovery-report.json
//   - html: a static page written to vf-core-service-discovery-report.html
//
// Reporters render the items that completed and list the failed ones
// separately; a failed item is never rendered as if it had been enriched.
package report

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/service"
)

// Reporter names.
const (
	CLI  = "cli"
	JSON = "json"
	HTML = "html"
)

// File names of the file reporters.
const (
	JSONFile = "vf-core-service-discovery-report.json"
	HTMLFile = "vf-core-service-discovery-report.html"
)

// Options configures the reporters of a run.
type Options struct {
	// OnlyOutdated limits the output to components behind upstream.
	OnlyOutdated bool
	// Dir receives the report files. Defaults to the working directory.
	Dir string
	// Out receives terminal output. Defaults to stdout.
	Out io.Writer
}

// Reporter renders a run. It returns the path of the written file, or ""
// when the output went to Options.Out.
type Reporter interface {
	Report(r *service.Report, opts Options) (string, error)
}

// ReporterFunc adapts a function to [Reporter].
type ReporterFunc func(r *service.Report, opts Options) (string, error)

// Report calls f.
func (f ReporterFunc) Report(r *service.Report, opts Options) (string, error) { return f(r, opts) }

var registry = map[string]Reporter{
	CLI:  ReporterFunc(renderCLI),
	JSON: ReporterFunc(writeJSON),
	HTML: ReporterFunc(writeHTML),
}

// Names returns the registered reporter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Get returns the named reporter.
func Get(name string) (Reporter, error) {
	r, ok := registry[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"unknown reporter %q, choose from: %s", name, strings.Join(Names(), ", "))
	}
	return r, nil
}

// Validate reports the first unknown reporter name.
func Validate(names []string) error {
	for _, n := range names {
		if _, err := Get(n); err != nil {
			return err
		}
	}
	return nil
}

// Run renders r with every named reporter and returns the written files.
func Run(names []string, r *service.Report, opts Options) ([]string, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	var files []string
	for _, n := range names {
		rep, err := Get(n)
		if err != nil {
			return files, err
		}
		path, err := rep.Report(r, opts)
		if err != nil {
			return files, err
		}
		if path != "" {
			files = append(files, path)
		}
	}
	return files, nil
}

func outputPath(opts Options, name string) string {
	return filepath.Join(opts.Dir, name)
}
