package report

import (
	_ "embed"
	"html/template"
	"io"
	"os"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/service"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Parse(htmlSource))

type htmlPage struct {
	Report   *service.Report
	Items    []htmlItem
	Failures []htmlFail
}

type htmlItem struct {
	discovery.Item
	Outdated bool
	NpmURL   string
	// DependentsComputed separates "no dependents" from a skipped stage.
	DependentsComputed bool
}

type htmlFail struct {
	Name    string
	Stage   string
	Message string
}

// WriteHTML renders r as a standalone HTML page.
func WriteHTML(r *service.Report, onlyOutdated bool, w io.Writer) error {
	page := htmlPage{Report: r}
	for _, item := range pipeline.Succeeded(r.Results) {
		if onlyOutdated && !item.Outdated() {
			continue
		}
		page.Items = append(page.Items, htmlItem{
			Item:     item,
			Outdated: item.Outdated(),
			NpmURL:   "https://www.npmjs.com/package/" + item.Name,

			DependentsComputed: item.Dependents != nil,
		})
	}
	for _, f := range pipeline.Failures(r.Results) {
		page.Failures = append(page.Failures, htmlFail{
			Name:    f.Item.NameWithoutPrefix,
			Stage:   f.Stage,
			Message: errors.UserMessage(f.Err),
		})
	}

	if err := htmlTemplate.Execute(w, page); err != nil {
		return errors.Wrap(errors.ErrCodeApp, err, "render html report")
	}
	return nil
}

func writeHTML(r *service.Report, opts Options) (string, error) {
	path := outputPath(opts, HTMLFile)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeApp, err, "create %s", path)
	}
	defer f.Close()

	if err := WriteHTML(r, opts.OnlyOutdated, f); err != nil {
		return "", err
	}
	return path, f.Close()
}
