package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
	"github.com/matzehuels/vfdiscovery/pkg/errors"
	"github.com/matzehuels/vfdiscovery/pkg/pipeline"
	"github.com/matzehuels/vfdiscovery/pkg/service"
)

// =============================================================================
// Styles
// =============================================================================

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorRed   = lipgloss.Color("167")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")

	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleKey    = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleOld    = lipgloss.NewStyle().Foreground(colorRed)
	styleNew    = lipgloss.NewStyle().Foreground(colorGreen)
	styleBold   = lipgloss.NewStyle().Bold(true)
	styleFailed = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconError = "✗"
	iconArrow = "→"
)

// =============================================================================
// Renderer
// =============================================================================

func renderCLI(r *service.Report, opts Options) (string, error) {
	var b strings.Builder
	b.WriteString("\n")

	items := pipeline.Succeeded(r.Results)
	if opts.OnlyOutdated {
		writeOutdated(&b, items)
	} else {
		for _, res := range r.Results {
			if !res.Failed() {
				writeItem(&b, res)
			}
		}
	}
	writeFailures(&b, pipeline.Failures(r.Results))
	b.WriteString(styleDim.Render(fmt.Sprintf("%s · tag %s · %s",
		pipeline.Summary(r.Results), r.ReleaseTag, r.Duration.Round(time.Millisecond))))
	b.WriteString("\n")

	_, err := io.WriteString(opts.Out, b.String())
	return "", err
}

func title(item discovery.Item) string {
	if item.Config != nil && item.Config.Title != "" {
		return fmt.Sprintf("%s (%s)", item.NameWithoutPrefix, item.Config.Title)
	}
	return item.NameWithoutPrefix
}

// writeItem renders one component as a two-column table.
func writeItem(b *strings.Builder, res pipeline.Result) {
	item := res.Item
	installed, latest := item.InstalledVersion(), item.LatestVersion()
	if item.Outdated() {
		installed, latest = styleOld.Render(installed), styleNew.Render(latest)
	}

	rows := [][]string{
		{"Used version", installed},
		{"Latest version", latest},
	}
	if item.Config != nil {
		rows = append(rows, []string{"Status", item.Config.Status})
	}
	if len(item.Changelog) > 0 {
		var lines []string
		for _, e := range item.Changelog {
			lines = append(lines, styleBold.Render(e.Version))
			lines = append(lines, e.Changes...)
		}
		rows = append(rows, []string{"Changelog", strings.Join(lines, "\n")})
	}
	if item.Dependents != nil {
		deps := styleOld.Render("None")
		if len(item.Dependents) > 0 {
			deps = strings.Join(item.Dependents, "\n")
		}
		rows = append(rows, []string{"Dependents", deps})
	}
	if len(res.Profile) > 0 {
		rows = append(rows, []string{"Profiling", formatProfile(res.Profile)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 {
				return base.Inherit(styleKey)
			}
			return base
		})

	b.WriteString(styleTitle.Render(title(item)))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n\n")
}

// formatProfile lists stage durations in pipeline order.
func formatProfile(p map[string]time.Duration) string {
	var lines []string
	for _, name := range pipeline.StageNames {
		if d, ok := p[name]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", name, d.Round(time.Microsecond)))
		}
	}
	return strings.Join(lines, "\n")
}

// writeOutdated renders one line per outdated component.
func writeOutdated(b *strings.Builder, items []discovery.Item) {
	n := 0
	for _, item := range items {
		if !item.Outdated() {
			continue
		}
		n++
		fmt.Fprintf(b, "%s (%s %s %s)\n", styleBold.Render(title(item)),
			styleOld.Render(item.InstalledVersion()), iconArrow, styleNew.Render(item.LatestVersion()))
	}
	if n == 0 {
		b.WriteString(styleNew.Render("All components are up to date"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeFailures(b *strings.Builder, failures []pipeline.Result) {
	if len(failures) == 0 {
		return
	}
	b.WriteString(styleFailed.Render(fmt.Sprintf("%d component(s) failed", len(failures))))
	b.WriteString("\n")
	for _, f := range failures {
		fmt.Fprintf(b, "  %s %s %s\n", styleFailed.Render(iconError), f.Item.NameWithoutPrefix,
			styleDim.Render(fmt.Sprintf("[%s] %s", f.Stage, errors.UserMessage(f.Err))))
	}
	b.WriteString("\n")
}
