package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/vfdiscovery/pkg/discovery"
)

// =============================================================================
// Messages
// =============================================================================

type (
	runStartMsg  struct{ total int }
	itemStartMsg struct{ name string }
	itemDoneMsg  struct {
		name   string
		failed bool
	}
	runDoneMsg struct{}
	tickMsg    time.Time
)

// =============================================================================
// ProgressModel - Live pipeline progress
// =============================================================================

var (
	progressBarStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	progressRestStyle = lipgloss.NewStyle().Foreground(colorDim)
)

const progressBarWidth = 24

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressModel is the bubbletea model that renders pipeline progress.
type ProgressModel struct {
	Total    int
	Done     int
	Failed   int
	InFlight []string
	Finished bool
	frame    int
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runStartMsg:
		m.Total = msg.total
	case itemStartMsg:
		m.InFlight = append(m.InFlight, msg.name)
	case itemDoneMsg:
		m.Done++
		if msg.failed {
			m.Failed++
		}
		if i := slices.Index(m.InFlight, msg.name); i >= 0 {
			m.InFlight = slices.Delete(slices.Clone(m.InFlight), i, i+1)
		}
	case runDoneMsg:
		m.Finished = true
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.Finished {
		return ""
	}
	if m.Total == 0 {
		return styleSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + " " +
			StyleDim.Render("Preparing run...") + "\n"
	}

	filled := progressBarWidth * m.Done / m.Total
	bar := progressBarStyle.Render(strings.Repeat("█", filled)) +
		progressRestStyle.Render(strings.Repeat("░", progressBarWidth-filled))

	var b strings.Builder
	b.WriteString(styleSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]))
	b.WriteString(" Discovering components ")
	b.WriteString(bar)
	b.WriteString(" " + StyleNumber.Render(fmt.Sprintf("%d/%d", m.Done, m.Total)))
	if m.Failed > 0 {
		b.WriteString(" " + StyleWarning.Render(fmt.Sprintf("(%d failed)", m.Failed)))
	}
	if len(m.InFlight) > 0 {
		b.WriteString("\n  " + StyleDim.Render(strings.Join(m.InFlight, ", ")))
	}
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Hooks
// =============================================================================

// sender is the part of *tea.Program the hooks use.
type sender interface {
	Send(msg tea.Msg)
}

// progressHooks forwards pipeline events to a running program.
type progressHooks struct {
	p sender
}

func (h progressHooks) OnRunStart(_ context.Context, total int) {
	h.p.Send(runStartMsg{total: total})
}

func (h progressHooks) OnItemStart(_ context.Context, item string) {
	h.p.Send(itemStartMsg{name: discovery.WithoutPrefix(item)})
}

func (h progressHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {}

func (h progressHooks) OnItemComplete(_ context.Context, item string, _ time.Duration, err error) {
	h.p.Send(itemDoneMsg{name: discovery.WithoutPrefix(item), failed: err != nil})
}

func (h progressHooks) OnRunComplete(context.Context, time.Duration, error) {
	h.p.Send(runDoneMsg{})
}

// newProgressProgram creates a program rendering to w. Keyboard input is
// not read, so an interrupt reaches the process as a signal.
func newProgressProgram(ctx context.Context, w io.Writer) *tea.Program {
	return tea.NewProgram(ProgressModel{},
		tea.WithContext(ctx),
		tea.WithOutput(w),
		tea.WithInput(nil),
	)
}
