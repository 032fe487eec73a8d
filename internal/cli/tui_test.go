package cli

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func update(t *testing.T, m ProgressModel, msgs ...tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(ProgressModel)
	}
	return m, cmd
}

func TestProgressModelCounts(t *testing.T) {
	m, _ := update(t, ProgressModel{},
		runStartMsg{total: 3},
		itemStartMsg{name: "vf-box"},
		itemStartMsg{name: "vf-card"},
		itemStartMsg{name: "vf-hero"},
		itemDoneMsg{name: "vf-card", failed: true},
		itemDoneMsg{name: "vf-box"},
	)

	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 2, m.Done)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, []string{"vf-hero"}, m.InFlight)

	view := m.View()
	assert.Contains(t, view, "2/3")
	assert.Contains(t, view, "(1 failed)")
	assert.Contains(t, view, "vf-hero")
	assert.NotContains(t, view, "vf-card")
}

func TestProgressModelPreparing(t *testing.T) {
	assert.Contains(t, ProgressModel{}.View(), "Preparing run")
}

func TestProgressModelFinish(t *testing.T) {
	m, cmd := update(t, ProgressModel{}, runStartMsg{total: 1}, runDoneMsg{})

	assert.True(t, m.Finished)
	assert.Empty(t, m.View())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProgressModelTick(t *testing.T) {
	m, cmd := update(t, ProgressModel{}, tickMsg(time.Now()))
	assert.Equal(t, 1, m.frame)
	assert.NotNil(t, cmd)
}

func TestProgressHooks(t *testing.T) {
	ctx := context.Background()
	rec := &recordingSender{}
	h := progressHooks{p: rec}

	h.OnRunStart(ctx, 2)
	h.OnItemStart(ctx, "@visual-framework/vf-box")
	h.OnStageComplete(ctx, "@visual-framework/vf-box", "config", time.Millisecond, nil)
	h.OnItemComplete(ctx, "@visual-framework/vf-box", time.Millisecond, errors.New("boom"))
	h.OnRunComplete(ctx, time.Second, nil)

	assert.Equal(t, []tea.Msg{
		runStartMsg{total: 2},
		itemStartMsg{name: "vf-box"},
		itemDoneMsg{name: "vf-box", failed: true},
		runDoneMsg{},
	}, rec.msgs)
}
