// Package tui shows the diff of the watched object in two scrollable panes
// that refresh on every new snapshot.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/kubectl-watch.go/internal/normalize"
	"github.com/sokinpui/kubectl-watch.go/internal/nvim"
	"github.com/sokinpui/kubectl-watch.go/internal/render"
	"github.com/sokinpui/kubectl-watch.go/internal/source"
	"github.com/sokinpui/kubectl-watch.go/internal/state"
	"github.com/sokinpui/kubectl-watch.go/watchdiff"
)

// --- Styles ---
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

const (
	paneGap     = " │ "
	chromeLines = 2 // title row and status bar
)

// --- Messages ---
type eventMsg struct {
	source.Event
}

type streamEndMsg struct{ err error }

// panesMsg carries the generation of the diff request it answers.
type panesMsg struct {
	gen   int
	panes *render.PanePair
	err   error
}

type copiedMsg struct{ err error }

type editorDoneMsg struct{ err error }

// foregroundEditorMsg asks for nvim -d to run in the foreground.
type foregroundEditorMsg struct {
	before, after string
	done          func(error) tea.Msg
}

// --- Model ---

// Model is the bubbletea model of the two-pane view.
type Model struct {
	differ  *watchdiff.Differ
	history *state.Manager
	events  <-chan source.Event
	errs    <-chan error

	keys    KeyMap
	palette render.Palette
	spinner spinner.Model
	left    viewport.Model
	right   viewport.Model

	// copy and edit are replaceable for tests.
	copy func(string) error
	edit func(before, after string, done func(error) tea.Msg) tea.Cmd

	focus  int
	sync   bool
	key    string
	gen    int
	panes  *render.PanePair
	status string
	err    error
	ended  bool
	width  int
	height int
}

// New creates the model. Snapshots arrive on events; errs is read once
// events is closed.
func New(d *watchdiff.Differ, history *state.Manager, events <-chan source.Event, errs <-chan error) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		differ:  d,
		history: history,
		events:  events,
		errs:    errs,
		keys:    DefaultKeyMap(),
		palette: render.NewPalette(d.Display().Background),
		spinner: s,
		left:    viewport.New(0, 0),
		right:   viewport.New(0, 0),
		copy:    clipboard.WriteAll,
		edit:    openEditor,
		sync:    true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		return m, tea.Batch(m.record(msg.Event), m.waitForEvent())

	case streamEndMsg:
		m.ended = true
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "watch ended"
		}
		return m, nil

	case panesMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			// Keep showing the last good diff.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.panes = msg.panes
		m.status = m.describe()
		m.refresh()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to copy: %w", msg.err)
		} else {
			m.status = "copied diff to clipboard"
		}
		return m, nil

	case foregroundEditorMsg:
		done := msg.done
		return m, tea.ExecProcess(nvim.Command(msg.before, msg.after), func(err error) tea.Msg {
			return done(err)
		})

	case editorDoneMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("editor: %w", msg.err)
		}
		return m, nil

	default:
		var cmd tea.Cmd
		if m.panes == nil {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		m.focus = 1 - m.focus
	case key.Matches(msg, m.keys.Sync):
		m.sync = !m.sync
		if m.sync {
			m.other().SetYOffset(m.focused().YOffset)
		}
	case key.Matches(msg, m.keys.Up):
		m.scroll(func(v *viewport.Model) { v.SetYOffset(v.YOffset - 1) })
	case key.Matches(msg, m.keys.Down):
		m.scroll(func(v *viewport.Model) { v.SetYOffset(v.YOffset + 1) })
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(func(v *viewport.Model) { v.SetYOffset(v.YOffset - v.Height/2) })
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(func(v *viewport.Model) { v.SetYOffset(v.YOffset + v.Height/2) })
	case key.Matches(msg, m.keys.Top):
		m.scroll(func(v *viewport.Model) { v.GotoTop() })
	case key.Matches(msg, m.keys.Bottom):
		m.scroll(func(v *viewport.Model) { v.GotoBottom() })
	case key.Matches(msg, m.keys.Older):
		if m.history.Previous(m.key) {
			return m, m.diff()
		}
	case key.Matches(msg, m.keys.Newer):
		if m.history.Next(m.key) {
			return m, m.diff()
		}
	case key.Matches(msg, m.keys.NextObj):
		return m, m.switchObject(1)
	case key.Matches(msg, m.keys.PrevObj):
		return m, m.switchObject(-1)
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyDiff()
	case key.Matches(msg, m.keys.Edit):
		return m, m.openInEditor()
	}
	return m, nil
}

// record stores a snapshot and re-diffs when it belongs to the shown object.
func (m *Model) record(ev source.Event) tea.Cmd {
	k := normalize.Key(ev.Object)
	if ev.Deleted {
		m.history.MarkDeleted(k)
		if k == m.key {
			m.status = m.describe()
		}
		return nil
	}
	if _, ok := m.history.Write(ev.Object); !ok {
		return nil
	}
	if m.key == "" {
		m.key = k
	}
	if k != m.key {
		return nil
	}
	return m.diff()
}

// diff computes the panes for the cursor of the shown object off the UI
// goroutine. Only the reply to the latest request is shown.
func (m *Model) diff() tea.Cmd {
	pre, cur := m.history.Pair(m.key)
	if cur == nil {
		return nil
	}
	m.gen++
	gen, d := m.gen, m.differ
	return func() tea.Msg {
		pp, err := d.Panes(pre, cur)
		return panesMsg{gen: gen, panes: pp, err: err}
	}
}

func (m *Model) switchObject(step int) tea.Cmd {
	keys := m.history.Keys()
	if len(keys) < 2 {
		return nil
	}
	i := 0
	for j, k := range keys {
		if k == m.key {
			i = j
			break
		}
	}
	m.key = keys[(i+step+len(keys))%len(keys)]
	m.panes = nil
	return m.diff()
}

func (m *Model) copyDiff() tea.Cmd {
	if m.panes == nil {
		return nil
	}
	text, write := m.panes.Plain, m.copy
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func (m *Model) openInEditor() tea.Cmd {
	pre, cur := m.history.Pair(m.key)
	if cur == nil {
		return nil
	}
	lease, err := m.differ.Artifacts(pre, cur)
	if err != nil {
		m.err = err
		return nil
	}
	return m.edit(lease.Before.Path, lease.After.Path, func(err error) tea.Msg {
		if rerr := lease.Release(); err == nil {
			err = rerr
		}
		return editorDoneMsg{err: err}
	})
}

// openEditor uses the enclosing Neovim when there is one, and otherwise
// asks for a foreground nvim -d that suspends the view.
func openEditor(before, after string, done func(error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		m, err := nvim.Connect()
		switch {
		case errors.Is(err, nvim.ErrNoInstance):
			return foregroundEditorMsg{before: before, after: after, done: done}
		case err != nil:
			return done(err)
		}
		defer m.Close()
		return done(m.OpenDiff(before, after))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events, errs := m.events, m.errs
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamEndMsg{err: <-errs}
		}
		return eventMsg{ev}
	}
}

// --- Layout ---

func (m *Model) focused() *viewport.Model {
	if m.focus == 0 {
		return &m.left
	}
	return &m.right
}

func (m *Model) other() *viewport.Model {
	if m.focus == 0 {
		return &m.right
	}
	return &m.left
}

func (m *Model) scroll(fn func(v *viewport.Model)) {
	fn(m.focused())
	if m.sync {
		m.other().SetYOffset(m.focused().YOffset)
	}
}

func (m *Model) paneWidth() int {
	return max((m.width-lipgloss.Width(paneGap))/2, 1)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	w, h := m.paneWidth(), max(height-chromeLines, 1)
	m.left.Width, m.left.Height = w, h
	m.right.Width, m.right.Height = w, h
	m.refresh()
}

// refresh re-wraps both panes to the current width, keeping the scroll
// position where possible.
func (m *Model) refresh() {
	if m.panes == nil || m.width == 0 {
		return
	}
	w := m.paneWidth()
	lo, ro := m.left.YOffset, m.right.YOffset
	m.left.SetContent(m.panes.Left.View(w, m.palette))
	m.right.SetContent(m.panes.Right.View(w, m.palette))
	m.left.SetYOffset(lo)
	m.right.SetYOffset(ro)
}

func (m *Model) describe() string {
	var b strings.Builder
	pos, total := m.history.Position(m.key)
	fmt.Fprintf(&b, "%s  [%d/%d]", m.key, pos, total)
	if m.history.Deleted(m.key) {
		b.WriteString("  deleted")
	}
	if m.panes != nil {
		switch {
		case m.panes.Degraded:
			b.WriteString("  degraded: " + m.panes.Reason)
		case m.panes.Changed:
			b.WriteString("  changed")
		default:
			b.WriteString("  no changes")
		}
	}
	return b.String()
}

func (m *Model) View() string {
	if m.panes == nil {
		if m.err != nil {
			return errorStyle.Render("Error: ", m.err.Error())
		}
		if m.ended {
			return faintStyle.Render("Nothing to show.")
		}
		return fmt.Sprintf("%s Waiting for snapshots...", m.spinner.View())
	}

	w := m.paneWidth()
	titles := [2]string{m.panes.Left.Title, m.panes.Right.Title}
	for i := range titles {
		style := titleStyle
		if i == m.focus {
			style = focusStyle
		}
		titles[i] = style.Width(w).MaxWidth(w).Render(titles[i])
	}

	var b strings.Builder
	b.WriteString(titles[0] + paneGap + titles[1])
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(w).Render(m.left.View()),
		m.gutter(),
		lipgloss.NewStyle().Width(w).Render(m.right.View())))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m *Model) gutter() string {
	return strings.TrimSuffix(strings.Repeat(paneGap+"\n", max(m.left.Height, 1)), "\n")
}

func (m *Model) statusBar() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	style := successStyle
	if m.panes.Degraded || m.history.Deleted(m.key) {
		style = warningStyle
	}
	status := style.Render(m.status)
	if m.sync {
		status += faintStyle.Render("  sync")
	}
	return status
}
