// Package render turns the structured form of a diff into a pair of
// independently scrollable, styled text panes.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/spans"
	"github.com/sokinpui/kubectl-watch.go/model"
)

// Palette maps semantic colours to styles.
type Palette map[model.ColorTag]lipgloss.Style

// NewPalette returns the fixed colour mapping for a background: neutral
// foreground for Default, the red family for Removed and the green family
// for Added.
func NewPalette(bg backend.Background) Palette {
	if bg == backend.Light {
		return Palette{
			model.ColorDefault: lipgloss.NewStyle().Foreground(lipgloss.Color("0")),
			model.ColorRemoved: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
			model.ColorAdded:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		}
	}
	return Palette{
		model.ColorDefault: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		model.ColorRemoved: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		model.ColorAdded:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (p Palette) style(c model.ColorTag) lipgloss.Style {
	if s, ok := p[c]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// Pane is one side of the diff as lines of spans.
type Pane struct {
	Title string
	Lines []model.Line
}

// Display wraps every line to width, trimming whitespace at wrap points.
func (p Pane) Display(width int) []model.Line {
	var out []model.Line
	for _, line := range p.Lines {
		out = append(out, spans.Wrap(line, width)...)
	}
	return out
}

// View renders the wrapped pane as styled text, one display line per row.
func (p Pane) View(width int, pal Palette) string {
	lines := p.Display(width)
	rows := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, s := range line {
			b.WriteString(pal.style(s.Color).Render(s.Text))
		}
		rows[i] = b.String()
	}
	return strings.Join(rows, "\n")
}

// PanePair is what the interactive view shows for one diff.
type PanePair struct {
	Left  Pane
	Right Pane

	Changed  bool
	Degraded bool
	Reason   string
	// Plain is the printed form of the same diff without colour.
	Plain string
}

// Panes splits a rendering into its two panes.
func Panes(r *backend.Rendering, before, after string) *PanePair {
	return &PanePair{
		Left:     Pane{Title: before, Lines: r.Left},
		Right:    Pane{Title: after, Lines: r.Right},
		Changed:  r.Changed,
		Degraded: r.Degraded,
		Reason:   r.Reason,
		Plain:    r.Text(),
	}
}
