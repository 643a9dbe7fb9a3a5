package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sokinpui/kubectl-watch.go/internal/spans"
	"github.com/sokinpui/kubectl-watch.go/model"
)

const (
	columnGap     = "   "
	hunkSeparator = "..."
)

// Rendering is a laid out diff. Lines is what gets printed, one entry per
// output line; Left and Right hold the same rows split into two panes.
type Rendering struct {
	Lines       []model.Line
	HeaderLines int
	Left        []model.Line
	Right       []model.Line

	Changed  bool
	Degraded bool
	Reason   string
	Language string
}

// Text returns the printed lines without colour.
func (r *Rendering) Text() string {
	var b strings.Builder
	for _, line := range r.Lines {
		b.WriteString(line.Text())
		b.WriteByte('\n')
	}
	return b.String()
}

// Layout turns a result into printable lines and pane lines.
func Layout(res *Result, cfg DisplayConfig) *Rendering {
	cfg = cfg.Resolved()
	r := &Rendering{
		Lines:       []model.Line{header(res)},
		HeaderLines: 1,
		Changed:     res.Changed,
		Degraded:    res.Degraded,
		Reason:      res.Reason,
		Language:    res.Language,
	}

	if res.Note != "" {
		r.Lines = append(r.Lines, plain(res.Note))
		r.Left = []model.Line{plain(res.Note)}
		r.Right = []model.Line{plain(res.Note)}
		return r
	}

	for i, h := range res.Hunks {
		if i > 0 {
			r.Left = append(r.Left, plain(hunkSeparator))
			r.Right = append(r.Right, plain(hunkSeparator))
		}
		for _, row := range h.Rows {
			r.Left = append(r.Left, paneLine(row.Left, cfg.TabWidth))
			r.Right = append(r.Right, paneLine(row.Right, cfg.TabWidth))
		}
	}

	digits := numberWidth(res.Hunks)
	switch {
	case cfg.Mode == Unified:
		r.Lines = append(r.Lines, unified(res.Hunks, cfg.TabWidth)...)
	case cfg.Mode == SideBySide && res.OneSided:
		r.Lines = append(r.Lines, singleColumn(res.Hunks, digits, cfg)...)
	default:
		r.Lines = append(r.Lines, sideBySide(res.Hunks, digits, cfg)...)
	}
	return r
}

func header(res *Result) model.Line {
	lang := res.Language
	if res.Degraded {
		lang = fmt.Sprintf("%s (%s)", lang, res.Reason)
	}
	if res.InVCS {
		return plain(res.After + " --- " + lang)
	}
	return plain(res.Before + " --- " + res.After + " --- " + lang)
}

func paneLine(c *Cell, tabWidth int) model.Line {
	if c == nil {
		return model.Line{}
	}
	return spans.ExpandTabs(c.Line, tabWidth)
}

func numberWidth(hunks []Hunk) int {
	n := 1
	for _, h := range hunks {
		for _, row := range h.Rows {
			if row.Left != nil {
				n = max(n, row.Left.Num)
			}
			if row.Right != nil {
				n = max(n, row.Right.Num)
			}
		}
	}
	return len(strconv.Itoa(n))
}

// unified prints each hunk under its @@ header, removed lines of a block
// before added ones.
func unified(hunks []Hunk, tabWidth int) []model.Line {
	var out []model.Line
	for _, h := range hunks {
		out = append(out, plain(h.Header()))

		var removed, added []model.Line
		flush := func() {
			out = append(out, removed...)
			out = append(out, added...)
			removed, added = nil, nil
		}
		for _, row := range h.Rows {
			if !row.Changed && row.Left != nil && row.Right != nil && row.Left.Line.Text() == row.Right.Line.Text() {
				flush()
				out = append(out, prefixed(" ", model.ColorDefault, row.Left.Line, tabWidth))
				continue
			}
			minus, plus := model.ColorDefault, model.ColorDefault
			if row.Changed {
				minus, plus = model.ColorRemoved, model.ColorAdded
			}
			if row.Left != nil {
				removed = append(removed, prefixed("-", minus, row.Left.Line, tabWidth))
			}
			if row.Right != nil {
				added = append(added, prefixed("+", plus, row.Right.Line, tabWidth))
			}
		}
		flush()
	}
	return out
}

func prefixed(prefix string, color model.ColorTag, line model.Line, tabWidth int) model.Line {
	out := model.Line{{Text: prefix, Color: color}}
	return append(out, spans.ExpandTabs(line, tabWidth)...)
}

func sideBySide(hunks []Hunk, digits int, cfg DisplayConfig) []model.Line {
	width := cfg.ColumnWidth()
	var out []model.Line
	for i, h := range hunks {
		if i > 0 {
			out = append(out, plain(hunkSeparator))
		}
		for _, row := range h.Rows {
			left := column(row.Left, digits, width, cfg.TabWidth)
			right := column(row.Right, digits, width, cfg.TabWidth)
			for k := 0; k < len(left) || k < len(right); k++ {
				var line model.Line
				if k < len(left) {
					line = append(line, left[k]...)
				}
				if k < len(right) {
					line = spans.Pad(line, width)
					line = append(line, model.Span{Text: columnGap, Color: model.ColorDefault})
					line = append(line, right[k]...)
				}
				out = append(out, line)
			}
		}
	}
	return out
}

// singleColumn lays out a one-sided diff across the full width.
func singleColumn(hunks []Hunk, digits int, cfg DisplayConfig) []model.Line {
	var out []model.Line
	for i, h := range hunks {
		if i > 0 {
			out = append(out, plain(hunkSeparator))
		}
		for _, row := range h.Rows {
			c := row.Left
			if c == nil {
				c = row.Right
			}
			out = append(out, column(c, digits, cfg.Width, cfg.TabWidth)...)
		}
	}
	return out
}

// column wraps one cell to width, behind a line number gutter.
func column(c *Cell, digits, width, tabWidth int) []model.Line {
	if c == nil {
		return nil
	}
	gutter := digits + 1
	body := max(width-gutter, 1)

	wrapped := spans.Wrap(spans.ExpandTabs(c.Line, tabWidth), body)
	out := make([]model.Line, len(wrapped))
	for k, w := range wrapped {
		g := strings.Repeat(" ", gutter)
		if k == 0 {
			g = fmt.Sprintf("%*d ", digits, c.Num)
		}
		out[k] = append(model.Line{{Text: g, Color: model.ColorDefault}}, w...)
	}
	return out
}
