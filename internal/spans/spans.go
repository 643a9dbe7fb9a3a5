// Package spans holds width-aware helpers for coloured span lines.
package spans

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/sokinpui/kubectl-watch.go/model"
)

// Width returns the display width of a line.
func Width(line model.Line) int {
	w := 0
	for _, s := range line {
		w += runewidth.StringWidth(s.Text)
	}
	return w
}

// Pad appends a Default span of spaces so the line is exactly width wide.
// Lines already at or past width are returned as is.
func Pad(line model.Line, width int) model.Line {
	if gap := width - Width(line); gap > 0 {
		return append(line, model.Span{Text: strings.Repeat(" ", gap), Color: model.ColorDefault})
	}
	return line
}

// ExpandTabs replaces tabs with spaces up to the next multiple of tabWidth,
// keeping track of the column across spans.
func ExpandTabs(line model.Line, tabWidth int) model.Line {
	if tabWidth <= 0 {
		return line
	}
	out := make(model.Line, 0, len(line))
	col := 0
	for _, s := range line {
		if !strings.ContainsRune(s.Text, '\t') {
			col += runewidth.StringWidth(s.Text)
			out = append(out, s)
			continue
		}
		var b strings.Builder
		for _, r := range s.Text {
			if r == '\t' {
				n := tabWidth - col%tabWidth
				b.WriteString(strings.Repeat(" ", n))
				col += n
				continue
			}
			b.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
		out = append(out, model.Span{Text: b.String(), Color: s.Color})
	}
	return out
}

// Compact drops empty spans and joins neighbours of equal colour.
// Backends use it when building lines; sinks never call it.
func Compact(line model.Line) model.Line {
	out := make(model.Line, 0, len(line))
	for _, s := range line {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Color == s.Color {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

type cell struct {
	r     rune
	w     int
	color model.ColorTag
	space bool
}

// Wrap breaks a line into display lines no wider than width. Breaks happen
// at whitespace where possible, and the whitespace at a break is trimmed.
// Words longer than width are split. Span order is kept; a span that
// crosses a break is split in two, but spans are never merged.
func Wrap(line model.Line, width int) []model.Line {
	if width <= 0 || Width(line) <= width {
		return []model.Line{line}
	}

	// Flatten to cells, remembering which span each rune came from.
	var cells []cell
	var owner []int
	for i, s := range line {
		for _, r := range s.Text {
			cells = append(cells, cell{r: r, w: runewidth.RuneWidth(r), color: s.Color, space: unicode.IsSpace(r)})
			owner = append(owner, i)
		}
	}

	var out []model.Line
	start := 0
	for start < len(cells) {
		// Trim leading whitespace of continuation lines.
		if len(out) > 0 {
			for start < len(cells) && cells[start].space {
				start++
			}
			if start >= len(cells) {
				break
			}
		}

		end, w := start, 0
		for end < len(cells) && w+cells[end].w <= width {
			w += cells[end].w
			end++
		}
		if end == start {
			end = start + 1 // a single rune wider than the column
		}

		next := end
		if end < len(cells) && !cells[end].space {
			// Back up to the last whitespace so words stay whole.
			brk := end
			for brk > start && !cells[brk-1].space {
				brk--
			}
			if brk > start {
				end, next = brk, brk
			}
		}

		// Trim trailing whitespace at the break point.
		trimmed := end
		if next < len(cells) {
			for trimmed > start && cells[trimmed-1].space {
				trimmed--
			}
		}
		out = append(out, rebuild(cells[start:trimmed], owner[start:trimmed]))
		start = next
	}
	if len(out) == 0 {
		out = append(out, model.Line{})
	}
	return out
}

func rebuild(cells []cell, owner []int) model.Line {
	var line model.Line
	var b strings.Builder
	for i, c := range cells {
		if i > 0 && owner[i] != owner[i-1] {
			line = append(line, model.Span{Text: b.String(), Color: cells[i-1].color})
			b.Reset()
		}
		b.WriteRune(c.r)
	}
	if len(cells) > 0 {
		line = append(line, model.Span{Text: b.String(), Color: cells[len(cells)-1].color})
	}
	return line
}
