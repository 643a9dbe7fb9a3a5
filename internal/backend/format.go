package backend

import (
	"bytes"

	"github.com/fatih/color"

	"github.com/sokinpui/kubectl-watch.go/model"
)

type palette struct {
	header  *color.Color
	removed *color.Color
	added   *color.Color
}

func newPalette(cfg DisplayConfig) palette {
	p := palette{
		header:  color.New(color.Bold),
		removed: color.New(color.FgHiRed),
		added:   color.New(color.FgHiGreen),
	}
	if cfg.Background == Light {
		p.removed = color.New(color.FgRed)
		p.added = color.New(color.FgGreen)
	}
	for _, c := range []*color.Color{p.header, p.removed, p.added} {
		if cfg.UseColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Format renders the printed lines as bytes, with ANSI colour when the
// config asks for it. Stripped of escapes, the output equals r.Text().
func Format(r *Rendering, cfg DisplayConfig) []byte {
	p := newPalette(cfg)

	var buf bytes.Buffer
	for i, line := range r.Lines {
		for _, s := range line {
			if s.Text == "" {
				continue
			}
			switch {
			case i < r.HeaderLines:
				buf.WriteString(p.header.Sprint(s.Text))
			case s.Color == model.ColorRemoved:
				buf.WriteString(p.removed.Sprint(s.Text))
			case s.Color == model.ColorAdded:
				buf.WriteString(p.added.Sprint(s.Text))
			default:
				buf.WriteString(s.Text)
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
