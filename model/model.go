package model

import "strings"

// ColorTag is the semantic foreground colour of a span.
type ColorTag int

const (
	ColorDefault ColorTag = iota
	ColorRemoved
	ColorAdded
)

func (c ColorTag) String() string {
	switch c {
	case ColorRemoved:
		return "removed"
	case ColorAdded:
		return "added"
	default:
		return "default"
	}
}

// Span is a fragment of text carrying one colour.
type Span struct {
	Text  string
	Color ColorTag
}

// Line is an ordered sequence of spans making up one display line.
type Line []Span

// Text returns the line content with colours dropped.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Artifact is one textual side of a diff, addressed either by a path on disk
// or by in-memory content.
type Artifact struct {
	Label    string
	Path     string
	Text     string
	InMemory bool
}

// Summary holds the outcome of a terminal diff invocation for display.
type Summary struct {
	ExitCode int
	Changed  bool
	Degraded bool
	Reason   string
	Message  string
}
