package backend

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	DefaultTabWidth   = 8
	DefaultContext    = 3
	DefaultGraphLimit = 3_000_000
	DefaultByteLimit  = 1_000_000
	fallbackWidth     = 80
	minColumnWidth    = 10
)

// Background is the terminal theme the colours are picked for.
type Background int

const (
	Dark Background = iota
	Light
)

// DisplayMode selects how the two sides are laid out.
type DisplayMode int

const (
	SideBySide DisplayMode = iota
	SideBySideShowBoth
	Unified
)

func (m DisplayMode) String() string {
	switch m {
	case SideBySideShowBoth:
		return "show-both"
	case Unified:
		return "unified"
	default:
		return "side-by-side"
	}
}

// ParseDisplayMode parses the CLI spelling of a display mode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(s) {
	case "side-by-side", "sbs", "":
		return SideBySide, nil
	case "show-both", "side-by-side-show-both":
		return SideBySideShowBoth, nil
	case "unified", "inline":
		return Unified, nil
	}
	return SideBySide, fmt.Errorf("unknown display mode %q", s)
}

// ParseBackground parses "dark" or "light".
func ParseBackground(s string) (Background, error) {
	switch strings.ToLower(s) {
	case "dark", "":
		return Dark, nil
	case "light":
		return Light, nil
	}
	return Dark, fmt.Errorf("unknown background %q", s)
}

// DisplayConfig is an immutable snapshot of display settings. Build it once
// and pass it by value.
type DisplayConfig struct {
	Background      Background
	UseColor        bool
	TabWidth        int
	Width           int
	Mode            DisplayMode
	SyntaxHighlight bool
	InVCS           bool
	PrintUnchanged  bool
	Context         int
}

// DefaultDisplayConfig mirrors the defaults kubectl-watch always used.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Background:      Dark,
		UseColor:        true,
		TabWidth:        DefaultTabWidth,
		Mode:            SideBySide,
		SyntaxHighlight: true,
		InVCS:           true,
		Context:         DefaultContext,
	}
}

// Resolved returns a copy with zero values replaced by defaults and the
// width detected when unset.
func (c DisplayConfig) Resolved() DisplayConfig {
	if c.TabWidth <= 0 {
		c.TabWidth = DefaultTabWidth
	}
	if c.Context < 0 {
		c.Context = DefaultContext
	}
	if c.Width <= 0 {
		c.Width = DetectWidth()
	}
	return c
}

// ColumnWidth is the width of one side in the two-column layouts.
func (c DisplayConfig) ColumnWidth() int {
	w := (c.Width - len(columnGap)) / 2
	if w < minColumnWidth {
		w = minColumnWidth
	}
	return w
}

// DetectWidth asks the terminal on stdout, then $COLUMNS, then falls back
// to 80 columns.
func DetectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return fallbackWidth
}

// Limits bound the work the structural backend does before falling back to a
// line comparison.
type Limits struct {
	GraphLimit int
	ByteLimit  int
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{GraphLimit: DefaultGraphLimit, ByteLimit: DefaultByteLimit}
}

func (l Limits) resolved() Limits {
	if l.GraphLimit <= 0 {
		l.GraphLimit = DefaultGraphLimit
	}
	if l.ByteLimit <= 0 {
		l.ByteLimit = DefaultByteLimit
	}
	return l
}
