package backend

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sokinpui/kubectl-watch.go/model"
)

// Cell is one numbered source line on one side of a row.
type Cell struct {
	Num  int
	Line model.Line
}

// Row pairs a line of the before side with a line of the after side.
// A nil side means the row has no counterpart there.
type Row struct {
	Left    *Cell
	Right   *Cell
	Changed bool
}

// Hunk is a run of rows around changes, with unified-diff coordinates.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Rows     []Row
}

// Header renders the unified hunk header.
func (h Hunk) Header() string {
	return buildHunkHeader(h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

func buildHunkHeader(oldStart, oldLines, newStart, newLines int) string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldLines, newStart, newLines)
}

// Result is what a backend computed for one pair.
type Result struct {
	Before   string
	After    string
	Language string
	Hunks    []Hunk
	Changed  bool
	// Degraded is set when a limit forced a coarser comparison.
	Degraded bool
	Reason   string
	// OneSided is set when one of the two sides is empty.
	OneSided bool
	InVCS    bool
	// Note replaces the hunks when there is nothing to show.
	Note string
}

// align matches the two line lists and returns one row per output line.
// Rows inside replaced blocks pair lines up positionally. Cell lines are
// left empty for the backend to fill in.
func align(a, b []string) []Row {
	var rows []Row
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, Row{Left: &Cell{Num: op.I1 + k + 1}, Right: &Cell{Num: op.J1 + k + 1}})
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				rows = append(rows, Row{Left: &Cell{Num: i + 1}, Changed: true})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				rows = append(rows, Row{Right: &Cell{Num: j + 1}, Changed: true})
			}
		case 'r':
			n, k := op.I2-op.I1, op.J2-op.J1
			for x := 0; x < n || x < k; x++ {
				row := Row{Changed: true}
				if x < n {
					row.Left = &Cell{Num: op.I1 + x + 1}
				}
				if x < k {
					row.Right = &Cell{Num: op.J1 + x + 1}
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// group cuts rows into hunks holding every changed row plus context rows
// on either side. With all set, every row lands in a single hunk.
func group(rows []Row, context int, all bool) []Hunk {
	if len(rows) == 0 {
		return nil
	}
	if all {
		return []Hunk{makeHunk(rows, 0, len(rows))}
	}

	var hunks []Hunk
	start, end := -1, -1
	for i, row := range rows {
		if !row.Changed {
			continue
		}
		lo, hi := max(i-context, 0), min(i+context+1, len(rows))
		if start >= 0 && lo <= end {
			end = max(end, hi)
			continue
		}
		if start >= 0 {
			hunks = append(hunks, makeHunk(rows, start, end))
		}
		start, end = lo, hi
	}
	if start >= 0 {
		hunks = append(hunks, makeHunk(rows, start, end))
	}
	return hunks
}

func makeHunk(rows []Row, start, end int) Hunk {
	var before, after int
	for _, row := range rows[:start] {
		if row.Left != nil {
			before++
		}
		if row.Right != nil {
			after++
		}
	}

	h := Hunk{Rows: rows[start:end]}
	for _, row := range h.Rows {
		if row.Left != nil {
			h.OldCount++
		}
		if row.Right != nil {
			h.NewCount++
		}
	}
	h.OldStart, h.NewStart = before, after
	if h.OldCount > 0 {
		h.OldStart++
	}
	if h.NewCount > 0 {
		h.NewStart++
	}
	return h
}

func hasChanges(rows []Row) bool {
	for _, row := range rows {
		if row.Changed {
			return true
		}
	}
	return false
}

func plain(text string) model.Line {
	if text == "" {
		return model.Line{}
	}
	return model.Line{{Text: text, Color: model.ColorDefault}}
}

func colored(text string, color model.ColorTag) model.Line {
	if text == "" {
		return model.Line{}
	}
	return model.Line{{Text: text, Color: color}}
}
