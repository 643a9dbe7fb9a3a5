package backend

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/kubectl-watch.go/internal/caller"
	"github.com/sokinpui/kubectl-watch.go/internal/spans"
	"github.com/sokinpui/kubectl-watch.go/model"
)

// DefaultCallerWait is how long Compute waits for caller detection.
const DefaultCallerWait = 50 * time.Millisecond

// LineHighlight compares line by line and emphasizes what changed inside
// paired lines.
type LineHighlight struct {
	MissingAsEmpty bool

	detector *caller.Detector
	wait     time.Duration
	logger   hclog.Logger
}

// LineHighlightOption configures a LineHighlight backend.
type LineHighlightOption func(*LineHighlight)

// WithDetector uses an already running caller detection.
func WithDetector(d *caller.Detector) LineHighlightOption {
	return func(lh *LineHighlight) {
		lh.detector = d
	}
}

// WithCallerWait bounds how long Compute waits for caller detection.
func WithCallerWait(d time.Duration) LineHighlightOption {
	return func(lh *LineHighlight) {
		lh.wait = d
	}
}

// WithLogger sets the backend's logger.
func WithLogger(logger hclog.Logger) LineHighlightOption {
	return func(lh *LineHighlight) {
		lh.logger = logger
	}
}

// NewLineHighlight creates the backend. Caller detection starts here, in the
// background, unless a detector was handed in.
func NewLineHighlight(missingAsEmpty bool, opts ...LineHighlightOption) *LineHighlight {
	lh := &LineHighlight{
		MissingAsEmpty: missingAsEmpty,
		wait:           DefaultCallerWait,
		logger:         hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(lh)
	}
	if lh.detector == nil {
		lh.detector = caller.Start()
	}
	return lh
}

func (lh *LineHighlight) Name() string {
	return string(KindLineHighlight)
}

// Compute diffs the two artifacts line by line.
func (lh *LineHighlight) Compute(before, after model.Artifact, cfg DisplayConfig) (*Result, error) {
	a, err := readArtifact(before, lh.MissingAsEmpty)
	if err != nil {
		return nil, err
	}
	b, err := readArtifact(after, lh.MissingAsEmpty)
	if err != nil {
		return nil, err
	}

	who := lh.detector.Result(lh.wait)
	if lh.logger != nil {
		lh.logger.Debug("caller detected", "kind", who.Kind, "name", who.Name, "pid", who.Pid)
	}

	al, bl := splitLines(a), splitLines(b)
	rows := align(al, bl)
	fillLines(rows, al, bl, cfg.SyntaxHighlight)

	res := &Result{
		Before:   labelOf(before),
		After:    labelOf(after),
		Language: detectLanguage("", before, after, a, b),
		InVCS:    cfg.InVCS || who.InVCS(),
	}
	finish(res, rows, true, cfg)
	return res, nil
}

// fillLines colours rows from plain line equality. Changed rows are painted
// whole unless emphasis is set and both sides are present, in which case
// only the differing characters are coloured.
func fillLines(rows []Row, a, b []string, emphasis bool) {
	for i := range rows {
		row := &rows[i]
		switch {
		case !row.Changed:
			row.Left.Line = plain(a[row.Left.Num-1])
			row.Right.Line = plain(b[row.Right.Num-1])
		case emphasis && row.Left != nil && row.Right != nil:
			row.Left.Line, row.Right.Line = emphasize(a[row.Left.Num-1], b[row.Right.Num-1])
		default:
			if row.Left != nil {
				row.Left.Line = colored(a[row.Left.Num-1], model.ColorRemoved)
			}
			if row.Right != nil {
				row.Right.Line = colored(b[row.Right.Num-1], model.ColorAdded)
			}
		}
	}
}

func emphasize(was, now string) (model.Line, model.Line) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(was, now, false))

	var left, right model.Line
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			left = append(left, model.Span{Text: d.Text, Color: model.ColorDefault})
			right = append(right, model.Span{Text: d.Text, Color: model.ColorDefault})
		case diffmatchpatch.DiffDelete:
			left = append(left, model.Span{Text: d.Text, Color: model.ColorRemoved})
		case diffmatchpatch.DiffInsert:
			right = append(right, model.Span{Text: d.Text, Color: model.ColorAdded})
		}
	}
	return spans.Compact(left), spans.Compact(right)
}

// finish fills in the fields every backend derives the same way.
func finish(res *Result, rows []Row, identical bool, cfg DisplayConfig) {
	res.Changed = hasChanges(rows)
	if res.Changed {
		var left, right bool
		for _, row := range rows {
			left = left || row.Left != nil
			right = right || row.Right != nil
		}
		res.OneSided = !left || !right
	}

	res.Hunks = group(rows, cfg.Context, !res.Changed && cfg.PrintUnchanged)
	if len(res.Hunks) == 0 {
		switch {
		case identical:
			res.Note = "No changes."
		default:
			res.Note = "No syntactic changes."
		}
	}
}
