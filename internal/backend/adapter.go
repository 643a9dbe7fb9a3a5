package backend

import (
	"fmt"
	"io"

	"github.com/sokinpui/kubectl-watch.go/model"
)

// Exit statuses, following diff(1).
const (
	StatusOK      = 0
	StatusChanged = 1
	StatusError   = 2
)

// Adapter runs a backend and hands out either the printed or the structured
// form of its result. Both come from the same computation.
type Adapter struct {
	Backend Backend
	Config  DisplayConfig
	// ExitCode makes Print return StatusChanged when the sides differ.
	ExitCode bool
}

// NewAdapter builds an adapter for the given backend.
func NewAdapter(b Backend, cfg DisplayConfig) *Adapter {
	return &Adapter{Backend: b, Config: cfg}
}

// Render computes the diff and returns it as lines of spans.
func (a *Adapter) Render(before, after model.Artifact) (*Rendering, error) {
	cfg := a.Config.Resolved()
	res, err := a.Backend.Compute(before, after, cfg)
	if err != nil {
		return nil, err
	}
	return Layout(res, cfg), nil
}

// Print computes the diff and writes it to w in one go, returning the
// rendering it wrote along with the exit status. Nothing is written when the
// diff fails.
func (a *Adapter) Print(w io.Writer, before, after model.Artifact) (*Rendering, int, error) {
	r, err := a.Render(before, after)
	if err != nil {
		return nil, StatusError, err
	}
	if _, err := w.Write(Format(r, a.Config)); err != nil {
		return r, StatusError, fmt.Errorf("failed to write diff: %w", err)
	}
	return r, a.Status(r), nil
}

// Status maps a rendering to the exit status Print would return.
func (a *Adapter) Status(r *Rendering) int {
	if a.ExitCode && r.Changed {
		return StatusChanged
	}
	return StatusOK
}

// Summarize reports what a rendering amounted to.
func (a *Adapter) Summarize(r *Rendering) model.Summary {
	s := model.Summary{
		ExitCode: a.Status(r),
		Changed:  r.Changed,
		Degraded: r.Degraded,
		Reason:   r.Reason,
	}
	switch {
	case r.Degraded:
		s.Message = fmt.Sprintf("diff degraded to %s: %s", r.Language, r.Reason)
	case !r.Changed:
		s.Message = "no changes"
	default:
		s.Message = "changes found"
	}
	return s
}
