// Package watchdiff turns successive snapshots of a Kubernetes object into
// diffs, printed to a terminal or split into panes for the interactive view.
package watchdiff

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/sokinpui/kubectl-watch.go/cli"
	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/caller"
	"github.com/sokinpui/kubectl-watch.go/internal/fs"
	"github.com/sokinpui/kubectl-watch.go/internal/normalize"
	"github.com/sokinpui/kubectl-watch.go/internal/pipeline"
	"github.com/sokinpui/kubectl-watch.go/internal/render"
	"github.com/sokinpui/kubectl-watch.go/model"
)

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error { return e.Err }

// Differ runs the whole chain for one snapshot pair: normalize, preprocess,
// materialize, diff and lay out.
type Differ struct {
	cfg      *cli.Config
	pipeline *pipeline.Pipeline
	adapter  *backend.Adapter
	store    *fs.Store
	logger   hclog.Logger
	backend  backend.Backend
}

// Option configures a Differ.
type Option func(*Differ)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(d *Differ) {
		d.logger = logger
	}
}

// WithStore sets the scratch store for file-backed artifacts.
func WithStore(store *fs.Store) Option {
	return func(d *Differ) {
		d.store = store
	}
}

// WithBackend replaces the backend picked from the config.
func WithBackend(b backend.Backend) Option {
	return func(d *Differ) {
		d.backend = b
	}
}

// New creates a Differ. Caller detection for the line-highlight backend is
// started before the rest of the configuration is assembled.
func New(cfg *cli.Config, opts ...Option) (*Differ, error) {
	if cfg == nil {
		cfg = cli.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var detector *caller.Detector
	if cfg.BackendKind() == backend.KindLineHighlight {
		detector = caller.Start()
	}

	d := &Differ{cfg: cfg, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(d)
	}
	if d.store == nil {
		d.store = fs.NewStore(cfg.ArtifactDir)
	}
	if d.backend == nil {
		switch cfg.BackendKind() {
		case backend.KindLineHighlight:
			d.backend = backend.NewLineHighlight(cfg.MissingAsEmpty,
				backend.WithDetector(detector),
				backend.WithLogger(d.logger.Named("line")))
		default:
			d.backend = &backend.Structural{
				Language:       cfg.Language,
				MissingAsEmpty: cfg.MissingAsEmpty,
				Limits:         cfg.Limits(),
			}
		}
	}

	d.pipeline = pipeline.New(cfg.Policy())
	d.adapter = backend.NewAdapter(d.backend, cfg.DisplayConfig().Resolved())
	d.adapter.ExitCode = cfg.ExitCode

	d.logger.Debug("differ ready",
		"backend", d.backend.Name(),
		"mode", d.adapter.Config.Mode,
		"width", d.adapter.Config.Width,
		"tasks", d.pipeline.Tasks(),
		"artifacts", d.store.Dir())
	return d, nil
}

// Display returns the resolved display settings.
func (d *Differ) Display() backend.DisplayConfig {
	return d.adapter.Config
}

// Diff prints the diff between the last two snapshots of history to w. With
// fewer than two snapshots there is nothing to compare: it writes nothing
// and returns a zero summary.
func (d *Differ) Diff(history []*unstructured.Unstructured, w io.Writer) (model.Summary, error) {
	if len(history) < 2 {
		return model.Summary{ExitCode: backend.StatusOK}, nil
	}
	n := len(history)
	return d.DiffPair(history[n-2], history[n-1], w)
}

// DiffPair prints the diff between pre and cur to w. The summary carries
// the exit status. pre may be nil. Nothing is written when the diff fails.
func (d *Differ) DiffPair(pre, cur *unstructured.Unstructured, w io.Writer) (sum model.Summary, err error) {
	failed := model.Summary{ExitCode: backend.StatusError}
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		if err != nil {
			sum = failed
		}
	}()

	before, after, err := d.prepare(pre, cur)
	if err != nil {
		return failed, err
	}

	var lease *fs.Lease
	if d.cfg.UniqueArtifacts {
		lease, err = d.store.Claim(before, after)
	} else {
		lease, err = d.store.Shared(before, after)
	}
	if err != nil {
		return failed, err
	}
	defer func() {
		if rerr := lease.Release(); rerr != nil {
			d.logger.Warn("failed to clean up artifacts", "error", rerr)
		}
	}()

	r, _, err := d.adapter.Print(w, lease.Before, lease.After)
	if err != nil {
		return failed, err
	}
	d.report(cur, r)
	return d.adapter.Summarize(r), nil
}

// Panes diffs pre and cur in memory and returns the two panes for the
// interactive view. pre may be nil when missing-as-empty is on.
func (d *Differ) Panes(pre, cur *unstructured.Unstructured) (pp *render.PanePair, err error) {
	defer recoverDetailed(&err)

	if pre == nil && !d.cfg.MissingAsEmpty {
		return nil, &backend.InputError{Label: "before", Err: os.ErrNotExist}
	}
	before, after, err := d.prepare(pre, cur)
	if err != nil {
		return nil, err
	}

	beforeLabel, afterLabel := label(pre, "before"), label(cur, "after")
	a, b := fs.Direct(before, after, beforeLabel, afterLabel)
	r, err := d.adapter.Render(a, b)
	if err != nil {
		return nil, err
	}
	d.report(cur, r)
	return render.Panes(r, beforeLabel, afterLabel), nil
}

// Artifacts materializes the pair as files for external viewers. The
// caller releases the lease.
func (d *Differ) Artifacts(pre, cur *unstructured.Unstructured) (*fs.Lease, error) {
	before, after, err := d.prepare(pre, cur)
	if err != nil {
		return nil, err
	}
	return d.store.Claim(before, after)
}

// prepare clones, preprocesses and serializes both sides. A nil pre stays
// nil so that the store can treat it as missing.
func (d *Differ) prepare(pre, cur *unstructured.Unstructured) ([]byte, []byte, error) {
	pre, err := normalize.Clone(pre)
	if err != nil {
		return nil, nil, err
	}
	cur, err = normalize.Clone(cur)
	if err != nil {
		return nil, nil, err
	}

	d.pipeline.Process(pre, cur)

	var before []byte
	if pre != nil {
		if before, err = normalize.Normalize(pre); err != nil {
			return nil, nil, err
		}
	}
	after, err := normalize.Normalize(cur)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (d *Differ) report(cur *unstructured.Unstructured, r *backend.Rendering) {
	if r.Degraded {
		d.logger.Warn("diff degraded", "object", normalize.Key(cur), "reason", r.Reason)
		return
	}
	d.logger.Trace("diff computed", "object", normalize.Key(cur), "changed", r.Changed)
}

func label(obj *unstructured.Unstructured, fallback string) string {
	if obj == nil {
		return fallback
	}
	if rv := obj.GetResourceVersion(); rv != "" {
		return fmt.Sprintf("%s@%s", obj.GetName(), rv)
	}
	if name := obj.GetName(); name != "" {
		return name
	}
	return fallback
}

// recoverDetailed turns a panic into a DetailedError carrying the stack.
// It must be deferred directly.
func recoverDetailed(err *error) {
	if r := recover(); r != nil {
		*err = panicError(r)
	}
}

func panicError(r interface{}) error {
	return &DetailedError{
		Err:   fmt.Errorf("internal panic: %v", r),
		Stack: debug.Stack(),
	}
}
