package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/sokinpui/kubectl-watch.go/model"
)

const (
	// DefaultDirName is the scratch directory created under the OS temp dir.
	DefaultDirName = "kubectl-watch"
	MinusFile      = "minus"
	PlusFile       = "plus"
)

// StorageError reports a scratch artifact that could not be materialized.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DefaultDir returns the per-process scratch directory.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DefaultDirName)
}

// Store materializes diff inputs as files in a scratch directory.
//
// The directory is shared process-wide. The default minus/plus pair inside it
// is single-flight: Shared holds the store lock until the lease is released,
// so concurrent in-process invocations take turns on the same two files.
// Callers that need overlapping diffs use Claim, which gives each invocation
// its own pair.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. An empty dir means DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir (re)creates the store directory with its parents.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &StorageError{Op: "create directory", Path: s.dir, Err: err}
	}
	return nil
}

// Lease is a pair of materialized artifacts owned by one invocation.
type Lease struct {
	Before model.Artifact
	After  model.Artifact

	once    sync.Once
	release func() error
	err     error
}

// Release gives the pair back. It is safe to call more than once.
func (l *Lease) Release() error {
	l.once.Do(func() {
		if l.release != nil {
			l.err = l.release()
		}
	})
	return l.err
}

// Direct wraps in-memory content as artifacts without touching the disk.
func Direct(before, after []byte, beforeLabel, afterLabel string) (model.Artifact, model.Artifact) {
	return model.Artifact{Label: beforeLabel, Text: string(before), InMemory: true},
		model.Artifact{Label: afterLabel, Text: string(after), InMemory: true}
}

// Shared writes both sides to the default minus/plus files, overwriting any
// previous content. A nil before removes the minus file so the backend sees
// a missing artifact. The returned lease must be released.
func (s *Store) Shared(before, after []byte) (*Lease, error) {
	s.mu.Lock()
	if err := s.EnsureDir(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	lease, err := writePair(s.dir, before, after)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	lease.release = func() error {
		s.mu.Unlock()
		return nil
	}
	return lease, nil
}

// Claim writes both sides to a freshly created, invocation-unique directory
// inside the store. Releasing the lease deletes it.
func (s *Store) Claim(before, after []byte) (*Lease, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(s.dir, "diff-")
	if err != nil {
		return nil, &StorageError{Op: "create directory", Path: s.dir, Err: err}
	}
	lease, err := writePair(dir, before, after)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	lease.release = func() error {
		return removePair(dir)
	}
	return lease, nil
}

func writePair(dir string, before, after []byte) (*Lease, error) {
	minus := filepath.Join(dir, MinusFile)
	plus := filepath.Join(dir, PlusFile)

	if before == nil {
		if err := os.Remove(minus); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &StorageError{Op: "remove", Path: minus, Err: err}
		}
	} else if err := os.WriteFile(minus, before, 0644); err != nil {
		return nil, &StorageError{Op: "write", Path: minus, Err: err}
	}
	if err := os.WriteFile(plus, after, 0644); err != nil {
		return nil, &StorageError{Op: "write", Path: plus, Err: err}
	}

	return &Lease{
		Before: model.Artifact{Label: minus, Path: minus},
		After:  model.Artifact{Label: plus, Path: plus},
	}, nil
}

func removePair(dir string) error {
	var result *multierror.Error
	for _, name := range []string{MinusFile, PlusFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, &StorageError{Op: "remove", Path: path, Err: err})
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		result = multierror.Append(result, &StorageError{Op: "remove", Path: dir, Err: err})
	}
	return result.ErrorOrNil()
}
