// Package backend computes diffs between two artifacts and lays the result
// out for either a terminal or a two-pane view.
package backend

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sokinpui/kubectl-watch.go/model"
)

// Kind names a backend implementation.
type Kind string

const (
	KindStructural    Kind = "structural"
	KindLineHighlight Kind = "line"
)

// ParseKind parses the CLI spelling of a backend.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "structural", "difft", "":
		return KindStructural, nil
	case "line", "line-highlight", "delta":
		return KindLineHighlight, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// Backend compares two artifacts. Which backend runs is the caller's choice.
type Backend interface {
	Name() string
	Compute(before, after model.Artifact, cfg DisplayConfig) (*Result, error)
}

// InputError reports an artifact the backend could not read.
type InputError struct {
	Label string
	Path  string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("failed to read %s (%s): %v", e.Label, e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// readArtifact loads an artifact's text. A missing file reads as empty when
// missingAsEmpty is set.
func readArtifact(a model.Artifact, missingAsEmpty bool) (string, error) {
	if a.InMemory {
		return a.Text, nil
	}
	if a.Path == "" {
		return "", &InputError{Label: a.Label, Path: a.Path, Err: errors.New("no path given")}
	}

	info, err := os.Stat(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && missingAsEmpty {
			return "", nil
		}
		return "", &InputError{Label: a.Label, Path: a.Path, Err: err}
	}
	if info.IsDir() {
		return "", &InputError{Label: a.Label, Path: a.Path, Err: errors.New("is a directory")}
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return "", &InputError{Label: a.Label, Path: a.Path, Err: err}
	}
	return string(data), nil
}

// splitLines splits text into lines without their terminators. Empty text
// has no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func labelOf(a model.Artifact) string {
	if a.Label != "" {
		return a.Label
	}
	return a.Path
}
