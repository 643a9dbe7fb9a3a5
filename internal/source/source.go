// Package source supplies the ordered snapshots of watched objects.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"

	"github.com/sokinpui/kubectl-watch.go/internal/ui"
)

// Event is one snapshot of an object. Deleted marks the last snapshot of an
// object's history.
type Event struct {
	Object  *unstructured.Unstructured
	Deleted bool
}

// Source delivers snapshots in order until it runs dry, fails or ctx ends.
// Both channels are closed when the source is done.
type Source interface {
	Snapshots(ctx context.Context) (<-chan Event, <-chan error)
}

// StreamSource reads a stream of YAML or JSON documents.
type StreamSource struct {
	r    io.Reader
	name string
}

// NewStream reads snapshots from r.
func NewStream(r io.Reader) *StreamSource {
	return &StreamSource{r: r, name: "stream"}
}

// New reads from stdin when it is piped and from the clipboard otherwise.
func New() (*StreamSource, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		ui.Header("--- Reading from stdin ---")
		return &StreamSource{r: os.Stdin, name: "stdin"}, nil
	}

	ui.Header("--- Reading from clipboard ---")
	content, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to process.")
	}
	return &StreamSource{r: strings.NewReader(content), name: "clipboard"}, nil
}

// Open reads snapshots from a file, or from stdin for "-".
func Open(path string) (*StreamSource, error) {
	if path == "-" {
		return &StreamSource{r: os.Stdin, name: "stdin"}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &StreamSource{r: f, name: path}, nil
}

func (s *StreamSource) String() string {
	return s.name
}

// Snapshots decodes one document at a time. List documents yield their
// items. Empty documents are skipped.
func (s *StreamSource) Snapshots(ctx context.Context) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)
		if c, ok := s.r.(io.Closer); ok && s.r != os.Stdin {
			defer c.Close()
		}

		dec := yamlutil.NewYAMLOrJSONDecoder(s.r, 4096)
		for {
			var doc map[string]interface{}
			if err := dec.Decode(&doc); err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- fmt.Errorf("failed to decode %s: %w", s.name, err)
				}
				return
			}
			for _, obj := range expand(doc) {
				select {
				case events <- Event{Object: obj}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, errs
}

func expand(doc map[string]interface{}) []*unstructured.Unstructured {
	if len(doc) == 0 {
		return nil
	}
	u := &unstructured.Unstructured{Object: doc}
	if !u.IsList() {
		return []*unstructured.Unstructured{u}
	}

	var out []*unstructured.Unstructured
	_ = u.EachListItem(func(o runtime.Object) error {
		if item, ok := o.(*unstructured.Unstructured); ok {
			out = append(out, item)
		}
		return nil
	})
	return out
}
