package watchdiff

import (
	"bytes"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/sokinpui/kubectl-watch.go/cli"
)

// Config for using watchdiff as a library.
type Config struct {
	// Diff backend: "structural" (default) or "line".
	Backend string
	// Layout: "side-by-side" (default), "show-both" or "unified".
	Mode string
	// Output width. Zero means 80.
	Width int
	// Keep metadata.managedFields in the diff.
	IncludeManagedFields bool
	// Drop .status from the diff.
	IgnoreStatus bool
}

// DiffYAML diffs two manifests and returns the uncoloured output. An empty
// before is treated as a missing object.
func DiffYAML(before, after string, config Config) (string, error) {
	cliCfg := cli.Default()
	cliCfg.Color = "never"
	cliCfg.InVCS = false
	cliCfg.IncludeManagedFields = config.IncludeManagedFields
	cliCfg.IgnoreStatus = config.IgnoreStatus
	cliCfg.Width = config.Width
	if cliCfg.Width == 0 {
		cliCfg.Width = 80
	}
	if config.Backend != "" {
		cliCfg.Backend = config.Backend
	}
	if config.Mode != "" {
		cliCfg.Mode = config.Mode
	}

	d, err := New(cliCfg)
	if err != nil {
		return "", fmt.Errorf("failed to initialize differ: %w", err)
	}

	pre, err := parseObject(before)
	if err != nil {
		return "", fmt.Errorf("failed to parse before: %w", err)
	}
	cur, err := parseObject(after)
	if err != nil {
		return "", fmt.Errorf("failed to parse after: %w", err)
	}
	if cur == nil {
		return "", fmt.Errorf("after must not be empty")
	}

	pp, err := d.Panes(pre, cur)
	if err != nil {
		return "", err
	}
	return pp.Plain, nil
}

func parseObject(text string) (*unstructured.Unstructured, error) {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return nil, nil
	}
	var obj map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: obj}, nil
}
