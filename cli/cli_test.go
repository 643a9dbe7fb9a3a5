package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/kubectl-watch.go/cli"
	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/pipeline"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := cli.Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, backend.KindStructural, cfg.BackendKind())
	assert.True(t, cfg.MissingAsEmpty)
	assert.Equal(t, pipeline.Policy{}, cfg.Policy())

	display := cfg.DisplayConfig()
	assert.Equal(t, backend.SideBySide, display.Mode)
	assert.Equal(t, backend.Dark, display.Background)
	assert.Equal(t, backend.DefaultTabWidth, display.TabWidth)
	assert.True(t, display.SyntaxHighlight)
	assert.True(t, display.InVCS)
	assert.Equal(t, backend.DefaultLimits(), cfg.Limits())
}

func TestParseFlags(t *testing.T) {
	cfg, err := cli.Parse([]string{
		"-n", "prod",
		"--backend", "line",
		"--mode", "unified",
		"--color", "never",
		"--include-managed-fields",
		"--ignore-status",
		"--width", "100",
		"deployments.v1.apps", "web",
	})
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Namespace)
	assert.Equal(t, "deployments.v1.apps", cfg.Resource)
	assert.Equal(t, "web", cfg.Name)
	assert.Equal(t, backend.KindLineHighlight, cfg.BackendKind())
	assert.False(t, cfg.UseColor())
	assert.Equal(t, pipeline.Policy{IncludeManagedFields: true, IgnoreStatus: true}, cfg.Policy())

	display := cfg.DisplayConfig()
	assert.Equal(t, backend.Unified, display.Mode)
	assert.Equal(t, 100, display.Width)
}

func TestParseSlashTarget(t *testing.T) {
	cfg, err := cli.Parse([]string{"deploy/web"})
	require.NoError(t, err)
	assert.Equal(t, "deploy", cfg.Resource)
	assert.Equal(t, "web", cfg.Name)
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("KUBECTL_WATCH_TAB_WIDTH", "4")
	t.Setenv("KUBECTL_WATCH_BACKEND", "line")
	t.Setenv("KUBECTL_WATCH_INCLUDE_MANAGED_FIELDS", "true")

	cfg, err := cli.Parse([]string{"--backend", "structural"})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.TabWidth)
	assert.True(t, cfg.IncludeManagedFields)
	assert.Equal(t, backend.KindStructural, cfg.BackendKind(), "flags beat the environment")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown backend", args: []string{"--backend", "difflib"}},
		{name: "unknown mode", args: []string{"--mode", "stacked"}},
		{name: "unknown color", args: []string{"--color", "sometimes"}},
		{name: "file and resource", args: []string{"-f", "x.yaml", "pods"}},
		{name: "too many args", args: []string{"pods", "a", "b"}},
		{name: "mixed target forms", args: []string{"pods/a", "b"}},
		{name: "negative width", args: []string{"--width", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cli.Parse(tt.args)
			assert.Error(t, err)
		})
	}
}
