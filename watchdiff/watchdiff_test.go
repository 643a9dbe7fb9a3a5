package watchdiff_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/sokinpui/kubectl-watch.go/cli"
	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/fs"
	"github.com/sokinpui/kubectl-watch.go/model"
	"github.com/sokinpui/kubectl-watch.go/watchdiff"
)

func configMap(rv, value, manager string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata": map[string]interface{}{
			"name":            "settings",
			"namespace":       "default",
			"resourceVersion": rv,
			"managedFields": []interface{}{
				map[string]interface{}{"manager": manager, "operation": "Update"},
			},
		},
		"data": map[string]interface{}{"mode": value},
	}}
}

func testConfig() *cli.Config {
	cfg := cli.Default()
	cfg.Color = "never"
	cfg.Width = 80
	cfg.InVCS = false
	return cfg
}

func newDiffer(t *testing.T, cfg *cli.Config) *watchdiff.Differ {
	t.Helper()
	d, err := watchdiff.New(cfg, watchdiff.WithStore(fs.NewStore(t.TempDir())))
	require.NoError(t, err)
	return d
}

func TestDiffPairHidesManagedFields(t *testing.T) {
	d := newDiffer(t, testConfig())

	var out bytes.Buffer
	sum, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "slow", "helm"), &out)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusOK, sum.ExitCode)
	assert.True(t, sum.Changed)
	assert.Equal(t, "changes found", sum.Message)

	text := out.String()
	assert.Contains(t, text, "fast")
	assert.Contains(t, text, "slow")
	assert.NotContains(t, text, "managedFields")
	assert.NotContains(t, text, "helm")
}

func TestDiffPairIncludesManagedFields(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeManagedFields = true
	d := newDiffer(t, cfg)

	var out bytes.Buffer
	_, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "fast", "helm"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "helm")
	assert.Contains(t, out.String(), "kubectl")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDiffPairWriteFailure(t *testing.T) {
	d := newDiffer(t, testConfig())

	sum, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "slow", "kubectl"), failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write diff")
	assert.Equal(t, backend.StatusError, sum.ExitCode)
}

func TestDiffSingleSnapshot(t *testing.T) {
	d := newDiffer(t, testConfig())

	var out bytes.Buffer
	sum, err := d.Diff([]*unstructured.Unstructured{configMap("1", "fast", "kubectl")}, &out)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusOK, sum.ExitCode)
	assert.Zero(t, out.Len())
}

func TestDiffUsesLastTwo(t *testing.T) {
	d := newDiffer(t, testConfig())

	var out bytes.Buffer
	_, err := d.Diff([]*unstructured.Unstructured{
		configMap("1", "first", "kubectl"),
		configMap("2", "second", "kubectl"),
		configMap("3", "third", "kubectl"),
	}, &out)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "first")
	assert.Contains(t, out.String(), "second")
	assert.Contains(t, out.String(), "third")
}

func TestDiffPairMissingAsEmpty(t *testing.T) {
	d := newDiffer(t, testConfig())

	var out bytes.Buffer
	_, err := d.DiffPair(nil, configMap("1", "fast", "kubectl"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "mode: fast")

	cfg := testConfig()
	cfg.MissingAsEmpty = false
	strict := newDiffer(t, cfg)

	out.Reset()
	sum, err := strict.DiffPair(nil, configMap("1", "fast", "kubectl"), &out)
	var inputErr *backend.InputError
	require.True(t, errors.As(err, &inputErr), "got %v", err)
	assert.Equal(t, backend.StatusError, sum.ExitCode)
	assert.Zero(t, out.Len())
}

func TestDiffPairExitCode(t *testing.T) {
	cfg := testConfig()
	cfg.ExitCode = true
	d := newDiffer(t, cfg)

	var out bytes.Buffer
	sum, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "slow", "kubectl"), &out)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusChanged, sum.ExitCode)

	out.Reset()
	sum, err = d.DiffPair(configMap("1", "fast", "kubectl"), configMap("1", "fast", "kubectl"), &out)
	require.NoError(t, err)
	assert.Equal(t, backend.StatusOK, sum.ExitCode)
	assert.Contains(t, out.String(), "No changes.")
}

func TestDiffPairLeavesInputsAlone(t *testing.T) {
	cfg := testConfig()
	cfg.IgnoreStatus = true
	cfg.UniqueArtifacts = true
	d := newDiffer(t, cfg)

	pre := configMap("1", "fast", "kubectl")
	cur := configMap("2", "slow", "kubectl")
	cur.Object["status"] = map[string]interface{}{"phase": "Ready"}

	var first, second bytes.Buffer
	_, err := d.DiffPair(pre, cur, &first)
	require.NoError(t, err)
	_, err = d.DiffPair(pre, cur, &second)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	assert.NotContains(t, first.String(), "Ready")
	assert.NotNil(t, cur.Object["status"])
	_, found, _ := unstructured.NestedSlice(pre.Object, "metadata", "managedFields")
	assert.True(t, found)
}

func TestDiffPairLineBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "line"
	cfg.Mode = "unified"
	d := newDiffer(t, cfg)

	var out bytes.Buffer
	_, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "slow", "kubectl"), &out)
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	assert.Contains(t, lines, "-  mode: fast")
	assert.Contains(t, lines, "+  mode: slow")
}

func TestPanes(t *testing.T) {
	d := newDiffer(t, testConfig())

	pp, err := d.Panes(configMap("1", "fast", "kubectl"), configMap("2", "slow", "kubectl"))
	require.NoError(t, err)
	assert.True(t, pp.Changed)
	assert.Equal(t, "settings@1", pp.Left.Title)
	assert.Equal(t, "settings@2", pp.Right.Title)
	assert.Len(t, pp.Left.Lines, len(pp.Right.Lines))
}

func TestPanesMissingBefore(t *testing.T) {
	cfg := testConfig()
	cfg.MissingAsEmpty = false
	d := newDiffer(t, cfg)

	_, err := d.Panes(nil, configMap("1", "fast", "kubectl"))
	var inputErr *backend.InputError
	assert.True(t, errors.As(err, &inputErr))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = "stacked"
	_, err := watchdiff.New(cfg)
	assert.Error(t, err)
}

type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }

func (panicBackend) Compute(model.Artifact, model.Artifact, backend.DisplayConfig) (*backend.Result, error) {
	panic("boom")
}

func TestDiffPairRecoversPanics(t *testing.T) {
	d, err := watchdiff.New(testConfig(),
		watchdiff.WithStore(fs.NewStore(t.TempDir())),
		watchdiff.WithBackend(panicBackend{}))
	require.NoError(t, err)

	var out bytes.Buffer
	sum, err := d.DiffPair(configMap("1", "fast", "kubectl"), configMap("2", "slow", "kubectl"), &out)
	var detailed *watchdiff.DetailedError
	require.True(t, errors.As(err, &detailed), "got %v", err)
	assert.Contains(t, detailed.Error(), "boom")
	assert.NotEmpty(t, detailed.Stack)
	assert.Equal(t, backend.StatusError, sum.ExitCode)
	assert.Zero(t, out.Len())

	// The shared pair was released despite the panic.
	_, err = d.DiffPair(nil, configMap("1", "fast", "kubectl"), &out)
	assert.Error(t, err)
}
