package watchdiff_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/kubectl-watch.go/watchdiff"
)

const deployV1 = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  replicas: 1
`

const deployV2 = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  replicas: 3
`

func TestDiffYAML(t *testing.T) {
	out, err := watchdiff.DiffYAML(deployV1, deployV2, watchdiff.Config{Mode: "unified"})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "web --- web --- YAML", lines[0])
	assert.Contains(t, lines, "-  replicas: 1")
	assert.Contains(t, lines, "+  replicas: 3")
	assert.NotContains(t, out, "\x1b[")
}

func TestDiffYAMLUnchanged(t *testing.T) {
	out, err := watchdiff.DiffYAML(deployV1, deployV1, watchdiff.Config{})
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestDiffYAMLCreated(t *testing.T) {
	out, err := watchdiff.DiffYAML("", deployV2, watchdiff.Config{Width: 60})
	require.NoError(t, err)
	assert.Contains(t, out, "replicas: 3")
}

func TestDiffYAMLErrors(t *testing.T) {
	_, err := watchdiff.DiffYAML(deployV1, "", watchdiff.Config{})
	assert.Error(t, err)

	_, err = watchdiff.DiffYAML("[unclosed", deployV2, watchdiff.Config{})
	assert.Error(t, err)

	_, err = watchdiff.DiffYAML(deployV1, deployV2, watchdiff.Config{Backend: "difflib"})
	assert.Error(t, err)
}
