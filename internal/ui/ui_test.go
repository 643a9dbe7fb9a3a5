package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/kubectl-watch.go/model"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() {
		Output, color.NoColor = prevOut, prevNoColor
	})
	return &buf
}

func TestSnapshot(t *testing.T) {
	buf := capture(t)
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)

	Snapshot("default/ConfigMap/a", "42", at)
	Snapshot("default/ConfigMap/b", "", at)

	assert.Equal(t, "09:05:07 default/ConfigMap/a (resourceVersion 42)\n09:05:07 default/ConfigMap/b\n", buf.String())
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)

	PrintSummary("ns/Pod/x", model.Summary{Changed: true, Message: "changes found"})
	PrintSummary("ns/Pod/x", model.Summary{Message: "no changes"})
	Deleted("ns/Pod/x")

	assert.Equal(t, "ns/Pod/x: changes found\nns/Pod/x: no changes\nns/Pod/x deleted\n", buf.String())
}
