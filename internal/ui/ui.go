// Package ui prints status messages to stderr, keeping stdout for diffs.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/sokinpui/kubectl-watch.go/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	KeyColor     = color.New(color.FgYellow)
)

// Output is where the printers write.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

// --- Event lines ---

// Snapshot announces a new snapshot of an object.
func Snapshot(key, resourceVersion string, at time.Time) {
	fmt.Fprintf(Output, "%s %s", at.Format("15:04:05"), KeyColor.Sprint(key))
	if resourceVersion != "" {
		fmt.Fprintf(Output, " (resourceVersion %s)", resourceVersion)
	}
	fmt.Fprintln(Output)
}

// Deleted announces that an object went away.
func Deleted(key string) {
	Warning("%s deleted", key)
}

// PrintSummary reports the outcome of one diff.
func PrintSummary(key string, s model.Summary) {
	switch {
	case s.Degraded:
		Warning("%s: %s", key, s.Message)
	case s.Changed:
		Success("%s: %s", key, s.Message)
	default:
		Info("%s: %s", key, s.Message)
	}
}
