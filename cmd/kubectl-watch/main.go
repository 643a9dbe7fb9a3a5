package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/sokinpui/kubectl-watch.go/cli"
	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/normalize"
	"github.com/sokinpui/kubectl-watch.go/internal/source"
	"github.com/sokinpui/kubectl-watch.go/internal/state"
	"github.com/sokinpui/kubectl-watch.go/internal/tui"
	"github.com/sokinpui/kubectl-watch.go/internal/ui"
	"github.com/sokinpui/kubectl-watch.go/watchdiff"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return backend.StatusOK
		}
		ui.Error("%v", err)
		return backend.StatusError
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "kubectl-watch",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
		Color:  hclog.AutoColor,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(cfg, logger)
	if err != nil {
		ui.Error("Error: %v", err)
		return backend.StatusError
	}

	differ, err := watchdiff.New(cfg, watchdiff.WithLogger(logger))
	if err != nil {
		ui.Error("Failed to initialize: %v", err)
		return backend.StatusError
	}
	history := state.New(cfg.History)
	events, errs := src.Snapshots(ctx)

	if cfg.TUI {
		p := tea.NewProgram(tui.New(differ, history, events, errs), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			ui.Error("Error running program: %v", err)
			return backend.StatusError
		}
		return backend.StatusOK
	}

	return watchLoop(differ, history, events, errs, logger)
}

// watchLoop prints a diff for every new snapshot and returns the status of
// the last one.
func watchLoop(d *watchdiff.Differ, history *state.Manager, events <-chan source.Event, errs <-chan error, logger hclog.Logger) int {
	status := backend.StatusOK
	for ev := range events {
		if ev.Deleted {
			key := normalize.Key(ev.Object)
			ui.Deleted(key)
			history.MarkDeleted(key)
			continue
		}
		key, ok := history.Write(ev.Object)
		if !ok {
			logger.Trace("dropped replayed snapshot", "object", key)
			continue
		}
		ui.Snapshot(key, ev.Object.GetResourceVersion(), time.Now())

		sum, err := d.Diff(history.Last(key, 2), os.Stdout)
		if err != nil {
			printError(err)
			status = sum.ExitCode
			continue
		}
		if sum.Message != "" {
			ui.PrintSummary(key, sum)
		}
		status = sum.ExitCode
	}
	if err := <-errs; err != nil {
		printError(err)
		return backend.StatusError
	}
	return status
}

func openSource(cfg *cli.Config, logger hclog.Logger) (source.Source, error) {
	switch {
	case cfg.File != "":
		return source.Open(cfg.File)
	case cfg.Resource != "":
		cluster, err := source.ClientFromKubeconfig(cfg.Kubeconfig, cfg.KubeContext)
		if err != nil {
			return nil, err
		}
		w, err := cluster.Watch(cfg.Resource, cfg.Name, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		logger.Info("watching", "target", w.String())
		return w, nil
	default:
		return source.New()
	}
}

func printError(err error) {
	ui.Error("Error: %v", err)
	var de *watchdiff.DetailedError
	if errors.As(err, &de) {
		fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", de.Stack)
	}
}
