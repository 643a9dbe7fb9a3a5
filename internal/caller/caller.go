// Package caller works out which program invoked us by walking the parent
// process chain in the background.
package caller

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// maxDepth bounds the walk up the process tree.
const maxDepth = 16

// Kind classifies the invoking program.
type Kind int

const (
	Unknown Kind = iota
	Git
	Kubectl
	Shell
)

func (k Kind) String() string {
	switch k {
	case Git:
		return "git"
	case Kubectl:
		return "kubectl"
	case Shell:
		return "shell"
	default:
		return "unknown"
	}
}

// Caller is the detected invoking process.
type Caller struct {
	Kind Kind
	Name string
	Pid  int
}

// InVCS reports whether we run underneath a version control command.
func (c Caller) InVCS() bool {
	return c.Kind == Git
}

type lister func() ([]ps.Process, error)

// Detector is a handle on a detection running in the background.
type Detector struct {
	done   chan struct{}
	result Caller
}

// Start begins detection for the current process. It never blocks.
func Start() *Detector {
	return start(os.Getppid(), ps.Processes)
}

// Known returns a finished detector reporting c.
func Known(c Caller) *Detector {
	d := &Detector{done: make(chan struct{}), result: c}
	close(d.done)
	return d
}

func start(ppid int, list lister) *Detector {
	d := &Detector{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		defer func() {
			if r := recover(); r != nil {
				d.result = Caller{}
			}
		}()
		d.result = detect(ppid, list)
	}()
	return d
}

// Result returns the detected caller, waiting at most wait for the
// detection to finish. Unfinished or failed detection yields Unknown.
func (d *Detector) Result(wait time.Duration) Caller {
	if d == nil {
		return Caller{}
	}
	select {
	case <-d.done:
		return d.result
	default:
	}
	if wait <= 0 {
		return Caller{}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-d.done:
		return d.result
	case <-timer.C:
		return Caller{}
	}
}

func detect(ppid int, list lister) Caller {
	procs, err := list()
	if err != nil {
		return Caller{}
	}
	byPid := make(map[int]ps.Process, len(procs))
	for _, p := range procs {
		byPid[p.Pid()] = p
	}

	var shell Caller
	pid := ppid
	for depth := 0; depth < maxDepth && pid > 1; depth++ {
		p, ok := byPid[pid]
		if !ok {
			break
		}
		name := executableName(p.Executable())
		switch kind := classify(name); kind {
		case Git, Kubectl:
			return Caller{Kind: kind, Name: name, Pid: pid}
		case Shell:
			if shell.Kind == Unknown {
				shell = Caller{Kind: Shell, Name: name, Pid: pid}
			}
		}
		if p.PPid() == pid {
			break
		}
		pid = p.PPid()
	}
	return shell
}

func executableName(exe string) string {
	name := filepath.Base(exe)
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

func classify(name string) Kind {
	switch {
	case name == "git" || strings.HasPrefix(name, "git-"):
		return Git
	case name == "kubectl" || strings.HasPrefix(name, "kubectl-"):
		return Kubectl
	}
	switch name {
	case "sh", "bash", "zsh", "fish", "dash", "ksh", "tcsh", "nu", "pwsh", "powershell":
		return Shell
	}
	return Unknown
}
