package caller

import (
	"errors"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeProcess struct {
	pid, ppid int
	exe       string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return p.ppid }
func (p fakeProcess) Executable() string { return p.exe }

func tree(procs ...fakeProcess) lister {
	return func() ([]ps.Process, error) {
		out := make([]ps.Process, len(procs))
		for i, p := range procs {
			out[i] = p
		}
		return out, nil
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		list lister
		want Caller
	}{
		{
			name: "git pager chain",
			list: tree(
				fakeProcess{pid: 40, ppid: 30, exe: "less"},
				fakeProcess{pid: 30, ppid: 20, exe: "git"},
				fakeProcess{pid: 20, ppid: 1, exe: "zsh"},
			),
			want: Caller{Kind: Git, Name: "git", Pid: 30},
		},
		{
			name: "kubectl plugin",
			list: tree(
				fakeProcess{pid: 50, ppid: 10, exe: "kubectl"},
				fakeProcess{pid: 10, ppid: 1, exe: "bash"},
			),
			want: Caller{Kind: Kubectl, Name: "kubectl", Pid: 50},
		},
		{
			name: "plain shell",
			list: tree(
				fakeProcess{pid: 50, ppid: 10, exe: "/usr/bin/bash"},
				fakeProcess{pid: 10, ppid: 1, exe: "sshd"},
			),
			want: Caller{Kind: Shell, Name: "bash", Pid: 50},
		},
		{
			name: "listing fails",
			list: func() ([]ps.Process, error) { return nil, errors.New("no procfs") },
			want: Caller{},
		},
		{
			name: "self-parented process stops the walk",
			list: tree(fakeProcess{pid: 50, ppid: 50, exe: "init"}),
			want: Caller{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detect(firstPid(t, tt.list), tt.list))
		})
	}
}

func firstPid(t *testing.T, list lister) int {
	t.Helper()
	procs, err := list()
	if err != nil || len(procs) == 0 {
		return 50
	}
	return procs[0].Pid()
}

func TestResultDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	slow := func() ([]ps.Process, error) {
		<-release
		return []ps.Process{fakeProcess{pid: 7, ppid: 1, exe: "git"}}, nil
	}

	d := start(7, slow)

	begin := time.Now()
	assert.Equal(t, Caller{}, d.Result(20*time.Millisecond))
	assert.Less(t, time.Since(begin), time.Second)
	assert.Equal(t, Caller{}, d.Result(0))

	close(release)
	assert.Equal(t, Caller{Kind: Git, Name: "git", Pid: 7}, d.Result(time.Second))
}

func TestPanicIsAbsorbed(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := start(1, func() ([]ps.Process, error) { panic("boom") })
	assert.Equal(t, Unknown, d.Result(time.Second).Kind)
}

func TestNilDetector(t *testing.T) {
	var d *Detector
	assert.Equal(t, Caller{}, d.Result(time.Second))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Git, classify(executableName("/usr/lib/git-core/git-diff")))
	assert.Equal(t, Kubectl, classify(executableName("kubectl-watch.exe")))
	assert.Equal(t, Unknown, classify("vim"))
	assert.Equal(t, "git", Git.String())
}

func TestKnown(t *testing.T) {
	d := Known(Caller{Kind: Git, Name: "git"})
	assert.True(t, d.Result(0).InVCS())
}
