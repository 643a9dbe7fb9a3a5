// Package nvim shows a snapshot pair in Neovim's diff mode, either inside
// the instance kubectl-watch runs under or in a fresh one.
package nvim

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// ErrNoInstance is returned by Connect outside a Neovim terminal.
var ErrNoInstance = errors.New("no running neovim instance")

// Manager handles the connection to a running Neovim instance.
type Manager struct {
	nvim *nvim.Nvim
}

// address returns the RPC address of the enclosing instance.
func address() string {
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// Connect dials the Neovim instance whose terminal we are running in.
func Connect() (*Manager, error) {
	addr := address()
	if addr == "" {
		return nil, ErrNoInstance
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// OpenDiff opens both files side by side in a new tab with diff mode on.
// The buffers are read-only and detached from the files, so the files may
// be removed once OpenDiff returns.
func (m *Manager) OpenDiff(before, after string) error {
	b := m.nvim.NewBatch()
	for i, path := range []string{before, after} {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if i == 0 {
			b.Command(fmt.Sprintf("tabedit %s", escape(absPath)))
		} else {
			b.Command(fmt.Sprintf("vsplit %s", escape(absPath)))
		}
		b.Command("setlocal buftype=nofile bufhidden=wipe noswapfile readonly")
		b.Command("diffthis")
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to open diff in nvim: %w", err)
	}
	return nil
}

// Command returns a foreground `nvim -d` invocation for the pair.
func Command(before, after string) *exec.Cmd {
	return exec.Command("nvim", "-d", "-R", "-n", before, after)
}

func escape(path string) string {
	out := make([]rune, 0, len(path))
	for _, r := range path {
		if r == ' ' || r == '\\' || r == '%' || r == '#' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
