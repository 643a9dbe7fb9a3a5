package nvim

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithoutInstance(t *testing.T) {
	t.Setenv("NVIM", "")
	t.Setenv("NVIM_LISTEN_ADDRESS", "")
	_, err := Connect()
	assert.ErrorIs(t, err, ErrNoInstance)
}

func TestCommand(t *testing.T) {
	cmd := Command("/tmp/a.yaml", "/tmp/b.yaml")
	assert.Equal(t, []string{"nvim", "-d", "-R", "-n", "/tmp/a.yaml", "/tmp/b.yaml"}, cmd.Args)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `/tmp/my\ dir/a\#1.yaml`, escape("/tmp/my dir/a#1.yaml"))
}

func TestOpenDiff(t *testing.T) {
	if _, err := exec.LookPath("nvim"); err != nil {
		t.Skip("nvim not installed")
	}

	dir := t.TempDir()
	socket := filepath.Join(dir, "nvim.sock")
	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socket)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})
	for i := 0; i < 40; i++ {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	before := filepath.Join(dir, "minus.yaml")
	after := filepath.Join(dir, "plus.yaml")
	require.NoError(t, os.WriteFile(before, []byte("a: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(after, []byte("a: 2\n"), 0o644))

	t.Setenv("NVIM", socket)
	m, err := Connect()
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.OpenDiff(before, after))
	var on int
	require.NoError(t, m.nvim.Eval("&diff", &on))
	assert.Equal(t, 1, on)
}
