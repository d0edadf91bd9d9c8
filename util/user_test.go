package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetConfigDirHonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgconf")
	require.Equal(t, filepath.Join("/tmp/xdgconf", "vopono"), getConfigDir("/home/someone"))
}

func TestGetConfigDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	require.Equal(t, filepath.Join("/home/someone", ".config", "vopono"), getConfigDir("/home/someone"))
}

func TestRuntimeDirHonorsXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	require.Equal(t, filepath.Join("/run/user/1000", "vopono"), RuntimeDir())
}

func TestRuntimeDirFallsBackToTemp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	require.Equal(t, filepath.Join(os.TempDir(), filepath.Base(RuntimeDir())), RuntimeDir())
}
