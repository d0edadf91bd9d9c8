package environment

import (
	"log/slog"
	"os"
	"os/user"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestoreOriginalUserEnvironmentNoOpWithoutSudoUser(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	got := RestoreOriginalUserEnvironment(slog.Default())

	require.Empty(t, got)
}

func TestRestoreOriginalUserEnvironmentUnknownUserSkipsRestoration(t *testing.T) {
	t.Setenv("SUDO_USER", "vopono-test-user-that-does-not-exist")

	got := RestoreOriginalUserEnvironment(slog.Default())

	require.Empty(t, got)
}

func TestRestoreOriginalUserEnvironmentRestoresIdentityAndXDG(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	t.Setenv("SUDO_USER", current.Username)

	got := RestoreOriginalUserEnvironment(slog.Default())

	require.Equal(t, current.Username, got["USER"])
	require.Equal(t, current.Username, got["LOGNAME"])
	require.Equal(t, current.HomeDir, got["HOME"])
	require.Contains(t, got["XDG_CONFIG_HOME"], current.HomeDir)
	require.Contains(t, got["XDG_DATA_HOME"], current.HomeDir)
	require.Contains(t, got["XDG_STATE_HOME"], current.HomeDir)
	require.Contains(t, got["XDG_CACHE_HOME"], current.HomeDir)
	require.NotContains(t, got, "XDG_RUNTIME_DIR")
}

func TestRestoreOriginalUserEnvironmentPathIncludesSystemDirs(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	t.Setenv("SUDO_USER", current.Username)
	t.Setenv("PATH", os.Getenv("PATH"))

	got := RestoreOriginalUserEnvironment(slog.Default())

	require.Contains(t, got["PATH"], "/usr/bin")
}
