package appwrapper

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netns"

	"github.com/vopono-go/vopono/lockregistry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}

func TestResolveIdentityPrefersExplicitUser(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	identity, err := ResolveIdentity(me.Username, false)
	require.NoError(t, err)
	require.Equal(t, me.Username, identity.Username)
}

func TestResolveIdentityFallsBackToSudoUser(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	t.Setenv("SUDO_USER", me.Username)
	identity, err := ResolveIdentity("", false)
	require.NoError(t, err)
	require.Equal(t, me.Username, identity.Username)
}

func TestResolveIdentityRefusesRootWithoutOverride(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	_, err := ResolveIdentity("", false)
	require.ErrorIs(t, err, ErrRefusingRoot)
}

func TestResolveIdentityAllowsRootWhenOverridden(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	identity, err := ResolveIdentity("", true)
	require.NoError(t, err)
	require.Equal(t, 0, identity.Uid)
}

// createTestNamespace creates a real named netns the same way
// namespace/linux.go's createKernelNamespace does (lock the thread, enter,
// switch back), so Wrapper.Run has a real namespace to look up and enter.
// Creating a namespace needs CAP_NET_ADMIN, so this skips under a
// non-root test run rather than faking namespace existence.
func createTestNamespace(t *testing.T) string {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("creating a network namespace requires root")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	require.NoError(t, err)
	defer origin.Close()

	name := fmt.Sprintf("vopono_test_%d", os.Getpid())
	handle, err := netns.NewNamed(name)
	require.NoError(t, err)
	handle.Close()
	require.NoError(t, netns.Set(origin))

	t.Cleanup(func() {
		_ = netns.DeleteNamed(name)
	})
	return name
}

func TestRunPropagatesExitCodeAndClearsLockfile(t *testing.T) {
	name := createTestNamespace(t)
	reg := lockregistry.New(t.TempDir())
	w := New(discardLogger(), reg)

	me, err := user.Current()
	require.NoError(t, err)
	identity, err := ResolveIdentity(me.Username, false)
	require.NoError(t, err)

	exitCode, last, err := w.Run(name, lockregistry.LockRecord{Application: "true"}, identity, []string{"true"})
	require.NoError(t, err)
	require.Equal(t, 0, exitCode)
	require.True(t, last)

	count, err := reg.OwnerCount(name)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestRunReportsNonZeroExitCodeWithoutError(t *testing.T) {
	name := createTestNamespace(t)
	reg := lockregistry.New(t.TempDir())
	w := New(discardLogger(), reg)

	me, err := user.Current()
	require.NoError(t, err)
	identity, err := ResolveIdentity(me.Username, false)
	require.NoError(t, err)

	exitCode, _, err := w.Run(name, lockregistry.LockRecord{}, identity, []string{"false"})
	require.NoError(t, err)
	require.Equal(t, 1, exitCode)
}

func TestRunFailsForUnknownNamespace(t *testing.T) {
	reg := lockregistry.New(t.TempDir())
	w := New(discardLogger(), reg)

	me, err := user.Current()
	require.NoError(t, err)
	identity, err := ResolveIdentity(me.Username, false)
	require.NoError(t, err)

	_, _, err = w.Run("vopono_does_not_exist", lockregistry.LockRecord{}, identity, []string{"true"})
	require.Error(t, err)

	count, countErr := reg.OwnerCount("vopono_does_not_exist")
	require.NoError(t, countErr)
	require.Equal(t, 0, count)
}
