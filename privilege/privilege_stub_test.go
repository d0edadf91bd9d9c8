//go:build !linux

package privilege

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsurePrivilegesFailsOnNonLinux(t *testing.T) {
	err := EnsurePrivileges()

	require.Error(t, err)
	require.ErrorContains(t, err, runtime.GOOS)
}
