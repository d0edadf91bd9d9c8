//go:build linux

package privilege

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsurePrivilegesShortCircuitsWhenAlreadyEscalated(t *testing.T) {
	t.Setenv(escalatedEnvVar, "1")

	err := EnsurePrivileges()

	require.NoError(t, err)
}
