package cli

import (
	"strings"
	"testing"

	"github.com/coder/serpent"
	"github.com/stretchr/testify/require"
)

func TestNewCommandHasExpectedSubcommands(t *testing.T) {
	cmd := NewCommand()
	require.Equal(t, "vopono", cmd.Use)
	require.Len(t, cmd.Children, 3)

	names := make(map[string]bool)
	for _, c := range cmd.Children {
		names[strings.Fields(c.Use)[0]] = true
	}
	require.True(t, names["exec"])
	require.True(t, names["list"])
	require.True(t, names["sync"])
}

func TestExecCommandRequiresVpnProviderAndServerFlags(t *testing.T) {
	execCmd := findChild(t, NewCommand(), "exec")
	var flags []string
	for _, opt := range execCmd.Options {
		flags = append(flags, opt.Flag)
	}
	require.Contains(t, flags, "vpn-provider")
	require.Contains(t, flags, "server")
	require.Contains(t, flags, "custom-config")
}

func findChild(t *testing.T, parent *serpent.Command, name string) *serpent.Command {
	t.Helper()
	for _, c := range parent.Children {
		if strings.Fields(c.Use)[0] == name {
			return c
		}
	}
	t.Fatalf("no child command named %q", name)
	return nil
}
