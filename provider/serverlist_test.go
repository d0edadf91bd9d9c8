package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vopono-go/vopono/vpntypes"
)

func writeServerList(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "serverlist.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadServerListDefaultsPortAndProtocol(t *testing.T) {
	path := writeServerList(t, "UK London,uk-lon,uk.example.com\n")

	var warnings []string
	warn := func(msg string, args ...any) { warnings = append(warnings, msg) }

	servers, err := LoadServerList(path, warn)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, uint16(1194), servers[0].Port)
	require.Equal(t, vpntypes.UDP, servers[0].Protocol)
	require.Len(t, warnings, 2)
}

func TestLoadServerListHonorsExplicitFields(t *testing.T) {
	path := writeServerList(t, "US East,us-east,us.example.com,443,tcp\n")

	servers, err := LoadServerList(path, nil)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, uint16(443), servers[0].Port)
	require.Equal(t, vpntypes.TCP, servers[0].Protocol)
}

func TestFindHostFromAliasMatchesAnyOfThreeRules(t *testing.T) {
	servers := []vpntypes.VpnServer{
		{Name: "uk_london", Alias: "uk1", Host: "a"},
		{Name: "us-east", Alias: "use1", Host: "b"},
		{Name: "germany", Alias: "de1", Host: "c"},
	}

	t.Run("matches by name prefix", func(t *testing.T) {
		s, err := FindHostFromAlias("germ", servers)
		require.NoError(t, err)
		require.Equal(t, "germany", s.Name)
	})

	t.Run("matches by alias prefix", func(t *testing.T) {
		s, err := FindHostFromAlias("use1", servers)
		require.NoError(t, err)
		require.Equal(t, "us-east", s.Name)
	})

	t.Run("matches by underscore-to-hyphen normalized name", func(t *testing.T) {
		s, err := FindHostFromAlias("uk-l", servers)
		require.NoError(t, err)
		require.Equal(t, "uk_london", s.Name)
	})

	t.Run("no match returns ErrNoMatchingServer", func(t *testing.T) {
		_, err := FindHostFromAlias("zz", servers)
		require.ErrorIs(t, err, ErrNoMatchingServer)
	})

	t.Run("never returns an entry outside the input list", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			s, err := FindHostFromAlias("u", servers)
			require.NoError(t, err)
			require.Contains(t, servers, s)
		}
	})
}
