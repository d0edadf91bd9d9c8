package vpntypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCustomConfigServerKey(t *testing.T) {
	tcs := []struct {
		name, path, expect string
	}{
		{name: "spaces and hyphens stripped", path: "/home/user/my vpn-server.ovpn", expect: "myvpnser"},
		{name: "short stem kept whole", path: "/tmp/uk1.ovpn", expect: "uk1"},
		{name: "lowercased", path: "/tmp/US-East.ovpn", expect: "useast"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, CustomConfigServerKey(tc.path))
		})
	}
}

func TestNamespaceName(t *testing.T) {
	require.Equal(t, "vopono_mv_se", NamespaceName(Mullvad, "se"))
	require.Equal(t, "vopono_cus_myvpnserv", NamespaceName(Custom, "myvpnserv"))
}
