package vpntypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tcs := []struct {
		name      string
		provider  VpnProvider
		requested Protocol
		expect    Protocol
		expectErr bool
	}{
		{name: "mullvad none defaults to wireguard", provider: Mullvad, requested: "", expect: Wireguard},
		{name: "mullvad openvpn as requested", provider: Mullvad, requested: OpenVpn, expect: OpenVpn},
		{name: "mullvad wireguard as requested", provider: Mullvad, requested: Wireguard, expect: Wireguard},
		{name: "tigervpn none defaults to openvpn", provider: TigerVpn, requested: "", expect: OpenVpn},
		{name: "tigervpn openvpn as requested", provider: TigerVpn, requested: OpenVpn, expect: OpenVpn},
		{name: "tigervpn wireguard is unsupported", provider: TigerVpn, requested: Wireguard, expectErr: true},
		{name: "pia none defaults to openvpn", provider: PrivateInternetAccess, requested: "", expect: OpenVpn},
		{name: "pia wireguard is unsupported", provider: PrivateInternetAccess, requested: Wireguard, expectErr: true},
		{name: "custom none defaults to wireguard", provider: Custom, requested: "", expect: Wireguard},
		{name: "custom as specified openvpn", provider: Custom, requested: OpenVpn, expect: OpenVpn},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.provider, tc.requested)
			if tc.expectErr {
				require.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, got)
		})
	}
}
