package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleWireguardConf = `[Interface]
PrivateKey = SGVsbG9Xb3JsZFByaXZhdGVLZXlFeGFtcGxlMDA=
Address = 10.64.0.2/32
DNS = 193.138.218.74

[Peer]
PublicKey = SGVsbG9Xb3JsZFB1YmxpY0tleUV4YW1wbGUwMDA=
AllowedIPs = 0.0.0.0/0
Endpoint = vpn.example.com:51820
PersistentKeepalive = 25
`

func writeTempConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wg0.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseWireguardConfigParsesInterfaceAndPeer(t *testing.T) {
	path := writeTempConf(t, sampleWireguardConf)

	cfg, err := ParseWireguardConfig(path, "wg0", true)
	require.NoError(t, err)
	require.Equal(t, "wg0", cfg.Interface)
	require.True(t, cfg.KillSwitch)
	require.Equal(t, "SGVsbG9Xb3JsZFByaXZhdGVLZXlFeGFtcGxlMDA=", cfg.PrivateKey)
	require.Equal(t, "10.64.0.2/32", cfg.Address.String())
	require.Equal(t, []string{"193.138.218.74"}, cfg.DNS)
	require.Equal(t, "SGVsbG9Xb3JsZFB1YmxpY0tleUV4YW1wbGUwMDA=", cfg.Peer.PublicKey)
	require.Equal(t, []string{"0.0.0.0/0"}, cfg.Peer.AllowedIPs)
	require.Equal(t, "vpn.example.com:51820", cfg.Peer.Endpoint)
	require.Equal(t, 25*time.Second, cfg.Peer.Keepalive)
}

func TestParseWireguardConfigDefaultsKeepalive(t *testing.T) {
	noKeepalive := `[Interface]
PrivateKey = key
Address = 10.64.0.2/32

[Peer]
PublicKey = peerkey
AllowedIPs = 0.0.0.0/0
Endpoint = vpn.example.com:51820
`
	path := writeTempConf(t, noKeepalive)

	cfg, err := ParseWireguardConfig(path, "wg0", false)
	require.NoError(t, err)
	require.Equal(t, 25*time.Second, cfg.Peer.Keepalive)
}

func TestParseWireguardConfigRejectsMultiplePeers(t *testing.T) {
	twoPeers := sampleWireguardConf + "\n[Peer]\nPublicKey = other\nAllowedIPs = 0.0.0.0/0\n"
	path := writeTempConf(t, twoPeers)

	_, err := ParseWireguardConfig(path, "wg0", true)
	require.Error(t, err)
}

func TestParseWireguardConfigRejectsMissingPrivateKey(t *testing.T) {
	missing := `[Interface]
Address = 10.64.0.2/32

[Peer]
PublicKey = peerkey
AllowedIPs = 0.0.0.0/0
`
	path := writeTempConf(t, missing)

	_, err := ParseWireguardConfig(path, "wg0", true)
	require.Error(t, err)
}
