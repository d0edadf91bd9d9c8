package tunnel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

func TestBuildPeerConfigParsesKeysAndAllowedIPs(t *testing.T) {
	priv, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey()

	conf, err := buildPeerConfig(WireguardPeerConfig{
		PublicKey:  pub.String(),
		Endpoint:   "203.0.113.5:51820",
		AllowedIPs: []string{"0.0.0.0/0"},
		Keepalive:  25 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, pub, conf.PublicKey)
	require.NotNil(t, conf.Endpoint)
	require.Len(t, conf.AllowedIPs, 1)
	require.NotNil(t, conf.PersistentKeepaliveInterval)
	require.Equal(t, 25*time.Second, *conf.PersistentKeepaliveInterval)
}

func TestBuildPeerConfigRejectsInvalidPublicKey(t *testing.T) {
	_, err := buildPeerConfig(WireguardPeerConfig{PublicKey: "not-a-key"})
	require.Error(t, err)
}

func TestBuildPeerConfigRejectsInvalidAllowedIP(t *testing.T) {
	priv, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = buildPeerConfig(WireguardPeerConfig{
		PublicKey:  priv.PublicKey().String(),
		AllowedIPs: []string{"not-a-cidr"},
	})
	require.Error(t, err)
}
