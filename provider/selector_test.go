package provider

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vopono-go/vopono/vpntypes"
)

type fakeSyncer struct {
	called  []SyncRequest
	writeFn func(dir string) error
}

func (f *fakeSyncer) Sync(ctx context.Context, req SyncRequest) error {
	f.called = append(f.called, req)
	if f.writeFn != nil {
		return f.writeFn("")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}

func TestSelectCustomConfigRequiresProtocol(t *testing.T) {
	sel := &Selector{ConfigDir: t.TempDir(), Logger: discardLogger()}
	_, err := sel.Select(context.Background(), Params{CustomConfigPath: "/tmp/my.ovpn"})
	require.ErrorIs(t, err, ErrArgument)
}

func TestSelectCustomConfigDerivesServerKey(t *testing.T) {
	sel := &Selector{ConfigDir: t.TempDir(), Logger: discardLogger()}
	target, err := sel.Select(context.Background(), Params{
		CustomConfigPath: "/tmp/my vpn.ovpn",
		Protocol:         vpntypes.OpenVpn,
	})
	require.NoError(t, err)
	require.Equal(t, vpntypes.Custom, target.Provider)
	require.Equal(t, vpntypes.OpenVpn, target.Protocol)
	require.Equal(t, "myvpn", target.ServerKey)
}

func TestSelectNamedTriggersSyncWhenConfigMissing(t *testing.T) {
	configDir := t.TempDir()
	openvpnDir := filepath.Join(configDir, "tig", "openvpn")

	syncer := &fakeSyncer{writeFn: func(string) error {
		require.NoError(t, os.MkdirAll(openvpnDir, 0o755))
		return os.WriteFile(filepath.Join(openvpnDir, "serverlist.csv"), []byte("UK,uk,uk.example.com\n"), 0o644)
	}}

	sel := &Selector{ConfigDir: configDir, Syncer: syncer, Logger: discardLogger()}
	target, err := sel.Select(context.Background(), Params{
		Provider:    vpntypes.TigerVpn,
		ServerAlias: "uk",
	})
	require.NoError(t, err)
	require.Len(t, syncer.called, 1)
	require.Equal(t, vpntypes.TigerVpn, syncer.called[0].Provider)
	require.Equal(t, "uk.example.com", target.ServerHost)
}

func TestSelectNamedRejectsUnsupportedProtocol(t *testing.T) {
	sel := &Selector{ConfigDir: t.TempDir(), Logger: discardLogger()}
	_, err := sel.Select(context.Background(), Params{
		Provider:    vpntypes.PrivateInternetAccess,
		ServerAlias: "us",
		Protocol:    vpntypes.Wireguard,
	})
	require.ErrorIs(t, err, vpntypes.ErrUnsupported)
}

func TestSelectNamedFailsWithoutSyncerWhenMissing(t *testing.T) {
	sel := &Selector{ConfigDir: t.TempDir(), Logger: discardLogger()}
	_, err := sel.Select(context.Background(), Params{
		Provider:    vpntypes.Mullvad,
		ServerAlias: "se",
	})
	require.Error(t, err)
}
