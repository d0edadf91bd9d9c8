package sync

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vopono-go/vopono/provider"
	"github.com/vopono-go/vopono/vpntypes"
)

func TestUnimplementedSyncReturnsError(t *testing.T) {
	u := Unimplemented{Logger: slog.Default()}

	err := u.Sync(context.Background(), provider.SyncRequest{
		Provider: vpntypes.Mullvad,
		Protocol: vpntypes.Wireguard,
	})

	require.Error(t, err)
	require.ErrorContains(t, err, "sync collaborator")
}

func TestUnimplementedSyncWithoutLoggerStillReturnsError(t *testing.T) {
	u := Unimplemented{}

	err := u.Sync(context.Background(), provider.SyncRequest{Provider: vpntypes.Mullvad})

	require.Error(t, err)
}
