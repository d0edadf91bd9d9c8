package guard

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDnsConfigWritesOneNameserverPerLine(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := newDnsConfig(logger, root, "vopono_piat_us01", []string{"10.0.0.1", "10.0.0.2"})
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(root, "vopono_piat_us01", "resolv.conf"))
	require.NoError(t, err)
	require.Equal(t, "nameserver 10.0.0.1\nnameserver 10.0.0.2\n", string(contents))

	cfg.Release()
	_, err = os.Stat(filepath.Join(root, "vopono_piat_us01"))
	require.True(t, os.IsNotExist(err))
}

func TestDnsConfigReleaseLeavesNonEmptyDirAlone(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := newDnsConfig(logger, root, "vopono_mlvd_se01", []string{"10.0.0.1"})
	require.NoError(t, err)

	sibling := filepath.Join(root, "vopono_mlvd_se01", "other-file")
	require.NoError(t, os.WriteFile(sibling, []byte("x"), 0o644))

	cfg.Release()
	_, err = os.Stat(sibling)
	require.NoError(t, err)
}
