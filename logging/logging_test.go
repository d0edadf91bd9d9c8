package logging

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"error": slog.LevelError,
		"WARN":  slog.LevelWarn,
		"Info":  slog.LevelInfo,
		"debug": slog.LevelDebug,
		"":      slog.LevelWarn,
		"bogus": slog.LevelWarn,
	}
	for raw, want := range cases {
		require.Equal(t, want, parseLevel(raw), "level %q", raw)
	}
}

func TestSetupWritesToLogDir(t *testing.T) {
	dir := t.TempDir()
	logger, err := Setup(Config{Level: "debug", LogDir: dir})
	require.NoError(t, err)
	require.NotNil(t, logger)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
