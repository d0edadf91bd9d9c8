//go:build !linux

package run

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/vopono-go/vopono/config"
)

// Exec is a stub on non-Linux platforms: every namespace, veth and
// iptables primitive this package orchestrates is Linux-only.
func Exec(ctx context.Context, deps Deps, cfg config.AppConfig) (exitCode int, err error) {
	return 0, fmt.Errorf("vopono is only supported on Linux, current platform: %s", runtime.GOOS)
}

// SweepNamespace is a no-op stub on non-Linux platforms.
func SweepNamespace(logger *slog.Logger, name string) {}
