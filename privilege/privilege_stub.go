//go:build !linux

package privilege

import (
	"fmt"
	"runtime"
)

// EnsurePrivileges always fails on non-Linux platforms: network namespaces
// are a Linux-only concept (spec.md §1 Non-goals).
func EnsurePrivileges() error {
	return fmt.Errorf("vopono is only supported on Linux, current platform: %s", runtime.GOOS)
}
